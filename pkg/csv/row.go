package csv

// Row is one parsed record.
//
// Positional rows carry Values, one entry per surviving column in input order
// (skipped columns are absent). Hash rows carry Hash instead. Values are nil,
// string, int64, float64, bool, or a column default.
type Row struct {
	Values []any
	Hash   map[string]any
	// Encoding is the declared character set of the string values, if any.
	Encoding string
}

// IsHash reports whether the row is name-keyed.
func (r Row) IsHash() bool {
	return r.Hash != nil
}

// Len returns the number of values in the row.
func (r Row) Len() int {
	if r.Hash != nil {
		return len(r.Hash)
	}
	return len(r.Values)
}

// Get returns the value at index i.
// Returns false if the row is a hash row or the index is out of bounds.
func (r Row) Get(i int) (any, bool) {
	if i < 0 || i >= len(r.Values) {
		return nil, false
	}
	return r.Values[i], true
}

// GetByName returns the value stored under name in a hash row.
// Returns false if the row is positional or has no such column.
func (r Row) GetByName(name string) (any, bool) {
	v, ok := r.Hash[name]
	return v, ok
}

// Text returns the value at index i if it is a string.
func (r Row) Text(i int) (string, bool) {
	v, ok := r.Get(i)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
