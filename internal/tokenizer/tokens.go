package tokenizer

// byteClass groups input bytes by their meaning to the state machine.
type byteClass uint8

const (
	classOther byteClass = iota // ordinary field content
	classComma                  // field separator
	classQuote                  // quote byte
	classTerm                   // \r or \n
	classSpace                  // space or tab that is not the separator
)

// state is the position of the tokenizer within the current record.
type state uint8

const (
	stateRowStart   state = iota // nothing of the current record seen yet
	stateFieldStart              // after a separator; leading whitespace is skipped
	stateUnquoted                // inside an unquoted field
	stateQuoted                  // inside a quoted field
	stateQuoteSeen               // quote seen inside a quoted field: escape or end of field
)

// String returns the state name, used in warnings and test failures.
func (s state) String() string {
	switch s {
	case stateRowStart:
		return "row-start"
	case stateFieldStart:
		return "field-start"
	case stateUnquoted:
		return "unquoted"
	case stateQuoted:
		return "quoted"
	case stateQuoteSeen:
		return "quote-seen"
	default:
		return "unknown"
	}
}

// classTable builds the 256-entry lookup table for a separator and quote pair.
func classTable(comma, quote byte) [256]byteClass {
	var t [256]byteClass
	t[' '] = classSpace
	t['\t'] = classSpace
	t['\r'] = classTerm
	t['\n'] = classTerm
	t[comma] = classComma
	t[quote] = classQuote
	return t
}
