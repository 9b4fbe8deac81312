package pipeline

import (
	"fmt"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// valueSet is a membership set over converted field values. Values are compared
// by a kind tag plus canonical text, so numbers compare by value across Go types
// (int64(1), 1 and 1.0 are the same member) while strings never equal numbers.
//
// Members are bucketed by the xxhash of tag and text, streamed through one
// reused digest, so looking up a string value does not allocate. A valueSet is
// not safe for concurrent use.
type valueSet struct {
	buckets map[uint64][]member
	digest  *xxhash.Digest
	size    int
}

type member struct {
	kind byte
	text string
}

func newValueSet(values []any) *valueSet {
	s := &valueSet{
		buckets: make(map[uint64][]member, len(values)),
		digest:  xxhash.New(),
	}
	for _, v := range values {
		m, ok := canonical(v)
		if !ok {
			continue
		}
		h := s.hash(m)
		if s.find(h, m) {
			continue
		}
		s.buckets[h] = append(s.buckets[h], m)
		s.size++
	}
	return s
}

// Len returns the number of distinct members.
func (s *valueSet) Len() int {
	return s.size
}

// Contains reports whether v is a member.
func (s *valueSet) Contains(v any) bool {
	m, ok := canonical(v)
	if !ok {
		return false
	}
	return s.find(s.hash(m), m)
}

func (s *valueSet) find(h uint64, m member) bool {
	for _, k := range s.buckets[h] {
		if k == m {
			return true
		}
	}
	return false
}

func (s *valueSet) hash(m member) uint64 {
	s.digest.Reset()
	s.digest.WriteString(kindTags[m.kind])
	s.digest.WriteString(m.text)
	return s.digest.Sum64()
}

const (
	kindNil byte = iota
	kindBool
	kindString
	kindInt
	kindFloat
	kindOther
)

var kindTags = [...]string{
	kindNil:    "n",
	kindBool:   "b",
	kindString: "s",
	kindInt:    "i",
	kindFloat:  "f",
	kindOther:  "x",
}

// canonical reduces v to its kind and canonical text. It reports false for
// values that equal nothing, such as NaN.
func canonical(v any) (member, bool) {
	switch x := v.(type) {
	case nil:
		return member{kind: kindNil}, true
	case bool:
		if x {
			return member{kindBool, "1"}, true
		}
		return member{kindBool, "0"}, true
	case string:
		return member{kindString, x}, true
	case []byte:
		return member{kindString, string(x)}, true
	case int:
		return intKey(int64(x)), true
	case int8:
		return intKey(int64(x)), true
	case int16:
		return intKey(int64(x)), true
	case int32:
		return intKey(int64(x)), true
	case int64:
		return intKey(x), true
	case uint:
		return uintKey(uint64(x)), true
	case uint8:
		return intKey(int64(x)), true
	case uint16:
		return intKey(int64(x)), true
	case uint32:
		return intKey(int64(x)), true
	case uint64:
		return uintKey(x), true
	case float32:
		return floatKey(float64(x))
	case float64:
		return floatKey(x)
	}
	return member{kindOther, fmt.Sprintf("%T:%v", v, v)}, true
}

func intKey(n int64) member {
	return member{kindInt, strconv.FormatInt(n, 10)}
}

func uintKey(n uint64) member {
	if n <= math.MaxInt64 {
		return intKey(int64(n))
	}
	return member{kindInt, strconv.FormatUint(n, 10)}
}

func floatKey(f float64) (member, bool) {
	if math.IsNaN(f) {
		return member{}, false
	}
	// integral floats share the integer key so that 1 and 1.0 match
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return intKey(int64(f)), true
	}
	return member{kindFloat, strconv.FormatFloat(f, 'g', -1, 64)}, true
}
