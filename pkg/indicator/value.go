package indicator

import (
	"encoding/json"
	"strconv"
)

// Value is an indicator reading that may be absent.
// An absent value is distinct from zero: it means the series was too short
// for the indicator's window. It marshals to JSON null.
type Value struct {
	v  float64
	ok bool
}

// Some returns a present value
func Some(v float64) Value {
	return Value{v: v, ok: true}
}

// Absent returns an absent value
func Absent() Value {
	return Value{}
}

func valueOf(v float64, ok bool) Value {
	if !ok {
		return Absent()
	}
	return Some(v)
}

// Get returns the value and whether it is present
func (v Value) Get() (float64, bool) {
	return v.v, v.ok
}

// IsAbsent reports whether the value is absent
func (v Value) IsAbsent() bool {
	return !v.ok
}

// String implements fmt.Stringer
func (v Value) String() string {
	if !v.ok {
		return "absent"
	}
	return strconv.FormatFloat(v.v, 'f', -1, 64)
}

// MarshalJSON implements json.Marshaler
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

// UnmarshalJSON implements json.Unmarshaler
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Absent()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}
