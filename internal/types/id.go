package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ID is a backend identifier. The API emits ids as JSON numbers while form
// input produces strings, so both decode to the same textual form.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes canonical integers as JSON numbers and anything else as
// a string.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.isCanonicalInt() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string {
	return string(id)
}

func (id ID) isCanonicalInt() bool {
	s := string(id)
	if s == "" || len(s) > 18 {
		return false
	}
	if len(s) > 1 && s[0] == '0' {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Count is a non-negative quantity that tolerates numeric strings, which is
// how form values reach the backend, and whole floats such as 2.0.
type Count int

func (c *Count) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode count: %w", err)
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("decode count %q: %w", s, err)
		}
		*c = Count(n)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode count: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*c = Count(i)
		return nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) {
		return fmt.Errorf("decode count %s: not a whole number", n)
	}
	*c = Count(f)
	return nil
}
