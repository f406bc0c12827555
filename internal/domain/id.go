package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is an identifier assigned by the backend. Depending on the backend it arrives
// as a JSON number or a JSON string; it is re-encoded in the form it arrived in.
type ID struct {
	value   string
	numeric bool
}

// NewID returns a string identifier
func NewID(value string) ID {
	return ID{value: value}
}

// NumericID returns an identifier encoded as a JSON number
func NumericID(value int64) ID {
	return ID{value: strconv.FormatInt(value, 10), numeric: true}
}

// String returns the canonical string form
func (id ID) String() string {
	return id.value
}

// IsZero reports whether the identifier is absent
func (id ID) IsZero() bool {
	return id.value == ""
}

// Equal compares canonical values, so 7 and "7" are the same record
func (id ID) Equal(other ID) bool {
	return id.value == other.value
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ID{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
		*id = ID{value: s}
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id: %w", err)
	}
	*id = ID{value: n.String(), numeric: true}
	return nil
}

// ParseID reads an identifier from a URL segment or command argument. Integers
// become numeric identifiers, anything else a string identifier.
func ParseID(s string) ID {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return NumericID(n)
	}
	return NewID(s)
}
