package service

import (
	"bytes"
	"encoding/json"
	"strings"
)

// OptionalID is a patch field for a nullable reference. Set reports whether
// the field appeared in the request at all; a JSON null or "" clears the
// reference.
type OptionalID struct {
	Set   bool
	Value *string
}

func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	o.Value = nil
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s = strings.TrimSpace(s); s != "" {
		o.Value = &s
	}
	return nil
}

// SetID returns an OptionalID that sets the reference to id.
func SetID(id string) OptionalID {
	return OptionalID{Set: true, Value: &id}
}

// ClearID returns an OptionalID that clears the reference.
func ClearID() OptionalID {
	return OptionalID{Set: true}
}

// trimmedOrNil treats nil, empty and blank strings alike.
func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

// lowerOrNil is trimmedOrNil for ids, which are stored lower case.
func lowerOrNil(v *string) *string {
	v = trimmedOrNil(v)
	if v == nil {
		return nil
	}
	s := strings.ToLower(*v)
	return &s
}
