package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is a resource identifier as it appears on the wire. The server may
// send identifiers as JSON strings or numbers; both decode to the same text.
type ID string

// UnmarshalJSON accepts a JSON string, an integer or null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: expected string or number, got %s", b)
	}
	if _, err := n.Int64(); err != nil {
		return fmt.Errorf("id: %s is not an integer", b)
	}
	*id = ID(n.String())
	return nil
}

// UnmarshalJSON decodes an application whose id and owner_id may be
// numbers.
func (a *Application) UnmarshalJSON(b []byte) error {
	type plain Application
	aux := struct {
		*plain
		ID      ID `json:"id"`
		OwnerID ID `json:"owner_id"`
	}{plain: (*plain)(a)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	a.ID, a.OwnerID = string(aux.ID), string(aux.OwnerID)
	return nil
}

// UnmarshalJSON decodes a notification whose id may be a number.
func (n *Notification) UnmarshalJSON(b []byte) error {
	type plain Notification
	aux := struct {
		*plain
		ID ID `json:"id"`
	}{plain: (*plain)(n)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	n.ID = string(aux.ID)
	return nil
}

// UnmarshalJSON decodes a user whose id may be a number.
func (u *User) UnmarshalJSON(b []byte) error {
	type plain User
	aux := struct {
		*plain
		ID ID `json:"id"`
	}{plain: (*plain)(u)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	u.ID = string(aux.ID)
	return nil
}
