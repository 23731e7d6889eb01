package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Scalar is a value the bridge may encode as a JSON string or number.
type Scalar string

// ID is a bridge identifier.
type ID = Scalar

// UnmarshalJSON accepts strings, numbers and null.
func (id *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = Scalar(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("id: %w", err)
		}
		*id = Scalar(n.String())
	}
	return nil
}

// String returns the value as a string.
func (id Scalar) String() string {
	return string(id)
}

// User is a participant of a thread.
type User struct {
	UserID   ID     `json:"user_id"`
	Username string `json:"username"`
}

// Thread is a DM conversation summary.
type Thread struct {
	ThreadID     ID     `json:"thread_id"`
	Users        []User `json:"users"`
	LastActivity Scalar `json:"last_activity,omitempty"`
	UnseenCount  int    `json:"unseen_count"`
}

// HasAnyUser reports whether any participant's username is in names.
func (t Thread) HasAnyUser(names map[string]struct{}) bool {
	for _, u := range t.Users {
		if _, ok := names[u.Username]; ok {
			return true
		}
	}
	return false
}

// UsernameFor maps a sender reference (user id or username) to the
// participant's username.
func (t Thread) UsernameFor(from ID) (string, bool) {
	for _, u := range t.Users {
		if from != "" && (u.UserID == from || ID(u.Username) == from) {
			return u.Username, true
		}
	}
	return "", false
}

// DirectMessage is one item in a thread.
type DirectMessage struct {
	ID        ID     `json:"id"`
	Text      string `json:"text"`
	From      ID     `json:"from"`
	Timestamp Scalar `json:"timestamp,omitempty"`
	ItemType  string `json:"item_type"`
	Handled   bool   `json:"handled"`
}

// IsText reports whether the item is a plain text message.
func (m DirectMessage) IsText() bool {
	return m.ItemType == "text"
}

type envelope struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message,omitempty"`
	Error    string          `json:"error,omitempty"`
	Threads  []Thread        `json:"threads,omitempty"`
	Messages []DirectMessage `json:"messages,omitempty"`
	DMID     ID              `json:"direct_message_id,omitempty"`
}

func (e envelope) reason() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Error != "" {
		return e.Error
	}
	return "tool reported failure"
}
