// Package model defines data structures for the DM concierge.
package model

// Message is an inbound direct message supplied by a caller.
type Message struct {
	ID        string  `json:"id"`
	ThreadID  string  `json:"thread_id"`
	FromUser  string  `json:"from_user"`
	Text      string  `json:"text"`
	Timestamp *string `json:"timestamp,omitempty"`
}

// ProcessedMessage is a Message annotated with its intent and reply.
type ProcessedMessage struct {
	ID           string  `json:"id"`
	ThreadID     string  `json:"thread_id"`
	FromUser     string  `json:"from_user"`
	Text         string  `json:"text"`
	Timestamp    *string `json:"timestamp"`
	Intent       Intent  `json:"intent"`
	Suggestion   string  `json:"suggestion"`
	UsedTemplate bool    `json:"used_template"`
}

// Processed builds the processed view of m.
func (m Message) Processed(intent Intent, suggestion string, usedTemplate bool) ProcessedMessage {
	return ProcessedMessage{
		ID:           m.ID,
		ThreadID:     m.ThreadID,
		FromUser:     m.FromUser,
		Text:         m.Text,
		Timestamp:    m.Timestamp,
		Intent:       intent,
		Suggestion:   suggestion,
		UsedTemplate: usedTemplate,
	}
}
