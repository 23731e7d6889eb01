package model

import (
	"time"
)

// Template is an operator-authored reply associated with one intent.
type Template struct {
	ID      int      `json:"id"`
	Intent  Intent   `json:"intent"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// CreateTemplateRequest is the request to create a template.
type CreateTemplateRequest struct {
	Intent  Intent   `json:"intent"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

// UpdateTemplateRequest is a partial template update. Nil fields are kept.
type UpdateTemplateRequest struct {
	Intent  *Intent   `json:"intent,omitempty"`
	Title   *string   `json:"title,omitempty"`
	Content *string   `json:"content,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
}

// Target is a monitored Instagram account.
type Target struct {
	Username string    `json:"username"`
	AddedAt  time.Time `json:"added_at"`
	Active   bool      `json:"active"`
}

// LogEntry is one processed message. Entries are append-only.
type LogEntry struct {
	Timestamp       time.Time `json:"timestamp"`
	ID              string    `json:"id"`
	ThreadID        string    `json:"thread_id"`
	Username        string    `json:"username"`
	OriginalMessage string    `json:"original_message"`
	Intent          Intent    `json:"intent"`
	Suggestion      string    `json:"suggestion"`
	UsedTemplate    bool      `json:"used_template"`
	Resolved        bool      `json:"resolved"`
	ResponseTime    *float64  `json:"response_time,omitempty"`
	TemplateID      *int      `json:"template_id,omitempty"`
}

// LogFilter narrows a log listing. Zero values match everything.
type LogFilter struct {
	Username string
	// Limit keeps only the most recent entries when positive.
	Limit int
}

// Stats summarizes the interaction log.
type Stats struct {
	TotalMessages       int            `json:"totalMessages"`
	AverageResponseTime float64        `json:"averageResponseTime"`
	MessagesByIntent    map[string]int `json:"messagesByIntent"`
	ResolvedMessages    int            `json:"resolvedMessages"`
	SuccessRate         float64        `json:"successRate"`
	RecentActivity24h   int            `json:"recentActivity24h"`
	LastProcessed       *time.Time     `json:"lastProcessed"`
}

// Result is the structured outcome returned by CRUD endpoints.
type Result struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	Template *Template `json:"template,omitempty"`
	Target   *Target   `json:"target,omitempty"`
	Tags     []string  `json:"tags,omitempty"`
}
