package middleware

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/threadmind/dm-concierge/internal/model"
)

const (
	maxMessageLen  = 10000
	maxTitleLen    = 256
	maxContentLen  = 4000
	maxTagLen      = 64
	maxUsernameLen = 30
	maxBatchSize   = 500
	maxPromptLen   = 20000
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._]+$`)

// NormalizeUsername trims whitespace and a leading @.
func NormalizeUsername(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "@")
}

// ValidateUsername validates an Instagram username.
func ValidateUsername(username string) error {
	if username == "" {
		return errors.New("username cannot be empty")
	}
	if len(username) > maxUsernameLen {
		return errors.New("username exceeds maximum length")
	}
	if !usernamePattern.MatchString(username) {
		return errors.New("username may only contain letters, digits, periods and underscores")
	}
	return nil
}

// ValidateTag validates a template tag.
func ValidateTag(tag string) error {
	if tag == "" {
		return errors.New("tag cannot be empty")
	}
	if len(tag) > maxTagLen {
		return errors.New("tag exceeds maximum length")
	}
	if !utf8.ValidString(tag) {
		return errors.New("tag must be valid UTF-8")
	}
	return nil
}

// ValidateMessages validates a batch of inbound messages.
func ValidateMessages(msgs []model.Message) error {
	if len(msgs) > maxBatchSize {
		return fmt.Errorf("at most %d messages per request", maxBatchSize)
	}
	for i, m := range msgs {
		switch {
		case strings.TrimSpace(m.ID) == "":
			return fmt.Errorf("message %d: id is required", i)
		case strings.TrimSpace(m.ThreadID) == "":
			return fmt.Errorf("message %d: thread_id is required", i)
		case strings.TrimSpace(m.FromUser) == "":
			return fmt.Errorf("message %d: from_user is required", i)
		}
		if len(m.Text) > maxMessageLen {
			return fmt.Errorf("message %d: text exceeds maximum length", i)
		}
		if !utf8.ValidString(m.Text) {
			return fmt.Errorf("message %d: text must be valid UTF-8", i)
		}
	}
	return nil
}

// ValidatePrompt validates a system prompt override.
func ValidatePrompt(prompt string) error {
	if len(prompt) > maxPromptLen {
		return errors.New("prompt exceeds maximum length")
	}
	if !utf8.ValidString(prompt) {
		return errors.New("prompt must be valid UTF-8")
	}
	return nil
}

// ValidateCreateTemplate validates a template creation request.
func ValidateCreateTemplate(req model.CreateTemplateRequest) error {
	if !req.Intent.Valid() {
		return fmt.Errorf("unknown intent %q", req.Intent)
	}
	if strings.TrimSpace(req.Title) == "" {
		return errors.New("title cannot be empty")
	}
	if strings.TrimSpace(req.Content) == "" {
		return errors.New("content cannot be empty")
	}
	return validateTemplateFields(req.Title, req.Content, req.Tags)
}

// ValidateUpdateTemplate validates a partial template update.
func ValidateUpdateTemplate(req model.UpdateTemplateRequest) error {
	if req.Intent != nil && !req.Intent.Valid() {
		return fmt.Errorf("unknown intent %q", *req.Intent)
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return errors.New("title cannot be empty")
	}
	if req.Content != nil && strings.TrimSpace(*req.Content) == "" {
		return errors.New("content cannot be empty")
	}
	var title, content string
	var tags []string
	if req.Title != nil {
		title = *req.Title
	}
	if req.Content != nil {
		content = *req.Content
	}
	if req.Tags != nil {
		tags = *req.Tags
	}
	return validateTemplateFields(title, content, tags)
}

func validateTemplateFields(title, content string, tags []string) error {
	if len(title) > maxTitleLen {
		return errors.New("title exceeds maximum length")
	}
	if len(content) > maxContentLen {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(title) || !utf8.ValidString(content) {
		return errors.New("template must be valid UTF-8")
	}
	for _, t := range tags {
		if err := ValidateTag(t); err != nil {
			return err
		}
	}
	return nil
}
