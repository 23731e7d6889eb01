// Package classifier maps raw message text to an intent label.
package classifier

import (
	"strings"
	"unicode"

	"github.com/threadmind/dm-concierge/internal/model"
)

// Keywords of this length or shorter only match whole words.
const shortKeywordLen = 3

type rule struct {
	intent   model.Intent
	keywords []string
}

// Rules are evaluated in order and the first match wins.
var rules = []rule{
	{model.IntentPricingInquiry, []string{"price", "cost", "how much", "rate", "pricing", "fee", "charge", "budget", "afford", "expensive", "cheap"}},
	{model.IntentGreeting, []string{"hello", "hi", "hey", "greetings", "good morning", "good afternoon", "good evening", "sup", "yo"}},
	{model.IntentSupportRequest, []string{"help", "support", "issue", "problem", "trouble", "broken", "not working", "error", "fix", "resolve"}},
	{model.IntentSalesLead, []string{"buy", "interested", "purchase", "order", "sign up", "subscribe", "get started", "book", "reserve", "want to buy"}},
	{model.IntentComplaint, []string{"bad", "complaint", "angry", "disappointed", "upset", "frustrated", "terrible", "awful", "hate", "worst", "unhappy"}},
	{model.IntentSpam, []string{"spam", "unsubscribe", "stop", "remove", "delete", "block", "report"}},
	{model.IntentAppointment, []string{"appointment", "schedule", "book", "reserve", "meeting", "call", "consultation", "session"}},
	{model.IntentFeedback, []string{"feedback", "review", "rating", "opinion", "thoughts", "suggestions", "improve", "better"}},
	{model.IntentPartnership, []string{"partnership", "collaborate", "work together", "joint", "team up", "business", "opportunity", "deal"}},
}

var interrogatives = []string{"what", "when", "where", "why", "how", "who", "which"}

// Classify returns the intent of text. It always returns a label from
// model.Intents.
func Classify(text string) model.Intent {
	text = strings.ToLower(strings.TrimSpace(text))
	words := wordSet(text)

	for _, r := range rules {
		if matchesAny(text, words, r.keywords) {
			return r.intent
		}
	}

	if strings.HasSuffix(text, "?") || matchesAny(text, words, interrogatives) {
		return model.IntentGeneralInquiry
	}

	return model.IntentOther
}

func matchesAny(text string, words map[string]struct{}, keywords []string) bool {
	for _, kw := range keywords {
		if len(kw) <= shortKeywordLen {
			if _, ok := words[kw]; ok {
				return true
			}
			continue
		}
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func wordSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		words[f] = struct{}{}
	}
	return words
}

// Categories returns the operator-facing description of every intent.
func Categories() map[model.Intent]model.IntentInfo {
	return map[model.Intent]model.IntentInfo{
		model.IntentGreeting: {
			Name:        "Greeting",
			Description: "Initial contact, hellos, introductions",
			Keywords:    []string{"hello", "hi", "hey", "greetings", "good morning"},
		},
		model.IntentPricingInquiry: {
			Name:        "Pricing Inquiry",
			Description: "Questions about costs, rates, pricing",
			Keywords:    []string{"price", "cost", "how much", "rate", "pricing"},
		},
		model.IntentSupportRequest: {
			Name:        "Support Request",
			Description: "Help requests, technical issues, problems",
			Keywords:    []string{"help", "support", "issue", "problem", "trouble"},
		},
		model.IntentSalesLead: {
			Name:        "Sales Lead",
			Description: "Purchase interest, buying intent, orders",
			Keywords:    []string{"buy", "interested", "purchase", "order", "sign up"},
		},
		model.IntentComplaint: {
			Name:        "Complaint",
			Description: "Negative feedback, complaints, dissatisfaction",
			Keywords:    []string{"bad", "complaint", "angry", "disappointed", "upset"},
		},
		model.IntentSpam: {
			Name:        "Spam",
			Description: "Unwanted messages, unsubscribe requests",
			Keywords:    []string{"spam", "unsubscribe", "stop", "remove", "block"},
		},
		model.IntentAppointment: {
			Name:        "Appointment",
			Description: "Scheduling requests, bookings, meetings",
			Keywords:    []string{"appointment", "schedule", "book", "meeting", "call"},
		},
		model.IntentFeedback: {
			Name:        "Feedback",
			Description: "Reviews, ratings, suggestions, opinions",
			Keywords:    []string{"feedback", "review", "rating", "opinion", "thoughts"},
		},
		model.IntentPartnership: {
			Name:        "Partnership",
			Description: "Business opportunities, collaborations, deals",
			Keywords:    []string{"partnership", "collaborate", "work together", "business"},
		},
		model.IntentGeneralInquiry: {
			Name:        "General Inquiry",
			Description: "General questions, information requests",
			Keywords:    []string{"what", "when", "where", "why", "how", "who"},
		},
		model.IntentOther: {
			Name:        "Other",
			Description: "Miscellaneous messages, unclear intent",
			Keywords:    []string{"fallback", "miscellaneous", "unclear"},
		},
	}
}
