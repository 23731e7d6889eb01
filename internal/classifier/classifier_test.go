package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/threadmind/dm-concierge/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want model.Intent
	}{
		{"pricing question", "How much does this cost?", model.IntentPricingInquiry},
		{"pricing beats greeting", "Hello, what's your price?", model.IntentPricingInquiry},
		{"greeting", "Hello there!", model.IntentGreeting},
		{"short greeting word", "hi", model.IntentGreeting},
		{"support", "My account is broken", model.IntentSupportRequest},
		{"sales lead", "I want to buy two", model.IntentSalesLead},
		{"complaint", "This is terrible", model.IntentComplaint},
		{"spam", "stop messaging me", model.IntentSpam},
		{"appointment", "Can we schedule a meeting?", model.IntentAppointment},
		{"feedback", "I'd love to give you feedback", model.IntentFeedback},
		{"partnership", "let's team up on a project", model.IntentPartnership},
		{"question mark", "Are you open on sundays?", model.IntentGeneralInquiry},
		{"interrogative", "where are you located", model.IntentGeneralInquiry},
		{"fallback", "ok thanks", model.IntentOther},
		{"empty", "", model.IntentOther},
		{"case insensitive", "HELLO", model.IntentGreeting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text))
		})
	}
}

func TestClassify_ShortKeywordsNeedWholeWords(t *testing.T) {
	// "this" and "ship" contain "hi" but are not greetings.
	assert.NotEqual(t, model.IntentGreeting, Classify("this ship sails"))
	assert.Equal(t, model.IntentGreeting, Classify("oh hi, friend"))
}

func TestClassify_PriceOrCostAlwaysPricing(t *testing.T) {
	inputs := []string{
		"price",
		"hello! the price please",
		"hi, what does it cost",
		"I hate the cost of this",
		"broken? prices went up",
		"COST",
		"unsubscribe me, your pricing is spam",
		"costume party?",
	}
	for _, in := range inputs {
		assert.Equal(t, model.IntentPricingInquiry, Classify(in), in)
	}
}

func TestClassify_AlwaysReturnsKnownLabel(t *testing.T) {
	inputs := []string{"", " ", "???", "¿qué?", "12345", "\n\t", "🙂", "a very long message without much meaning at all"}
	for _, in := range inputs {
		got := Classify(in)
		assert.True(t, got.Valid(), "unexpected label %q for %q", got, in)
	}
}

func TestCategories_CoverEveryIntent(t *testing.T) {
	cats := Categories()
	assert.Len(t, cats, len(model.Intents))
	for _, intent := range model.Intents {
		info, ok := cats[intent]
		if assert.True(t, ok, intent) {
			assert.NotEmpty(t, info.Name)
			assert.NotEmpty(t, info.Keywords)
		}
	}
}
