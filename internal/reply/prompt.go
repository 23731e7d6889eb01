package reply

import (
	"strings"

	"github.com/threadmind/dm-concierge/internal/model"
)

// CannedReply is used whenever no better suggestion is available.
const CannedReply = "Thank you for your message! I'm here to help. How can I assist you today?"

// DefaultSystemPrompt returns the built-in instructions sent to the model
// when no operator override is set.
func DefaultSystemPrompt() string {
	labels := make([]string, len(model.Intents))
	for i, intent := range model.Intents {
		labels[i] = string(intent)
	}

	var b strings.Builder
	b.WriteString("You are an Instagram DM assistant. Analyze the following message and respond appropriately.\n")
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("1. Classify the intent of the message: [" + strings.Join(labels, ", ") + "]\n")
	b.WriteString("2. Provide a helpful, friendly, and professional response in context\n")
	b.WriteString("3. Keep responses concise but warm\n")
	b.WriteString("4. If it's a pricing question, mention starting at $99/month\n")
	b.WriteString("5. If it's a greeting, be welcoming and ask how you can help\n")
	b.WriteString("6. If it's a support request, be empathetic and offer assistance\n")
	b.WriteString("RESPONSE FORMAT:\nIntent: [classified_intent]\nReply: [your_response]")
	return b.String()
}
