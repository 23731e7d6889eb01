package model

// Intent is the classified purpose of an inbound message.
type Intent string

const (
	IntentPricingInquiry Intent = "pricing_inquiry"
	IntentGreeting       Intent = "greeting"
	IntentSupportRequest Intent = "support_request"
	IntentSalesLead      Intent = "sales_lead"
	IntentComplaint      Intent = "complaint"
	IntentSpam           Intent = "spam"
	IntentAppointment    Intent = "appointment"
	IntentFeedback       Intent = "feedback"
	IntentPartnership    Intent = "partnership"
	IntentGeneralInquiry Intent = "general_inquiry"
	IntentOther          Intent = "other"
)

// Intents lists every intent label in classification priority order.
var Intents = []Intent{
	IntentPricingInquiry,
	IntentGreeting,
	IntentSupportRequest,
	IntentSalesLead,
	IntentComplaint,
	IntentSpam,
	IntentAppointment,
	IntentFeedback,
	IntentPartnership,
	IntentGeneralInquiry,
	IntentOther,
}

// Valid reports whether i belongs to the closed intent set.
func (i Intent) Valid() bool {
	for _, known := range Intents {
		if i == known {
			return true
		}
	}
	return false
}

// IntentInfo describes an intent for operators.
type IntentInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}
