package model

// RandomnessWebhookRequest is the raw body posted by the randomness oracle. It
// is coerced into RandomnessCallback before reaching the draw logic.
type RandomnessWebhookRequest map[string]any

type RandomnessCallback struct {
	RequestID  string `mapstructure:"requestId"`
	Randomness string `mapstructure:"randomness"`
}

type RandomnessWebhookResponse struct {
	Received bool `json:"received"`
}
