package assistant

import "encoding/json"

// Intent is one intent recognized by the assistant.
type Intent struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Classification is the normalized result of a message call.
type Classification struct {
	Intents []Intent
	// Text is the first generic text reply, trimmed. Empty when the assistant
	// produced none.
	Text string
	// NeedsGeneration is set when the response carries the marker intent that
	// hands the turn over to the text generator.
	NeedsGeneration bool
	Raw             json.RawMessage
}

// HasText reports whether the classification carries a usable direct reply.
func (c *Classification) HasText() bool {
	return c != nil && c.Text != ""
}

type messageInput struct {
	Text string `json:"text"`
}

type messageRequest struct {
	Input messageInput `json:"input"`
}
