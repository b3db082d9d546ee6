package generation

// Request is the body of a text generation call.
type Request struct {
	Input       string      `json:"input"`
	Parameters  Parameters  `json:"parameters"`
	ModelID     string      `json:"model_id"`
	ProjectID   string      `json:"project_id"`
	Moderations Moderations `json:"moderations"`
}

// Parameters controls decoding.
type Parameters struct {
	DecodingMethod    string   `json:"decoding_method"`
	MaxNewTokens      int      `json:"max_new_tokens"`
	StopSequences     []string `json:"stop_sequences"`
	RepetitionPenalty float64  `json:"repetition_penalty"`
}

// Moderations requests upstream hate/abuse/profanity and personal
// information filtering.
type Moderations struct {
	HAP ModerationPolicy `json:"hap"`
	PII ModerationPolicy `json:"pii"`
}

// ModerationPolicy applies a moderation to both sides of the exchange.
type ModerationPolicy struct {
	Input  ModerationSettings `json:"input"`
	Output ModerationSettings `json:"output"`
}

// ModerationSettings configures one moderation direction.
type ModerationSettings struct {
	Enabled   bool    `json:"enabled"`
	Threshold float64 `json:"threshold"`
	Mask      Mask    `json:"mask"`
}

// Mask controls redaction of detected entities.
type Mask struct {
	RemoveEntityValue bool `json:"remove_entity_value"`
}

// Response is the body of a successful generation call.
type Response struct {
	ModelID string   `json:"model_id"`
	Results []Result `json:"results"`
}

// Result is one generated candidate.
type Result struct {
	GeneratedText   string `json:"generated_text"`
	GeneratedTokens int    `json:"generated_token_count"`
	InputTokenCount int    `json:"input_token_count"`
	StopReason      string `json:"stop_reason"`
}

func newModerationPolicy(threshold float64) ModerationPolicy {
	settings := ModerationSettings{
		Enabled:   true,
		Threshold: threshold,
		Mask:      Mask{RemoveEntityValue: true},
	}
	return ModerationPolicy{Input: settings, Output: settings}
}
