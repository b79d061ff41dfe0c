package stream

import "github.com/tidwall/gjson"

// Usage is the token accounting triple reported by the upstream service.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ExtractUsage shallow-parses a response envelope for a "usage" object.
// Returns nil when the body carries no usage data. Extraction is
// best-effort: anything that is not a well-formed envelope simply yields
// nil, never an error.
func ExtractUsage(body []byte) *Usage {
	if !gjson.ValidBytes(body) {
		return nil
	}

	usage := gjson.GetBytes(body, "usage")
	if !usage.Exists() {
		return nil
	}

	return &Usage{
		PromptTokens:     int(usage.Get("prompt_tokens").Int()),
		CompletionTokens: int(usage.Get("completion_tokens").Int()),
		TotalTokens:      int(usage.Get("total_tokens").Int()),
	}
}
