package stream

import "github.com/tidwall/gjson"

// ExtractMessageContent shallow-parses a buffered completion envelope for
// the assistant text at choices[0].message.content. Returns "" when the
// body is not a well-formed envelope; best-effort like ExtractUsage.
func ExtractMessageContent(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	return gjson.GetBytes(body, "choices.0.message.content").String()
}
