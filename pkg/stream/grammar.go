package stream

import (
	"bytes"

	"github.com/tidwall/gjson"
)

// EventKind tags the outcome of parsing a single stream line.
type EventKind int

const (
	// EventSkip means the line carried nothing: blank, a comment, or
	// malformed. Skipped lines never alter the accumulator.
	EventSkip EventKind = iota

	// EventContent means the line carried a content fragment to append.
	EventContent

	// EventEnd means the line terminated the stream. An end event may
	// carry usage data.
	EventEnd
)

// Event is the parsed form of one stream line.
type Event struct {
	Kind    EventKind
	Content string
	Usage   *Usage
}

var (
	dataPrefix     = []byte("data:")
	doneTerminator = []byte("[DONE]")
)

// ParseLine interprets one line against both supported chunk grammars.
// Detection is per line: a "data:" prefix selects the delta-envelope
// grammar, a bare JSON object the item/end grammar. Anything else (including
// any line that fails to parse) is a skip, never an error.
func ParseLine(line []byte) Event {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Event{Kind: EventSkip}
	}

	if bytes.HasPrefix(line, dataPrefix) {
		return parseDeltaEnvelope(bytes.TrimSpace(line[len(dataPrefix):]))
	}

	if line[0] == '{' {
		return parseItemEnd(line)
	}

	return Event{Kind: EventSkip}
}

// parseDeltaEnvelope handles "data: <json>" payloads and the "[DONE]"
// terminator literal.
func parseDeltaEnvelope(payload []byte) Event {
	if bytes.Equal(payload, doneTerminator) {
		return Event{Kind: EventEnd}
	}

	if !gjson.ValidBytes(payload) {
		return Event{Kind: EventSkip}
	}

	content := gjson.GetBytes(payload, "choices.0.delta.content")
	if !content.Exists() || content.String() == "" {
		// Role-only or finish-reason chunks carry no content. Usage, when
		// some upstreams attach it to the final chunk, still counts.
		if usage := ExtractUsage(payload); usage != nil {
			return Event{Kind: EventContent, Usage: usage}
		}
		return Event{Kind: EventSkip}
	}

	return Event{
		Kind:    EventContent,
		Content: content.String(),
		Usage:   ExtractUsage(payload),
	}
}

// parseItemEnd handles bare JSON object lines of the item/end grammar.
func parseItemEnd(line []byte) Event {
	if !gjson.ValidBytes(line) {
		return Event{Kind: EventSkip}
	}

	switch gjson.GetBytes(line, "type").String() {
	case "item":
		return Event{
			Kind:    EventContent,
			Content: gjson.GetBytes(line, "content").String(),
		}
	case "end":
		return Event{
			Kind:  EventEnd,
			Usage: ExtractUsage(line),
		}
	default:
		return Event{Kind: EventSkip}
	}
}
