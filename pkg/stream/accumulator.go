package stream

import (
	"bytes"
	"strings"
)

// Accumulator reconstructs completion text from streamed bytes fed in
// arbitrary chunk sizes. It maintains a partial-line buffer so a JSON
// payload split across two reads is parsed exactly once, when its
// terminating newline arrives.
//
// Accumulator is not safe for concurrent use; each relayed stream owns one.
type Accumulator struct {
	pending bytes.Buffer
	text    strings.Builder
	usage   *Usage
	ended   bool
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Feed consumes the next chunk of raw stream bytes. Complete lines are
// parsed immediately; a trailing partial line is held until more bytes
// arrive or Finish is called.
func (a *Accumulator) Feed(p []byte) {
	a.pending.Write(p)

	for {
		raw := a.pending.Bytes()
		idx := bytes.IndexByte(raw, '\n')
		if idx < 0 {
			return
		}

		line := make([]byte, idx)
		copy(line, raw[:idx])
		a.pending.Next(idx + 1)

		a.apply(ParseLine(line))
	}
}

// Finish flushes the partial-line buffer. Call it once the upstream signals
// end-of-stream (or the consumer disconnects); afterwards Text and
// FinalUsage reflect everything decodable from the bytes seen.
func (a *Accumulator) Finish() {
	if a.pending.Len() > 0 {
		line := a.pending.Bytes()
		a.pending.Reset()
		a.apply(ParseLine(line))
	}
}

// Text returns the accumulated completion text, in receipt order.
func (a *Accumulator) Text() string {
	return a.text.String()
}

// FinalUsage returns the last usage data observed, or nil. Only the value
// present once the stream has ended is authoritative; mid-stream values are
// incidental.
func (a *Accumulator) FinalUsage() *Usage {
	return a.usage
}

// Ended reports whether a terminator line was observed.
func (a *Accumulator) Ended() bool {
	return a.ended
}

func (a *Accumulator) apply(ev Event) {
	switch ev.Kind {
	case EventContent:
		a.text.WriteString(ev.Content)
		if ev.Usage != nil {
			a.usage = ev.Usage
		}
	case EventEnd:
		a.ended = true
		if ev.Usage != nil {
			a.usage = ev.Usage
		}
	}
}
