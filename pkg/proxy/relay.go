package proxy

import (
	"context"
	"io"
	"net/http"

	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/stream"
)

// relayChunkBytes is the read buffer size for the streaming relay. One
// buffer is the only in-flight data: the loop blocks on the caller's write
// before reading the next chunk, so a slow caller backpressures upstream.
const relayChunkBytes = 32 * 1024

// streamResult is the terminal state of one streaming relay.
type streamResult struct {
	// text is the content reconstructed from successfully parsed chunks,
	// complete on clean end-of-stream and partial otherwise.
	text string

	// usage is the final token usage, nil when the stream never reported
	// any.
	usage *stream.Usage

	// ended reports whether the stream's own terminator was seen.
	ended bool

	// bytesSent counts bytes delivered to the caller.
	bytesSent int64

	// disconnected is set when the caller stopped receiving before
	// end-of-stream.
	disconnected bool

	// err is the read or write failure that ended the relay early.
	err error
}

// relayStream pumps the upstream body to the caller, chunk by chunk, while
// feeding a shadow accumulator. Each chunk is written and flushed before
// the next read, preserving byte order, arrival pacing, and backpressure.
//
// On a caller disconnect the loop stops immediately rather than draining
// the upstream; closing the body releases the upstream connection. The
// accumulator then reflects exactly what was delivered.
func relayStream(ctx context.Context, w http.ResponseWriter, body io.ReadCloser) streamResult {
	defer body.Close()

	flusher, _ := w.(http.Flusher)
	acc := stream.NewAccumulator()

	var res streamResult
	buf := make([]byte, relayChunkBytes)

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			written, writeErr := w.Write(buf[:n])
			res.bytesSent += int64(written)
			acc.Feed(buf[:written])
			if writeErr != nil {
				res.disconnected = true
				res.err = writeErr
				break
			}
			if flusher != nil {
				flusher.Flush()
			}
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			// A canceled request context surfaces as a read error on the
			// upstream body; that is the caller disconnecting, not an
			// upstream fault.
			if ctx.Err() != nil {
				res.disconnected = true
			}
			res.err = readErr
			break
		}
	}

	acc.Finish()
	res.text = acc.Text()
	res.usage = acc.FinalUsage()
	res.ended = acc.Ended()

	return res
}

// finalizeContext returns a context for post-terminal persistence (audit,
// message finalize). It survives the caller's cancellation: a disconnect
// must not prevent the record of what was delivered.
func finalizeContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
