// Package stream decodes incremental completion content out of streamed
// response bytes.
//
// Two line-oriented chunk grammars are supported and detected per line:
//
//   - delta envelope: "data: <json>" lines carrying
//     choices[0].delta.content, terminated by "data: [DONE]"
//   - item/end: bare JSON objects per line, {"type":"item","content":...}
//     to append and {"type":"end"} to terminate (optionally with usage)
//
// A stream uses one grammar consistently in practice, but detection never
// assumes it. Lines that parse as neither are skipped silently: partial or
// malformed chunks are expected at byte-stream boundaries and must never
// abort a stream.
package stream
