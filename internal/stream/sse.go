// Package stream implements the Stream Decoder: it turns a provider's raw
// SSE or NDJSON byte stream into the unified models.StreamEvent sequence,
// independent of any particular provider SDK's own stream client. Owning
// this layer in-tree (rather than delegating to a vendor SDK's .Recv())
// is what lets one decoder implementation serve every provider family.
package stream

import (
	"bufio"
	"bytes"
	"io"
)

// doneMarker is the literal SSE payload that cleanly terminates an
// OpenAI-family stream.
const doneMarker = "[DONE]"

// SSEReader splits a text/event-stream byte source into successive
// `data:` payloads. Blank-line-terminated records are the unit; malformed
// or unrecognized lines are skipped, never fatal, per spec.
type SSEReader struct {
	scanner *bufio.Scanner
	done    bool
}

// NewSSEReader wraps a response body (or any io.Reader) for SSE framing.
func NewSSEReader(r io.Reader) *SSEReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &SSEReader{scanner: scanner}
}

// Next returns the next data payload and a nil error; returns
// io.EOF once the stream ends (including after the literal [DONE]
// sentinel, after which Next always returns io.EOF).
func (s *SSEReader) Next() ([]byte, error) {
	if s.done {
		return nil, io.EOF
	}
	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue // skip comments, event:, id:, retry: lines
		}
		payload := bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))
		if string(payload) == doneMarker {
			s.done = true
			return nil, io.EOF
		}
		if len(payload) == 0 {
			continue
		}
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	s.done = true
	return nil, io.EOF
}
