package llm

import (
	"bufio"
	"io"
	"strings"
)

const maxSSELineSize = 1 << 20 // 1 MB

// sseDone signals that the server sent the [DONE] sentinel frame.
var sseDone = io.EOF

// sseScanner reads server-sent-event data payloads from a response body.
// Empty lines and comment lines (starting with ':') are skipped; the
// OpenAI-style "[DONE]" sentinel terminates the stream.
type sseScanner struct {
	scanner *bufio.Scanner
}

func newSSEScanner(r io.Reader) *sseScanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &sseScanner{scanner: scanner}
}

// next returns the next data payload, or io.EOF once the stream is
// exhausted or the [DONE] sentinel arrives.
func (s *sseScanner) next() (string, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		payload, ok := strings.CutPrefix(line, "data:")
		if !ok {
			// Not a data field (event:, id:, retry:); irrelevant here.
			continue
		}
		payload = strings.TrimSpace(payload)
		if payload == "[DONE]" {
			return "", sseDone
		}
		return payload, nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
