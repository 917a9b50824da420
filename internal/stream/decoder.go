// Package stream implements the client side of the relay wire format: a
// decoder for the frame stream served by POST /api/chat and a cancellable
// client that consumes it.
package stream

import (
	"encoding/json"
	"errors"
	"io"
	"iter"
	"strings"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
)

type deltaEnvelope struct {
	Content string `json:"content"`
}

// Deltas decodes the relay's frame stream into a finite, ordered sequence of
// content deltas. The iterator is single-use.
//
// Frames may be split anywhere by the underlying reader; a buffer carries the
// trailing partial line across reads. A line is significant only when it starts
// with "data: "; the "[DONE]" sentinel terminates the sequence, payloads that
// are not valid JSON or carry no content are dropped. End of input without the
// sentinel ends the sequence cleanly, discarding any buffered partial line.
func Deltas(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		buf := make([]byte, 4096)
		var pending string
		for {
			n, readErr := r.Read(buf)
			if n > 0 {
				pending += string(buf[:n])
				lines := strings.Split(pending, "\n")
				pending = lines[len(lines)-1]
				for _, line := range lines[:len(lines)-1] {
					payload, ok := strings.CutPrefix(line, dataPrefix)
					if !ok {
						continue
					}
					if payload == doneSentinel {
						return
					}
					var env deltaEnvelope
					if err := json.Unmarshal([]byte(payload), &env); err != nil {
						continue
					}
					if env.Content == "" {
						continue
					}
					if !yield(env.Content, nil) {
						return
					}
				}
			}
			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					return
				}
				yield("", readErr)
				return
			}
		}
	}
}
