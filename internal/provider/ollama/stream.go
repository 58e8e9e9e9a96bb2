package ollama

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/tidwall/gjson"
)

// Decoder reads newline-delimited generate responses from a transport body.
// Lines split across reads are buffered until their newline arrives.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder wraps r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the next chunk, or io.EOF once the body is exhausted.
func (d *Decoder) Next() (api.GenerateResponse, error) {
	for {
		line, readErr := d.r.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			if msg := gjson.GetBytes(line, "error"); msg.Exists() {
				return api.GenerateResponse{}, fmt.Errorf("ollama stream: %s", msg.String())
			}
			var chunk api.GenerateResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				return api.GenerateResponse{}, fmt.Errorf("decode ollama stream line: %w", err)
			}
			return chunk, nil
		}
		if readErr != nil {
			return api.GenerateResponse{}, readErr
		}
	}
}

// Accumulator joins chunk text and repairs the completed output once.
type Accumulator struct {
	profile Profile
	text    strings.Builder
	done    bool
}

// NewAccumulator prepares an accumulator for model's family.
func NewAccumulator(model string) *Accumulator {
	return &Accumulator{profile: ProfileFor(model)}
}

// Add records a chunk and returns its text.
func (a *Accumulator) Add(chunk api.GenerateResponse) string {
	a.text.WriteString(chunk.Response)
	if chunk.Done {
		a.done = true
	}
	return chunk.Response
}

// Done reports whether the final chunk has been seen.
func (a *Accumulator) Done() bool {
	return a.done
}

// Text returns the joined output with the family repair applied.
func (a *Accumulator) Text() string {
	text := a.text.String()
	if a.profile.RequiresRepair {
		return Repair(a.profile.Repair, text)
	}
	return text
}

// Collect drains a stream body, handing each non-empty fragment to onChunk.
func Collect(r io.Reader, model string, onChunk func(string) error) (string, error) {
	dec := NewDecoder(r)
	acc := NewAccumulator(model)
	for !acc.Done() {
		chunk, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if text := acc.Add(chunk); text != "" && onChunk != nil {
			if err := onChunk(text); err != nil {
				return "", err
			}
		}
	}
	return acc.Text(), nil
}
