// Package openaicompat transcodes the child event stream into OpenAI
// chat-completion-chunk SSE frames (§4.6), the hardest single component in
// the gateway: a stateful "thinking" envelope wrapped around a chunk
// slicer that must never split a UTF-8 code point.
package openaicompat

import "encoding/json"

// Delta carries at most one of Role, Content, or neither (an empty delta,
// used only for the lone finish_reason chunk).
type Delta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// Choice is the sole entry of every chunk's choices array.
type Choice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	LogProbs     *string `json:"logprobs"`
	FinishReason *string `json:"finish_reason"`
}

// Chunk is one OpenAI chat-completion-chunk frame (§4.6.2, §3 OpenAIChunk).
type Chunk struct {
	ID                string   `json:"id"`
	Object            string   `json:"object"`
	Created           int64    `json:"created"`
	Model             string   `json:"model"`
	SystemFingerprint string   `json:"system_fingerprint"`
	Choices           []Choice `json:"choices"`
}

const modelName = "claude-code"

var stop = "stop"

// newChunk builds a chunk with the given delta and finish reason (nil for
// "still streaming"). created is captured by the caller in Unix seconds,
// per chunk, as §4.6.4 requires.
func newChunk(id, fingerprint string, created int64, delta Delta, finished bool) Chunk {
	var fr *string
	if finished {
		fr = &stop
	}
	return Chunk{
		ID:                id,
		Object:            "chat.completion.chunk",
		Created:           created,
		Model:             modelName,
		SystemFingerprint: fingerprint,
		Choices: []Choice{{
			Index:        0,
			Delta:        delta,
			LogProbs:     nil,
			FinishReason: fr,
		}},
	}
}

// Marshal renders a chunk as compact JSON for the SSE data field.
func Marshal(c Chunk) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// SliceContent splits s into fixed-size slices on UTF-8 code-point
// boundaries (§4.6.4), never bytes. sliceSize <= 0 falls back to 100.
func SliceContent(s string, sliceSize int) []string {
	if sliceSize <= 0 {
		sliceSize = 100
	}
	runes := []rune(s)
	if len(runes) == 0 {
		return nil
	}
	var out []string
	for i := 0; i < len(runes); i += sliceSize {
		end := i + sliceSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}
