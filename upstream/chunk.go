package upstream

import (
	"bytes"
	"encoding/json"
	"strings"
)

const (
	doneMarker = "[DONE]"

	fieldData  = "data"
	fieldEvent = "event"
	eventError = "error"
)

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

type completionChunk struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	// Providers send either an error object or a bare string here.
	Error json.RawMessage `json:"error"`
}

// parseLine splits an SSE line into its field name and value. ok is false
// for comments and blank lines.
func parseLine(line string) (field, value string, ok bool) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" || strings.HasPrefix(line, ":") {
		return "", "", false
	}
	field, value, _ = strings.Cut(line, ":")
	return field, strings.TrimSpace(value), true
}

func decodeChunk(payload string) (Chunk, error) {
	var cc completionChunk
	if err := json.Unmarshal([]byte(payload), &cc); err != nil {
		return Chunk{}, err
	}
	if perr := decodeProviderError(cc.Error); perr != nil {
		return Chunk{}, perr
	}

	var c Chunk
	if len(cc.Choices) > 0 {
		choice := cc.Choices[0]
		c.Reasoning = choice.Delta.ReasoningContent
		c.Content = choice.Delta.Content
		if choice.FinishReason != nil {
			c.FinishReason = *choice.FinishReason
		}
	}
	return c, nil
}

// decodeProviderError interprets an in-band error value. Absent, null,
// false and empty values mean no error; anything else is a failure.
func decodeProviderError(raw json.RawMessage) *ProviderError {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "", "null", "false", `""`, "{}":
		return nil
	}

	var perr ProviderError
	if raw[0] == '{' && json.Unmarshal(raw, &perr) == nil && perr.Message != "" {
		return &perr
	}
	var text string
	if json.Unmarshal(raw, &text) == nil {
		return &ProviderError{Message: text}
	}
	return &ProviderError{Message: string(raw)}
}

// errorEventPayload builds the error carried by an SSE "event: error"
// block. The data may be a JSON error envelope, a bare error object or text.
func errorEventPayload(payload string) *ProviderError {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal([]byte(payload), &envelope) == nil {
		if perr := decodeProviderError(envelope.Error); perr != nil {
			return perr
		}
	}
	if perr := decodeProviderError(json.RawMessage(payload)); perr != nil {
		return perr
	}
	return &ProviderError{Message: "provider reported an error"}
}
