package llm

import (
	"errors"
	"strings"
)

// ErrNoUserMessage is returned when a conversation does not end with a user message
var ErrNoUserMessage = errors.New("conversation must end with a user message")

// WithSystem returns the conversation with the system instruction prepended
func WithSystem(req Request) []Message {
	messages := make([]Message, 0, len(req.Messages)+1)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: req.System})
	}
	return append(messages, req.Messages...)
}

// SplitLast separates the history from the trailing user message
func SplitLast(messages []Message) ([]Message, Message, error) {
	if len(messages) == 0 || messages[len(messages)-1].Role != RoleUser {
		return nil, Message{}, ErrNoUserMessage
	}
	last := len(messages) - 1
	return messages[:last], messages[last], nil
}

// Temperature returns the request temperature or the default. Zero is a valid choice.
func Temperature(req Request) float64 {
	if req.Temperature == nil {
		return DefaultTemperature
	}
	return *req.Temperature
}

// CleanReply strips surrounding whitespace and a single enclosing markdown fence
func CleanReply(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") || !strings.HasSuffix(content, "```") || len(content) < 6 {
		return content
	}

	inner := content[3 : len(content)-3]
	// Skip the language tag after the opening fence
	if nl := strings.IndexByte(inner, '\n'); nl != -1 && !strings.ContainsAny(inner[:nl], " \t") {
		inner = inner[nl+1:]
	}
	return strings.TrimSpace(inner)
}
