package assistant

import (
	"strings"
	"time"
)

// Separator joins the segments of a multi-message reply
const Separator = "\n\n"

// Turn is one logical entry of the transcript
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Segments  []string  `json:"segments,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserTurn builds a single-segment user turn
func NewUserTurn(text string, at time.Time) Turn {
	return Turn{
		Role:      RoleUser,
		Content:   text,
		Segments:  []string{text},
		CreatedAt: at,
	}
}

// Normalize folds the assistant messages produced since the last user message
// into a single turn. messages must be ordered most recent first, as the
// backend lists them. Scanning stops at the first user message or at the
// message whose id equals boundaryID, whichever comes first.
func Normalize(messages []Message, boundaryID string) (Turn, error) {
	var collected []Message
	for _, m := range messages {
		if m.Role == RoleUser || (boundaryID != "" && m.ID == boundaryID) {
			break
		}
		if m.Role != RoleAssistant {
			continue
		}
		collected = append(collected, m)
	}

	segments := make([]string, 0, len(collected))
	for i := len(collected) - 1; i >= 0; i-- {
		if text := collected[i].Text(); text != "" {
			segments = append(segments, text)
		}
	}
	if len(segments) == 0 {
		return Turn{}, ErrEmptyReply
	}

	newest := collected[0]
	createdAt := newest.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return Turn{
		Role:      RoleAssistant,
		Content:   strings.Join(segments, Separator),
		Segments:  segments,
		RunID:     newest.RunID,
		CreatedAt: createdAt,
	}, nil
}
