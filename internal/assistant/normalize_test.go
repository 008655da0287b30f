package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_ChronologicalConcatenation(t *testing.T) {
	messages := []Message{
		assistantMsg("a3", "A3"),
		assistantMsg("a2", "A2"),
		assistantMsg("a1", "A1"),
		userMsg("u2", "U"),
		assistantMsg("a0", "older reply"),
		userMsg("u1", "older question"),
	}

	turn, err := Normalize(messages, "")
	require.NoError(t, err)

	assert.Equal(t, RoleAssistant, turn.Role)
	assert.Equal(t, "A1\n\nA2\n\nA3", turn.Content)
	assert.Equal(t, []string{"A1", "A2", "A3"}, turn.Segments)
	assert.NotContains(t, turn.Content, "U")
	assert.NotContains(t, turn.Content, "older")
	assert.Equal(t, "run_1", turn.RunID)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		messages []Message
		boundary string
		want     string
		wantErr  error
	}{
		{
			name:     "single reply",
			messages: []Message{assistantMsg("a1", "OK"), userMsg("u1", "hi")},
			want:     "OK",
		},
		{
			name:     "list exhausted without user message",
			messages: []Message{assistantMsg("a2", "second"), assistantMsg("a1", "first")},
			want:     "first\n\nsecond",
		},
		{
			name:     "no assistant message before user",
			messages: []Message{userMsg("u2", "again?"), assistantMsg("a1", "old")},
			wantErr:  ErrEmptyReply,
		},
		{
			name:     "empty list",
			messages: nil,
			wantErr:  ErrEmptyReply,
		},
		{
			name:     "blank assistant content",
			messages: []Message{{ID: "a1", Role: RoleAssistant, Parts: []string{"  "}}, userMsg("u1", "q")},
			wantErr:  ErrEmptyReply,
		},
		{
			name: "boundary id stops the scan",
			messages: []Message{
				assistantMsg("a2", "new"),
				{ID: "marker", Role: Role("system"), Parts: []string{"note"}},
				assistantMsg("a1", "stale"),
			},
			boundary: "marker",
			want:     "new",
		},
		{
			name: "non assistant roles are skipped",
			messages: []Message{
				assistantMsg("a2", "two"),
				{ID: "s1", Role: Role("system"), Parts: []string{"ignored"}},
				assistantMsg("a1", "one"),
				userMsg("u1", "q"),
			},
			want: "one\n\ntwo",
		},
		{
			name: "multi part message",
			messages: []Message{
				{ID: "a1", Role: RoleAssistant, Parts: []string{"line one", "line two"}},
				userMsg("u1", "q"),
			},
			want: "line one\nline two",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turn, err := Normalize(tt.messages, tt.boundary)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, turn.Content)
			assert.False(t, turn.CreatedAt.IsZero())
		})
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(RunCreated, RunQueued))
	assert.True(t, CanTransition(RunCreated, RunInProgress))
	assert.True(t, CanTransition(RunQueued, RunInProgress))
	assert.True(t, CanTransition(RunInProgress, RunInProgress))
	assert.True(t, CanTransition(RunInProgress, RunCompleted))
	assert.True(t, CanTransition(RunInProgress, RunFailed))
	assert.False(t, CanTransition(RunCompleted, RunInProgress))
	assert.False(t, CanTransition(RunFailed, RunQueued))
	assert.False(t, CanTransition(RunInProgress, RunQueued))
}

func TestRunStatus_Terminal(t *testing.T) {
	for _, s := range []RunStatus{RunCompleted, RunFailed, RunCancelled, RunExpired, RunIncomplete} {
		assert.True(t, s.Terminal(), s)
	}
	for _, s := range []RunStatus{RunCreated, RunQueued, RunInProgress, RunRequiresAction, RunCancelling, RunStatus("mystery")} {
		assert.False(t, s.Terminal(), s)
	}
}
