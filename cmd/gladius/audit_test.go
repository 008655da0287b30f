package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/gladius/internal/assistant"
	"github.com/Rrens/gladius/internal/audit"
	"github.com/Rrens/gladius/internal/domain"
)

// MockRunner mocks the auditRunner interface
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Start(ctx context.Context, deal domain.Deal) (*domain.AuditReply, error) {
	args := m.Called(ctx, deal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuditReply), args.Error(1)
}

func (m *MockRunner) Send(ctx context.Context, id uuid.UUID, text string) (*domain.AuditReply, error) {
	args := m.Called(ctx, id, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuditReply), args.Error(1)
}

func (m *MockRunner) Restart(ctx context.Context, id uuid.UUID) (*domain.AuditReply, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuditReply), args.Error(1)
}

func replyWith(id uuid.UUID, content string) *domain.AuditReply {
	return &domain.AuditReply{
		ID:         id,
		Reply:      assistant.Turn{Role: assistant.RoleAssistant, Content: content},
		Disclaimer: audit.Disclaimer,
	}
}

func TestRunAudit_Conversation(t *testing.T) {
	runner := new(MockRunner)
	deal := domain.Deal{Location: "Chicó", Price: 500_000_000}
	first, second := uuid.New(), uuid.New()

	runner.On("Start", mock.Anything, deal).Return(replyWith(first, "VEREDICTO: NEGOCIAR"), nil).Once()
	runner.On("Send", mock.Anything, first, "¿Y con 70%?").Return(replyWith(first, "Mejora"), nil).Once()
	runner.On("Restart", mock.Anything, first).Return(replyWith(second, "VEREDICTO: COMPRAR"), nil).Once()
	runner.On("Send", mock.Anything, second, "gracias").Return(replyWith(second, "De nada"), nil).Once()

	in := strings.NewReader("¿Y con 70%?\n\n/reset\ngracias\n/exit\nnunca enviado\n")
	var out bytes.Buffer

	require.NoError(t, runAudit(context.Background(), runner, deal, in, &out))

	text := out.String()
	assert.Contains(t, text, "VEREDICTO: NEGOCIAR")
	assert.Contains(t, text, "Mejora")
	assert.Contains(t, text, "VEREDICTO: COMPRAR")
	assert.Contains(t, text, "De nada")
	assert.Contains(t, text, audit.Disclaimer)
	runner.AssertExpectations(t)
}

func TestRunAudit_StartFailure(t *testing.T) {
	runner := new(MockRunner)
	cfgErr := &assistant.ConfigurationError{Missing: []string{"OPENAI_API_KEY", "ASSISTANT_ID"}}
	runner.On("Start", mock.Anything, mock.Anything).Return(nil, cfgErr).Once()

	err := runAudit(context.Background(), runner, domain.Deal{Location: "Suba"}, strings.NewReader(""), &bytes.Buffer{})
	assert.ErrorIs(t, err, cfgErr)
}

func TestRunAudit_FollowUpErrorKeepsLoop(t *testing.T) {
	runner := new(MockRunner)
	id := uuid.New()
	runner.On("Start", mock.Anything, mock.Anything).Return(replyWith(id, "OK"), nil).Once()
	runner.On("Send", mock.Anything, id, "uno").Return(nil, errors.New("connection reset")).Once()
	runner.On("Send", mock.Anything, id, "dos").Return(replyWith(id, "Respuesta dos"), nil).Once()

	var out bytes.Buffer
	require.NoError(t, runAudit(context.Background(), runner, domain.Deal{Location: "Suba"}, strings.NewReader("uno\ndos\n"), &out))

	assert.Contains(t, out.String(), "connection reset")
	assert.Contains(t, out.String(), "Respuesta dos")
}

func TestRenderReport_Figures(t *testing.T) {
	perM2 := 8_333_333.33
	reply := replyWith(uuid.New(), "OK")
	reply.Figures = domain.Figures{PricePerM2: &perM2, GrossIncome: 4_125_000}
	reply.Intel = &domain.IntelSummary{Source: "duckduckgo", Fallback: true}

	var out bytes.Buffer
	renderReport(&out, reply)

	assert.Contains(t, out.String(), "$8,333,333")
	assert.Contains(t, out.String(), "$4,125,000")
	assert.Contains(t, out.String(), "Inteligencia de mercado no disponible")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "gladius dev")
}
