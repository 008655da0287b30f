package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/gladius/internal/api/response"
	"github.com/Rrens/gladius/internal/assistant"
	"github.com/Rrens/gladius/internal/audit"
	"github.com/Rrens/gladius/internal/domain"
	"github.com/Rrens/gladius/internal/service"
)

var validate = validator.New()

// AuditService is the part of service.AuditService the handlers drive
type AuditService interface {
	Start(ctx context.Context, deal domain.Deal) (*domain.AuditReply, error)
	Send(ctx context.Context, id uuid.UUID, text string) (*domain.AuditReply, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.AuditView, error)
	Reset(ctx context.Context, id uuid.UUID) error
	Restart(ctx context.Context, id uuid.UUID) (*domain.AuditReply, error)
}

// AuditHandler handles audit endpoints
type AuditHandler struct {
	auditService AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// Create handles opening a new audit from a deal form
func (h *AuditHandler) Create(w http.ResponseWriter, r *http.Request) {
	var deal domain.Deal
	if err := json.NewDecoder(r.Body).Decode(&deal); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	result, err := h.auditService.Start(r.Context(), deal)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, result)
}

// Get returns the transcript of an audit
func (h *AuditHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := auditID(w, r)
	if !ok {
		return
	}

	view, err := h.auditService.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, view)
}

// SendMessage handles a follow-up question
func (h *AuditHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := auditID(w, r)
	if !ok {
		return
	}

	var input domain.MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			fields := make(map[string]string)
			for _, e := range validationErrors {
				switch e.Tag() {
				case "required":
					fields["text"] = "is required"
				case "max":
					fields["text"] = "must be at most " + e.Param() + " characters"
				default:
					fields["text"] = "validation failed on " + e.Tag()
				}
			}
			response.BadRequest(w, fields)
			return
		}
		response.BadRequest(w, err.Error())
		return
	}

	result, err := h.auditService.Send(r.Context(), id, input.Text)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, result)
}

// Restart resets an audit and runs it again with the same deal
func (h *AuditHandler) Restart(w http.ResponseWriter, r *http.Request) {
	id, ok := auditID(w, r)
	if !ok {
		return
	}

	result, err := h.auditService.Restart(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, result)
}

// Delete resets an audit. Repeated calls succeed.
func (h *AuditHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := auditID(w, r)
	if !ok {
		return
	}

	if err := h.auditService.Reset(r.Context(), id); err != nil && !errors.Is(err, domain.ErrAuditNotFound) {
		writeError(w, err)
		return
	}

	response.NoContent(w)
}

func auditID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "auditID"))
	if err != nil {
		response.BadRequest(w, "invalid audit ID")
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps service and session errors to HTTP statuses
func writeError(w http.ResponseWriter, err error) {
	var (
		validationErr *audit.ValidationError
		configErr     *assistant.ConfigurationError
		timeoutErr    *assistant.TimeoutError
		backendErr    *assistant.BackendError
	)

	switch {
	case errors.As(err, &validationErr):
		response.BadRequest(w, validationErr.Fields)
	case errors.Is(err, domain.ErrAuditNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, assistant.ErrNoActiveSession),
		errors.Is(err, assistant.ErrSessionActive),
		errors.Is(err, assistant.ErrTurnInProgress):
		response.Conflict(w, err.Error())
	case errors.Is(err, service.ErrTooManySessions):
		response.TooManyRequests(w, err.Error())
	case errors.As(err, &configErr):
		response.ServiceUnavailable(w, err.Error())
	case errors.As(err, &timeoutErr),
		errors.Is(err, context.DeadlineExceeded):
		response.GatewayTimeout(w, err.Error())
	case errors.As(err, &backendErr),
		errors.Is(err, assistant.ErrEmptyReply):
		response.BadGateway(w, err.Error())
	case errors.Is(err, context.Canceled):
		response.Error(w, statusClientClosedRequest, err.Error())
	default:
		log.Error().Err(err).Msg("Unhandled audit error")
		response.InternalError(w, err.Error())
	}
}

// statusClientClosedRequest reports a request abandoned by the caller
const statusClientClosedRequest = 499
