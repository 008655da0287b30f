package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/Rrens/gladius/internal/assistant"
	"github.com/Rrens/gladius/internal/audit"
	"github.com/Rrens/gladius/internal/domain"
	"github.com/Rrens/gladius/internal/intel"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Padding(0, 1).
			MarginBottom(1)

	figureStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	replyStyle = lipgloss.NewStyle().
			Padding(0, 2).
			MarginBottom(1)

	disclaimerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("135"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))
)

func renderReport(w io.Writer, reply *domain.AuditReply) {
	fmt.Fprintln(w, titleStyle.Render("GLADIUS · Auditoría"))

	if reply.Figures.PricePerM2 != nil {
		fmt.Fprintln(w, figureStyle.Render("Precio por m²: "+audit.FormatCOP(*reply.Figures.PricePerM2)))
	}
	if reply.Figures.GrossIncome > 0 {
		fmt.Fprintln(w, figureStyle.Render("Ingreso bruto mensual: "+audit.FormatCOP(reply.Figures.GrossIncome)))
	}
	if reply.Intel != nil && reply.Intel.Fallback {
		fmt.Fprintln(w, warnStyle.Render(intel.FallbackNotice))
	}
	fmt.Fprintln(w)

	renderReply(w, reply)
}

func renderReply(w io.Writer, reply *domain.AuditReply) {
	fmt.Fprintln(w, replyStyle.Render(reply.Reply.Content))
	fmt.Fprintln(w, disclaimerStyle.Render(reply.Disclaimer))
	fmt.Fprintln(w)
}

func renderError(w io.Writer, err error) {
	msg := err.Error()

	var cfgErr *assistant.ConfigurationError
	var timeout *assistant.TimeoutError
	switch {
	case errors.As(err, &cfgErr):
		msg = "Configuración incompleta: " + msg
	case errors.As(err, &timeout):
		msg = "El asistente no respondió a tiempo: " + msg
	case errors.Is(err, assistant.ErrNoActiveSession):
		msg = "No hay una auditoría activa. Usa /reset para empezar de nuevo."
	}
	fmt.Fprintln(w, errorStyle.Render(msg))
}
