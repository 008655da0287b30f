package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Rrens/gladius/internal/config"
	"github.com/Rrens/gladius/internal/domain"
	"github.com/Rrens/gladius/internal/logging"
	"github.com/Rrens/gladius/internal/repository/memory"
	"github.com/Rrens/gladius/internal/service"
)

const (
	commandReset = "/reset"
	commandExit  = "/exit"
)

var (
	dealFlags   domain.Deal
	typology    string
	strategy    string
	occupancy   int
	interactive bool
)

// auditRunner is the part of service.AuditService the terminal loop drives
type auditRunner interface {
	Start(ctx context.Context, deal domain.Deal) (*domain.AuditReply, error)
	Send(ctx context.Context, id uuid.UUID, text string) (*domain.AuditReply, error)
	Restart(ctx context.Context, id uuid.UUID) (*domain.AuditReply, error)
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit a deal and chat about the report",
	Long: `Open an audit for the deal described by the flags and print the report.

Afterwards type follow-up questions at the prompt. Commands:
  /reset   discard the conversation and audit the deal again
  /exit    quit (Ctrl-D works too)`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deal := dealFlags
		deal.Typology = domain.Typology(typology)
		deal.Strategy = domain.Strategy(strategy)
		if cmd.Flags().Changed("occupancy") {
			v := occupancy
			deal.Occupancy = &v
		}

		_ = godotenv.Load()
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		logCfg := cfg.Logging
		logCfg.Format = "console"
		if !verbose {
			logCfg.Level = "warn"
		}
		closer, err := logging.Setup(logCfg, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer closer.Close()

		llmRouter := service.NewLLMRouter(cfg.LLM)
		sessions, err := service.NewSessions(cfg.Assistant, llmRouter)
		if err != nil {
			return err
		}
		defer sessions.Close()

		svc := service.NewAuditService(
			memory.NewAuditRepository(),
			sessions.New,
			service.NewIntelGatherer(cfg.Intel, llmRouter, nil),
			0, 0,
		)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var in io.Reader = cmd.InOrStdin()
		if !interactive {
			in = strings.NewReader("")
		}
		return runAudit(ctx, svc, deal, in, cmd.OutOrStdout())
	},
}

func init() {
	f := auditCmd.Flags()
	f.StringVar(&dealFlags.Location, "location", "", "Location of the property (required)")
	f.Int64Var(&dealFlags.Price, "price", 0, "Purchase price in COP (required)")
	f.Float64Var(&dealFlags.Area, "area", 0, "Area in m2 (at least 10)")
	f.Int64Var(&dealFlags.AdminFee, "admin", 0, "Monthly administration fee")
	f.StringVar(&typology, "typology", string(domain.TypologyFamily), "Typology: family, micro_living, renovation, off_plan")
	f.StringVar(&strategy, "strategy", string(domain.StrategyTraditionalRent), "Strategy: traditional_rent, short_term_rent, own_use")
	f.Int64Var(&dealFlags.NightlyRate, "nightly-rate", 0, "Average nightly rate (short_term_rent)")
	f.IntVar(&occupancy, "occupancy", domain.DefaultOccupancy, "Estimated occupancy % (short_term_rent)")
	f.Int64Var(&dealFlags.MonthlyRent, "rent", 0, "Expected monthly rent")
	f.Int64Var(&dealFlags.Capital, "capital", 0, "Available capital")
	f.BoolVarP(&interactive, "interactive", "i", true, "Ask follow-up questions after the report")

	rootCmd.AddCommand(auditCmd)
}

// runAudit prints the opening report, then relays follow-up questions read
// from in until /exit, end of input or ctx is done.
func runAudit(ctx context.Context, svc auditRunner, deal domain.Deal, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, statusStyle.Render("Auditing "+strings.TrimSpace(deal.Location)+"..."))

	reply, err := svc.Start(ctx, deal)
	if err != nil {
		return err
	}
	renderReport(out, reply)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	id := reply.ID
	for {
		fmt.Fprint(out, promptStyle.Render("gladius> "))

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "":
			continue
		case commandExit:
			return nil
		case commandReset:
			fmt.Fprintln(out, statusStyle.Render("Conversation reset. Auditing again..."))
			reply, err := svc.Restart(ctx, id)
			if err != nil {
				renderError(out, err)
				continue
			}
			id = reply.ID
			renderReport(out, reply)
		default:
			reply, err := svc.Send(ctx, id, line)
			if err != nil {
				renderError(out, err)
				continue
			}
			renderReply(out, reply)
		}
	}
}
