package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/electrooms/internal/messenger"
	"github.com/roach88/electrooms/internal/participants"
	"github.com/roach88/electrooms/internal/provision"
	"github.com/roach88/electrooms/internal/store"
	"github.com/roach88/electrooms/internal/text"
)

// ManageOptions holds flags for the manage command.
type ManageOptions struct {
	*RootOptions
	Round          int
	Participants   int
	Groups         int
	LastRound      bool
	Height         int64
	Database       string
	DryRun         bool
	LedgerSnapshot string
	MetricsFile    string

	// Messenger overrides the platform client (for testing).
	// If nil, the configured gateway or a dry-run Recorder is used.
	Messenger messenger.Messenger

	// RunIDs overrides the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs provision.RunIDGenerator

	// Sleeper overrides the rate-limit wait (for testing).
	Sleeper messenger.Sleeper
}

// NewManageCommand creates the manage command.
func NewManageCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ManageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "manage",
		Short: "Allocate a round into rooms and provision their chats",
		Long: `Allocate the participants of a round of the latest election into rooms
and create a group chat for every room that does not have one yet.

Running manage again for a round that is fully provisioned does nothing.
Rooms provisioned by an earlier, interrupted run are skipped.

Example:
  electrooms manage --config electrooms.yaml --round 0 --participants 42 --groups 7
  electrooms manage --round 3 --participants 5 --groups 1 --last-round
  electrooms manage --round 0 --participants 8 --groups 2 --dry-run --ledger-snapshot ledger.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runManage(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Round, "round", 0, "election round, starting at 0 (required)")
	cmd.Flags().IntVar(&opts.Participants, "participants", 0, "number of participants in the round (required)")
	cmd.Flags().IntVar(&opts.Groups, "groups", 0, "number of rooms (required)")
	cmd.Flags().BoolVar(&opts.LastRound, "last-round", false, "the round is the chief delegates round")
	cmd.Flags().Int64Var(&opts.Height, "height", 0, "ledger height to read participants at (default: latest)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "record platform calls instead of sending them")
	cmd.Flags().StringVar(&opts.LedgerSnapshot, "ledger-snapshot", "", "read participants from a YAML snapshot instead of the ledger")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write run metrics to this file (Prometheus text format)")
	_ = cmd.MarkFlagRequired("round")
	_ = cmd.MarkFlagRequired("participants")
	_ = cmd.MarkFlagRequired("groups")

	return cmd
}

func runManage(opts *ManageOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return outputCommandError(formatter, ErrCodeInvalidConfig, err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	logger := setupLogging(opts.RootOptions, cmd.ErrOrStderr())

	req := provision.Request{
		Round:           opts.Round,
		NumParticipants: opts.Participants,
		NumGroups:       opts.Groups,
		IsLastRound:     opts.LastRound,
	}
	if cmd.Flags().Changed("height") {
		height := opts.Height
		req.Height = &height
	}

	reader, err := ledgerReader(cfg, opts.LedgerSnapshot)
	if err != nil {
		return outputCommandError(formatter, ErrCodeInvalidConfig, err)
	}

	var recorder *messenger.Recorder
	msgr := opts.Messenger
	if msgr == nil {
		msgr, recorder, err = platform(cfg, opts.DryRun)
		if err != nil {
			return outputCommandError(formatter, ErrCodeInvalidConfig, err)
		}
	}
	throttledOpts := []messenger.ThrottledOption{
		messenger.WithCallTimeout(cfg.Messenger.CallTimeout()),
		messenger.WithLogger(logger),
	}
	if opts.Sleeper != nil {
		throttledOpts = append(throttledOpts, messenger.WithSleeper(opts.Sleeper))
	}
	msgr = messenger.NewThrottled(msgr, throttledOpts...)

	catalog, err := text.New(cfg.Language)
	if err != nil {
		return outputCommandError(formatter, ErrCodeInvalidConfig, err)
	}

	logger.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return outputCommandError(formatter, ErrCodeStore, err)
	}
	defer st.Close()

	metrics := provision.NewMetrics()
	source := participants.NewSource(reader, st,
		participants.WithLogger(logger),
		participants.WithSkipHook(metrics.ParticipantSkipped))

	orchOpts := []provision.Option{
		provision.WithLogger(logger),
		provision.WithMetrics(metrics),
		provision.WithCatalog(catalog),
	}
	if opts.RunIDs != nil {
		orchOpts = append(orchOpts, provision.WithRunIDs(opts.RunIDs))
	}
	orch, err := provision.New(st, source, msgr, cfg.Provision(), orchOpts...)
	if err != nil {
		return outputCommandError(formatter, ErrCodeInvalidConfig, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, manageErr := orch.Manage(ctx, req)

	if opts.MetricsFile != "" {
		if err := metrics.WriteTextfile(opts.MetricsFile); err != nil {
			logger.Warn("failed to write metrics file", "path", opts.MetricsFile, "error", err)
		}
	}

	if manageErr != nil {
		return outputManageFailure(formatter, report, manageErr)
	}
	return outputManageSuccess(formatter, report, recorder)
}

// manageResult is the JSON payload of a successful run.
type manageResult struct {
	*provision.Report
	DryRunCalls *int `json:"dry_run_calls,omitempty"`
}

func outputManageSuccess(formatter *OutputFormatter, report *provision.Report, recorder *messenger.Recorder) error {
	var calls *int
	if recorder != nil {
		n := len(recorder.Calls())
		calls = &n
	}

	if formatter.Format == "json" {
		return formatter.Success(manageResult{Report: report, DryRunCalls: calls})
	}

	w := formatter.Writer
	if report.AlreadyProvisioned {
		fmt.Fprintf(w, "✓ Round %d of election %d already provisioned, nothing to do (run %s)\n",
			report.Round, report.ElectionID, report.RunID)
		return nil
	}

	fmt.Fprintf(w, "✓ Round %d of election %d: %d room(s) provisioned, %d skipped (run %s)\n",
		report.Round, report.ElectionID, report.Provisioned(), len(report.Rooms)-report.Provisioned(), report.RunID)
	writeReport(w, report)
	if calls != nil {
		fmt.Fprintf(w, "\nDry run: %d platform call(s) recorded, nothing was sent\n", *calls)
	}
	return nil
}

func outputManageFailure(formatter *OutputFormatter, report *provision.Report, err error) error {
	code := ErrCodeProvisioning
	if c, ok := provision.CodeOf(err); ok {
		code = string(c)
	}

	if formatter.Format == "json" {
		resp := CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: err.Error(), Details: report},
		}
		if report != nil {
			resp.RunID = report.RunID
		}
		_ = json.NewEncoder(formatter.Writer).Encode(resp)
	} else {
		fmt.Fprintf(formatter.Writer, "✗ Provisioning failed [%s]\n", code)
		if report != nil && len(report.Rooms) > 0 {
			fmt.Fprintln(formatter.Writer)
			writeReport(formatter.Writer, report)
		}
	}

	// A rejected request is a usage error, everything else a failed run.
	exitCode := ExitFailure
	if code == string(provision.ErrCodeInvalidRequest) {
		exitCode = ExitCommandError
	}
	return WrapExitError(exitCode, "provisioning failed", err)
}

// writeReport prints one line per room followed by the step failures.
func writeReport(w io.Writer, report *provision.Report) {
	for _, room := range report.Rooms {
		fmt.Fprintf(w, "  [%d] %-40s chat %-8d %-11s %d member(s)\n",
			room.Index, room.NameShort, room.ChatID, room.Status, room.Members)
		if len(room.MissingHandles) > 0 {
			fmt.Fprintf(w, "      not added: %v\n", room.MissingHandles)
		}
	}
	if len(report.Failures) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Step failures:")
	for _, f := range report.Failures {
		target := f.Target
		if target == "" {
			target = "-"
		}
		fmt.Fprintf(w, "  [%d] %s %s: %s\n", f.RoomIndex, f.Step, target, f.Error)
	}
}

// outputCommandError reports a failure that happened before provisioning
// started.
func outputCommandError(formatter *OutputFormatter, code string, err error) error {
	_ = formatter.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, code, err)
}
