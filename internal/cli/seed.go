package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/electrooms/internal/domain"
	"github.com/roach88/electrooms/internal/store"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	ParticipantsFile string
	StartsAt         string
	Description      string
	Database         string

	// Now overrides the clock used when --starts-at is not set (for testing).
	Now func() time.Time
}

// seedParticipant is one entry of the participants file.
type seedParticipant struct {
	Account  string `yaml:"account" validate:"required"`
	Name     string `yaml:"name"`
	Telegram string `yaml:"telegram" validate:"omitempty,min=2"`
}

// seedResult is the JSON payload of the seed command.
type seedResult struct {
	ElectionID    int64     `json:"election_id"`
	StartsAt      time.Time `json:"starts_at"`
	PreelectionID int64     `json:"preelection_room_id"`
	Participants  int       `json:"participants"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create an election and register its participants",
		Long: `Create a new election with its preelection room, register the participants
listed in a YAML file and place them in the preelection room.

The file is a list of participants:

  - account: alice
    name: Alice
    telegram: "@alice"
  - account: bob

Example:
  electrooms seed --participants-file participants.yaml
  electrooms seed --participants-file participants.yaml --starts-at 2026-03-07T13:00:00Z`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ParticipantsFile, "participants-file", "", "YAML list of participants (required)")
	cmd.Flags().StringVar(&opts.StartsAt, "starts-at", "", "election start, RFC 3339 (default: now)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "election description")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	_ = cmd.MarkFlagRequired("participants-file")

	return cmd
}

func runSeed(opts *SeedOptions, cmd *cobra.Command) error {
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

	startsAt, err := seedStart(opts)
	if err != nil {
		return outputCommandError(formatter, ErrCodeInvalidInput, err)
	}

	people, err := readParticipantsFile(opts.ParticipantsFile)
	if err != nil {
		return outputCommandError(formatter, ErrCodeInvalidInput, err)
	}
	formatter.VerboseLog("Read %d participant(s) from %s", len(people), opts.ParticipantsFile)

	st, err := store.Open(cfg.Database)
	if err != nil {
		return outputCommandError(formatter, ErrCodeStore, err)
	}
	defer st.Close()

	ctx := cmd.Context()
	election, err := st.CreateElection(ctx, startsAt, opts.Description)
	if err != nil {
		return outputCommandError(formatter, ErrCodeStore, err)
	}
	pre, err := st.EnsurePreelectionRoom(ctx, election.ID)
	if err != nil {
		return outputCommandError(formatter, ErrCodeStore, err)
	}

	accounts := make([]string, 0, len(people))
	for _, p := range people {
		if err := st.UpsertParticipant(ctx, p); err != nil {
			return outputCommandError(formatter, ErrCodeStore, err)
		}
		accounts = append(accounts, p.AccountName)
	}
	if err := st.AddToPreelection(ctx, pre, accounts); err != nil {
		return outputCommandError(formatter, ErrCodeStore, err)
	}
	logger.Info("election seeded", "election_id", election.ID, "participants", len(people))

	result := seedResult{
		ElectionID:    election.ID,
		StartsAt:      election.StartsAt,
		PreelectionID: pre.ID,
		Participants:  len(people),
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Seeded election %d with %d participant(s) in preelection room %d\n",
		result.ElectionID, result.Participants, result.PreelectionID)
	return nil
}

func seedStart(opts *SeedOptions) (time.Time, error) {
	if opts.StartsAt == "" {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		return now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, opts.StartsAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("--starts-at: %w", err)
	}
	return t.UTC(), nil
}

// readParticipantsFile decodes and validates the participants file.
// Accounts must be unique.
func readParticipantsFile(path string) ([]domain.Participant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read participants file: %w", err)
	}

	var entries []seedParticipant
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields
	if err := dec.Decode(&entries); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse participants file: %w", err)
	}

	validate := validator.New()
	seen := make(map[string]bool, len(entries))
	out := make([]domain.Participant, 0, len(entries))
	for i, e := range entries {
		if err := validate.Struct(e); err != nil {
			return nil, fmt.Errorf("participant %d: %w", i, err)
		}
		if seen[e.Account] {
			return nil, fmt.Errorf("participant %d: duplicate account %q", i, e.Account)
		}
		seen[e.Account] = true
		out = append(out, domain.Participant{
			AccountName:     e.Account,
			ParticipantName: e.Name,
			TelegramID:      e.Telegram,
		})
	}
	return out, nil
}
