package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/electrooms/internal/domain"
	"github.com/roach88/electrooms/internal/store"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Round    int
	Database string
}

// roomStatus is one room in the status output.
type roomStatus struct {
	RoomID      int64         `json:"room_id"`
	Index       int           `json:"room_index"`
	NameShort   string        `json:"name_short"`
	ChatID      domain.ChatID `json:"chat_id"`
	Provisioned bool          `json:"provisioned"`
	Members     int           `json:"members"`
}

// statusResult is the JSON payload of the status command.
type statusResult struct {
	ElectionID int64        `json:"election_id"`
	Round      int          `json:"round"`
	Rooms      []roomStatus `json:"rooms"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the rooms of a round",
		Long: `Show the rooms of a round of the latest election, whether each room has
a chat, and how many participants were allocated to it.

Example:
  electrooms status --round 0
  electrooms status --round 2 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Round, "round", 0, "election round, starting at 0")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")

	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
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
	setupLogging(opts.RootOptions, cmd.ErrOrStderr())

	st, err := store.Open(cfg.Database)
	if err != nil {
		return outputCommandError(formatter, ErrCodeStore, err)
	}
	defer st.Close()

	ctx := cmd.Context()
	election, found, err := st.LastElection(ctx)
	if err != nil {
		return outputCommandError(formatter, ErrCodeStore, err)
	}
	if !found {
		return outputCommandError(formatter, ErrCodeInvalidInput, fmt.Errorf("no election in %s", cfg.Database))
	}

	rooms, err := st.RoomsForRound(ctx, election.ID, opts.Round)
	if err != nil {
		return outputCommandError(formatter, ErrCodeStore, err)
	}

	result := statusResult{ElectionID: election.ID, Round: opts.Round, Rooms: []roomStatus{}}
	for _, room := range rooms {
		members, err := st.RoomMembers(ctx, room.ID)
		if err != nil {
			return outputCommandError(formatter, ErrCodeStore, err)
		}
		result.Rooms = append(result.Rooms, roomStatus{
			RoomID:      room.ID,
			Index:       room.Index,
			NameShort:   room.NameShort,
			ChatID:      room.TelegramID,
			Provisioned: room.Provisioned(),
			Members:     len(members),
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if len(result.Rooms) == 0 {
		fmt.Fprintf(w, "Round %d of election %d has no rooms\n", result.Round, result.ElectionID)
		return nil
	}
	provisioned := 0
	for _, r := range result.Rooms {
		if r.Provisioned {
			provisioned++
		}
	}
	fmt.Fprintf(w, "Round %d of election %d: %d/%d room(s) provisioned\n",
		result.Round, result.ElectionID, provisioned, len(result.Rooms))
	for _, r := range result.Rooms {
		marker := "✗"
		if r.Provisioned {
			marker = "✓"
		}
		fmt.Fprintf(w, "  %s [%d] %-40s chat %-8d %d member(s)\n", marker, r.Index, r.NameShort, r.ChatID, r.Members)
	}
	return nil
}
