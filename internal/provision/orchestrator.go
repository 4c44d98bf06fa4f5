// Package provision allocates a round's participants to rooms and provisions
// a group chat for each room.
//
// A round moves through three states, each observable in the store:
// Unallocated (no rooms), Allocated (rooms and memberships exist, no chat)
// and Provisioned (the room's chat ID is set). Manage can be re-run at any
// point: rooms with a chat ID are skipped, the rest are provisioned.
//
// The chat ID is written right after the chat is created. A failure in any
// later step is reported and the room is not retried, since creating the
// chat again would duplicate it.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/electrooms/internal/domain"
	"github.com/roach88/electrooms/internal/messenger"
	"github.com/roach88/electrooms/internal/naming"
	"github.com/roach88/electrooms/internal/participants"
	"github.com/roach88/electrooms/internal/partition"
	"github.com/roach88/electrooms/internal/text"
)

// Mode selects who the membership and invitation steps target.
type Mode string

const (
	// ModeLive targets the room's members.
	ModeLive Mode = "live"
	// ModeDemo targets the operator handles instead. Welcome messages still
	// list the real members.
	ModeDemo Mode = "demo"
)

// Store is the persistence the orchestrator needs.
type Store interface {
	LastElection(ctx context.Context) (domain.Election, bool, error)
	ElectionGroupsCreated(ctx context.Context, electionID int64, round, numRooms int) (bool, error)
	CreateRooms(ctx context.Context, rooms []domain.Room) ([]domain.Room, error)
	GetRoomPreelection(ctx context.Context, electionID int64) (domain.Room, bool, error)
	DelegateParticipantsToRoom(ctx context.Context, participants []domain.ExtendedParticipant, preelection domain.Room) error
	UpdateRoomTelegramID(ctx context.Context, room domain.Room) error
}

// ParticipantSource returns a round's participants ordered by ledger index.
type ParticipantSource interface {
	FetchParticipants(ctx context.Context, round int, isLastRound bool, height *int64) ([]domain.ExtendedParticipant, error)
}

// Config holds the deployment settings of an Orchestrator.
type Config struct {
	Season int `validate:"gte=1"`
	// Year shown in room names; 0 means the current year.
	Year int  `validate:"gte=0"`
	Mode Mode `validate:"oneof=live demo"`
	// AgentHandle is the bot that administers the chats. Empty skips the
	// agent steps.
	AgentHandle string
	// OperatorHandles receive failure alerts, and in demo mode stand in for
	// the room members.
	OperatorHandles []string
	// OrientationPhoto is posted to every room except in the final round.
	// Empty skips it.
	OrientationPhoto string
}

// Orchestrator runs Manage. It is not safe for concurrent runs on the same
// election and round; callers serialize them.
type Orchestrator struct {
	store    Store
	source   ParticipantSource
	msgr     messenger.Messenger
	cfg      Config
	catalog  *text.Catalog
	logger   *slog.Logger
	metrics  *Metrics
	runIDs   RunIDGenerator
	validate *validator.Validate
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithMetrics sets the metrics. Defaults to a private NewMetrics().
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithRunIDs sets the run ID generator. Defaults to UUIDv7Generator.
func WithRunIDs(g RunIDGenerator) Option {
	return func(o *Orchestrator) {
		o.runIDs = g
	}
}

// WithCatalog sets the message catalog. Defaults to English.
func WithCatalog(c *text.Catalog) Option {
	return func(o *Orchestrator) {
		o.catalog = c
	}
}

// New creates an Orchestrator.
func New(store Store, source ParticipantSource, msgr messenger.Messenger, cfg Config, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		store:    store,
		source:   source,
		msgr:     msgr,
		cfg:      cfg,
		catalog:  text.English(),
		logger:   slog.Default(),
		runIDs:   UUIDv7Generator{},
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = NewMetrics()
	}
	if err := o.validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("provision: invalid config: %w", err)
	}
	for _, h := range append([]string{cfg.AgentHandle}, cfg.OperatorHandles...) {
		if h != "" && domain.NormalizeHandle(h) == "" {
			return nil, fmt.Errorf("provision: invalid config: handle %q too short", h)
		}
	}
	return o, nil
}

// run carries the state of one Manage invocation.
type run struct {
	id     string
	req    Request
	logger *slog.Logger
	report *Report
}

// Manage provisions req.Round of the latest election. It does nothing when
// every room of the round already has a chat. Fatal errors are returned as
// *ProvisioningError together with the partial report.
func (o *Orchestrator) Manage(ctx context.Context, req Request) (*Report, error) {
	r := &run{
		id:  o.runIDs.Generate(),
		req: req,
	}
	r.logger = o.logger.With("run_id", r.id, "round", req.Round)
	r.report = &Report{RunID: r.id, Round: req.Round, Rooms: []RoomOutcome{}}

	err := o.manage(ctx, r)
	switch {
	case err != nil:
		o.metrics.run(OutcomeFailed)
		r.logger.Error("provisioning failed", "error", err)
	case r.report.AlreadyProvisioned:
		o.metrics.run(OutcomeNoop)
	default:
		o.metrics.run(OutcomeProvisioned)
		r.logger.Info("provisioning finished",
			"rooms", len(r.report.Rooms),
			"provisioned", r.report.Provisioned(),
			"failures", len(r.report.Failures))
	}
	return r.report, err
}

func (o *Orchestrator) manage(ctx context.Context, r *run) error {
	if err := o.validate.Struct(r.req); err != nil {
		return newError(ErrCodeInvalidRequest, r.id, err, "invalid request")
	}

	election, found, err := o.store.LastElection(ctx)
	if err != nil {
		return newError(ErrCodeStoreFailure, r.id, err, "load last election")
	}
	if !found {
		return newError(ErrCodeNoElection, r.id, nil, "no election in store")
	}
	r.report.ElectionID = election.ID
	r.logger = r.logger.With("election_id", election.ID)

	done, err := o.store.ElectionGroupsCreated(ctx, election.ID, r.req.Round, r.req.NumGroups)
	if err != nil {
		return newError(ErrCodeStoreFailure, r.id, err, "check provisioned rooms")
	}
	if done {
		r.logger.Info("round already provisioned", "groups", r.req.NumGroups)
		r.report.AlreadyProvisioned = true
		return nil
	}
	return o.groupInitialization(ctx, r, election)
}

// groupInitialization allocates the round, then provisions every room that
// has no chat yet, in room order.
func (o *Orchestrator) groupInitialization(ctx context.Context, r *run, election domain.Election) error {
	rooms, err := o.getGroups(ctx, r, election)
	if err != nil {
		return err
	}

	for _, room := range rooms {
		outcome := RoomOutcome{
			RoomID:    room.ID,
			Index:     room.Index,
			NameShort: room.NameShort,
			ChatID:    room.TelegramID,
			Members:   len(room.Members),
		}
		if room.Provisioned() {
			r.logger.Info("room already provisioned, skipping",
				"room_index", room.Index,
				"chat_id", room.TelegramID)
			o.metrics.roomsSkipped.Inc()
			outcome.Status = RoomSkipped
			r.report.Rooms = append(r.report.Rooms, outcome)
			continue
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("provision: %w", err)
		}

		chat, missing, err := o.createRoom(ctx, r, room)
		if err != nil {
			return err
		}
		outcome.ChatID = chat
		outcome.Status = RoomProvisioned
		outcome.MissingHandles = missing
		r.report.Rooms = append(r.report.Rooms, outcome)
	}
	return nil
}

// getGroups brings the round to the Allocated state: rooms exist with IDs,
// every participant is attached to the room the partition assigns to its
// ledger index, and the memberships are stored. Rooms created by an earlier
// run are returned as stored, chat IDs included.
func (o *Orchestrator) getGroups(ctx context.Context, r *run, election domain.Election) ([]domain.ExtendedRoom, error) {
	req := r.req

	preelection, found, err := o.store.GetRoomPreelection(ctx, election.ID)
	if err != nil {
		return nil, newError(ErrCodeStoreFailure, r.id, err, "load preelection room")
	}
	if !found {
		return nil, newError(ErrCodeMissingPreelectionRoom, r.id, nil,
			"election %d has no preelection room", election.ID)
	}

	members, err := o.source.FetchParticipants(ctx, req.Round, req.IsLastRound, req.Height)
	if err != nil {
		code := ErrCodeStoreFailure
		if errors.Is(err, participants.ErrSourceUnavailable) {
			code = ErrCodeSourceUnavailable
		}
		return nil, newError(code, r.id, err, "fetch participants")
	}
	r.report.Participants = len(members)

	if !req.IsLastRound && len(members) != req.NumParticipants {
		return nil, NewMismatchError(r.id, req.NumParticipants, len(members))
	}

	// The ledger is checked in full before any room record is written.
	n := len(members)
	roomOf, err := o.assignRooms(r, members, req.NumGroups)
	if err != nil {
		return nil, err
	}

	planned := make([]domain.Room, req.NumGroups)
	for i := range planned {
		names := naming.For(req.Round, i, o.cfg.Season, o.cfg.Year, req.IsLastRound)
		planned[i] = domain.Room{
			ElectionID: election.ID,
			Round:      req.Round,
			Index:      i,
			NameLong:   names.Long,
			NameShort:  names.Short,
		}
	}
	stored, err := o.store.CreateRooms(ctx, planned)
	if err != nil {
		return nil, newError(ErrCodeStoreFailure, r.id, err, "create rooms")
	}
	r.logger.Debug("rooms stored", "count", len(stored))

	byIndex := make(map[int]*domain.ExtendedRoom, len(stored))
	rooms := make([]domain.ExtendedRoom, len(stored))
	for i, room := range stored {
		rooms[i] = domain.ExtendedRoom{Room: room}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Index < rooms[j].Index })
	for i := range rooms {
		byIndex[rooms[i].Index] = &rooms[i]
	}

	for i := range members {
		p := &members[i]
		room, ok := byIndex[roomOf[i]]
		if !ok {
			return nil, newError(ErrCodeStoreFailure, r.id, nil, "room %d missing after create", roomOf[i])
		}
		p.RoomID = room.ID
		room.AddMember(*p)
	}

	if err := o.store.DelegateParticipantsToRoom(ctx, members, preelection); err != nil {
		return nil, newError(ErrCodeStoreFailure, r.id, err, "delegate participants")
	}
	r.logger.Info("participants allocated",
		"participants", n,
		"groups", req.NumGroups)
	return rooms, nil
}

// assignRooms returns the room index of every member. With more than one
// room each ledger index must be in [0, n) and used once, otherwise the
// rooms would not be balanced.
func (o *Orchestrator) assignRooms(r *run, members []domain.ExtendedParticipant, numGroups int) ([]int, error) {
	roomOf := make([]int, len(members))
	if numGroups <= 1 {
		// A single room takes everyone whatever their index.
		return roomOf, nil
	}

	n := len(members)
	alloc := partition.New(n, numGroups)
	seen := make(map[int]string, n)
	for i, p := range members {
		if p.Index < 0 || p.Index >= n {
			return nil, newError(ErrCodeAllocationMismatch, r.id, nil,
				"participant %s has ledger index %d outside [0, %d)", p.AccountName, p.Index, n)
		}
		if other, dup := seen[p.Index]; dup {
			return nil, newError(ErrCodeAllocationMismatch, r.id, nil,
				"participant %s shares ledger index %d with %s", p.AccountName, p.Index, other)
		}
		seen[p.Index] = p.AccountName
		roomOf[i] = alloc.RoomIndexFor(p.Index)
	}
	return roomOf, nil
}

// createRoom moves one room from Allocated to Provisioned. Only chat
// creation and storing the chat ID are fatal; every later step is best
// effort and reported.
func (o *Orchestrator) createRoom(ctx context.Context, r *run, room domain.ExtendedRoom) (domain.ChatID, []string, error) {
	logger := r.logger.With("room_index", room.Index, "room_id", room.ID)

	chat, err := o.msgr.CreateGroupChat(ctx, room.NameShort, room.NameLong)
	if err != nil || chat == 0 {
		o.metrics.chatCreationFailures.Inc()
		return 0, nil, NewChatCreationError(r.id, room.NameShort, err)
	}
	logger = logger.With("chat_id", chat)

	room.TelegramID = chat
	if err := o.store.UpdateRoomTelegramID(ctx, room.Room); err != nil {
		// The chat exists without a stored ID; the next run would create a
		// second one. Operators must reconcile by hand.
		logger.Error("chat created but its id was not stored", "error", err)
		e := newError(ErrCodeStoreFailure, r.id, err, "store chat id %d", chat)
		e.Room = room.NameShort
		return 0, nil, e
	}
	o.metrics.roomsProvisioned.Inc()
	logger.Info("chat created")

	fail := func(step, target string, err error) {
		o.stepFailed(ctx, r, room, step, target, err)
	}

	if agent := domain.NormalizeHandle(o.cfg.AgentHandle); agent != "" {
		if err := o.msgr.AddMembers(ctx, chat, []string{agent}); err != nil {
			fail(StepAddAgent, agent, err)
		}
		if err := o.msgr.PromoteMembers(ctx, chat, []string{agent}); err != nil {
			fail(StepPromoteAgent, agent, err)
		}
	}

	handles, missing := room.KnownHandles()
	for _, account := range missing {
		logger.Warn("participant has no handle, not added", "account", account)
		o.metrics.ParticipantSkipped("no_handle")
	}
	audience := o.audience(handles)

	if len(audience) > 0 {
		if err := o.msgr.AddMembers(ctx, chat, audience); err != nil {
			fail(StepAddMembers, "", err)
		}
		if err := o.msgr.PromoteMembers(ctx, chat, audience); err != nil {
			fail(StepPromoteMembers, "", err)
		}
	}

	// Each export revokes the previous link.
	link, err := o.msgr.InvitationLink(ctx, chat)
	if err != nil {
		fail(StepInvitationLink, "", err)
		link = ""
	}
	if link != "" {
		invitation := o.catalog.Invitation(room.Round, r.req.IsLastRound)
		button := &messenger.LinkButton{Text: o.catalog.InvitationButton(), URL: link}
		for _, h := range audience {
			if err := o.msgr.SendDirectMessage(ctx, h, invitation, button); err != nil {
				fail(StepSendInvitation, h, err)
			}
		}
	}

	if err := o.msgr.SendGroupMessage(ctx, chat, o.catalog.Welcome(room, link, r.req.IsLastRound)); err != nil {
		fail(StepWelcomeMessage, "", err)
	}

	if !r.req.IsLastRound && o.cfg.OrientationPhoto != "" {
		if err := o.msgr.SendGroupPhoto(ctx, chat, o.cfg.OrientationPhoto, o.catalog.PhotoCaption()); err != nil {
			fail(StepOrientationPhoto, o.cfg.OrientationPhoto, err)
		}
	}

	logger.Info("room provisioned", "members", len(room.Members), "missing_handles", len(missing))
	return chat, missing, nil
}

// audience returns who membership and invitation steps target.
func (o *Orchestrator) audience(memberHandles []string) []string {
	if o.cfg.Mode != ModeDemo {
		return memberHandles
	}
	return o.operators()
}

func (o *Orchestrator) operators() []string {
	var out []string
	for _, h := range o.cfg.OperatorHandles {
		if n := domain.NormalizeHandle(h); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// stepFailed logs, counts and reports a failed step, then alerts the
// operators. Alert delivery failures are only logged.
func (o *Orchestrator) stepFailed(ctx context.Context, r *run, room domain.ExtendedRoom, step, target string, err error) {
	r.logger.Error("provisioning step failed",
		"room_index", room.Index,
		"step", step,
		"target", target,
		"error", err)
	o.metrics.stepFailures.WithLabelValues(step).Inc()
	r.report.Failures = append(r.report.Failures, StepFailure{
		Code:      ErrCodeSubStepFailed,
		RoomIndex: room.Index,
		Room:      room.NameShort,
		Step:      step,
		Target:    target,
		Error:     err.Error(),
	})

	alert := o.catalog.OperatorAlert(text.Alert{
		RunID:  r.id,
		Room:   room.NameShort,
		Step:   step,
		Target: target,
		Err:    err,
	})
	for _, h := range o.operators() {
		if aerr := o.msgr.SendDirectMessage(ctx, h, alert, nil); aerr != nil {
			r.logger.Warn("operator alert not delivered", "operator", h, "error", aerr)
		}
	}
}
