package messenger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/roach88/electrooms/internal/domain"
)

// DefaultCallTimeout bounds a single platform call.
const DefaultCallTimeout = 30 * time.Second

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the production Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Throttled applies a deadline to each call and honours rate limits: on a
// RateLimitError it sleeps RetryAfter and re-issues the same call once. A
// second rate limit is returned to the caller.
type Throttled struct {
	next        Messenger
	callTimeout time.Duration
	sleep       Sleeper
	logger      *slog.Logger
}

// ThrottledOption configures Throttled.
type ThrottledOption func(*Throttled)

// WithCallTimeout sets the per-call deadline. Zero disables it.
func WithCallTimeout(d time.Duration) ThrottledOption {
	return func(t *Throttled) {
		t.callTimeout = d
	}
}

// WithSleeper replaces the sleeper (tests).
func WithSleeper(s Sleeper) ThrottledOption {
	return func(t *Throttled) {
		t.sleep = s
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) ThrottledOption {
	return func(t *Throttled) {
		t.logger = l
	}
}

// NewThrottled wraps next.
func NewThrottled(next Messenger, opts ...ThrottledOption) *Throttled {
	t := &Throttled{
		next:        next,
		callTimeout: DefaultCallTimeout,
		sleep:       SleepContext,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Throttled) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if t.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.callTimeout)
		defer cancel()
	}
	return fn(ctx)
}

func (t *Throttled) do(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	err := t.attempt(ctx, fn)
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		return err
	}

	t.logger.Warn("rate limited, backing off",
		"method", method,
		"retry_after", rl.RetryAfter)
	if serr := t.sleep(ctx, rl.RetryAfter); serr != nil {
		return errors.Join(err, serr)
	}
	return t.attempt(ctx, fn)
}

func (t *Throttled) CreateGroupChat(ctx context.Context, name, description string) (domain.ChatID, error) {
	var id domain.ChatID
	err := t.do(ctx, MethodCreateGroupChat, func(ctx context.Context) error {
		var err error
		id, err = t.next.CreateGroupChat(ctx, name, description)
		return err
	})
	return id, err
}

func (t *Throttled) AddMembers(ctx context.Context, chat domain.ChatID, handles []string) error {
	return t.do(ctx, MethodAddMembers, func(ctx context.Context) error {
		return t.next.AddMembers(ctx, chat, handles)
	})
}

func (t *Throttled) PromoteMembers(ctx context.Context, chat domain.ChatID, handles []string) error {
	return t.do(ctx, MethodPromoteMembers, func(ctx context.Context) error {
		return t.next.PromoteMembers(ctx, chat, handles)
	})
}

func (t *Throttled) InvitationLink(ctx context.Context, chat domain.ChatID) (string, error) {
	var link string
	err := t.do(ctx, MethodInvitationLink, func(ctx context.Context) error {
		var err error
		link, err = t.next.InvitationLink(ctx, chat)
		return err
	})
	return link, err
}

func (t *Throttled) SendDirectMessage(ctx context.Context, handle, text string, button *LinkButton) error {
	return t.do(ctx, MethodSendDirectMessage, func(ctx context.Context) error {
		return t.next.SendDirectMessage(ctx, handle, text, button)
	})
}

func (t *Throttled) SendGroupMessage(ctx context.Context, chat domain.ChatID, text string) error {
	return t.do(ctx, MethodSendGroupMessage, func(ctx context.Context) error {
		return t.next.SendGroupMessage(ctx, chat, text)
	})
}

func (t *Throttled) SendGroupPhoto(ctx context.Context, chat domain.ChatID, path, caption string) error {
	return t.do(ctx, MethodSendGroupPhoto, func(ctx context.Context) error {
		return t.next.SendGroupPhoto(ctx, chat, path, caption)
	})
}
