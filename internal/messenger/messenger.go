// Package messenger is the boundary to the group-messaging platform.
//
// Messenger is implemented by Gateway (JSON-RPC chat gateway) and Recorder
// (in memory). Throttled wraps either one with per-call deadlines and the
// platform's rate-limit contract.
package messenger

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/electrooms/internal/domain"
)

// Method names, used in logs, errors and Recorder calls.
const (
	MethodCreateGroupChat   = "CreateGroupChat"
	MethodAddMembers        = "AddMembers"
	MethodPromoteMembers    = "PromoteMembers"
	MethodInvitationLink    = "InvitationLink"
	MethodSendDirectMessage = "SendDirectMessage"
	MethodSendGroupMessage  = "SendGroupMessage"
	MethodSendGroupPhoto    = "SendGroupPhoto"
)

// LinkButton is an inline button opening a URL.
type LinkButton struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Messenger drives the messaging platform. Handles are "@name" strings.
type Messenger interface {
	// CreateGroupChat creates a supergroup and returns its ID.
	CreateGroupChat(ctx context.Context, name, description string) (domain.ChatID, error)
	AddMembers(ctx context.Context, chat domain.ChatID, handles []string) error
	// PromoteMembers grants full administrative rights.
	PromoteMembers(ctx context.Context, chat domain.ChatID, handles []string) error
	// InvitationLink exports a fresh link. Every call revokes the previous one.
	InvitationLink(ctx context.Context, chat domain.ChatID) (string, error)
	SendDirectMessage(ctx context.Context, handle, text string, button *LinkButton) error
	SendGroupMessage(ctx context.Context, chat domain.ChatID, text string) error
	SendGroupPhoto(ctx context.Context, chat domain.ChatID, path, caption string) error
}

// RateLimitError is returned when the platform asks the caller to back off.
type RateLimitError struct {
	Method     string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited, retry after %s", e.Method, e.RetryAfter)
}
