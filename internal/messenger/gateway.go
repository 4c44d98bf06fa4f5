package messenger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/electrooms/internal/domain"
	"github.com/roach88/electrooms/internal/rpcclient"
)

// JSON-RPC methods served by the chat gateway.
const (
	rpcCreateSupergroup = "chat.CreateSupergroup"
	rpcAddMembers       = "chat.AddMembers"
	rpcPromoteMembers   = "chat.PromoteMembers"
	rpcExportInviteLink = "chat.ExportInviteLink"
	rpcSendMessage      = "chat.SendMessage"
	rpcSendPhoto        = "chat.SendPhoto"
)

// CodeRateLimited is the gateway's JSON-RPC error code for flood control.
// The error data carries {"retry_after": seconds}.
const CodeRateLimited = -32029

type CreateSupergroupArgs struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type CreateSupergroupReply struct {
	ChatID int64 `json:"chat_id"`
}

type MembersArgs struct {
	ChatID  int64    `json:"chat_id"`
	Handles []string `json:"handles"`
}

type ChatArgs struct {
	ChatID int64 `json:"chat_id"`
}

type InviteLinkReply struct {
	Link string `json:"link"`
}

// SendMessageArgs addresses either a chat (ChatID) or a user (Handle).
type SendMessageArgs struct {
	ChatID                int64       `json:"chat_id,omitempty"`
	Handle                string      `json:"handle,omitempty"`
	Text                  string      `json:"text"`
	Button                *LinkButton `json:"button,omitempty"`
	DisableWebPagePreview bool        `json:"disable_web_page_preview,omitempty"`
}

type SendPhotoArgs struct {
	ChatID   int64  `json:"chat_id"`
	FileName string `json:"file_name"`
	Photo    []byte `json:"photo"`
	Caption  string `json:"caption,omitempty"`
}

// Ack is the reply of methods without a result.
type Ack struct {
	OK bool `json:"ok"`
}

// Gateway is a Messenger backed by a JSON-RPC chat gateway that holds the
// platform sessions (user account for group creation, bot for the rest).
type Gateway struct {
	rpc *rpcclient.Client
}

// NewGateway wraps an RPC client bound to the gateway endpoint.
func NewGateway(rpc *rpcclient.Client) *Gateway {
	return &Gateway{rpc: rpc}
}

func (g *Gateway) call(ctx context.Context, method, rpcMethod string, args, reply any) error {
	err := g.rpc.Call(ctx, rpcMethod, args, reply)
	if err == nil {
		return nil
	}
	if rpcErr, ok := rpcclient.AsRPCError(err); ok && int(rpcErr.Code) == CodeRateLimited {
		return &RateLimitError{Method: method, RetryAfter: retryAfter(rpcErr.Data)}
	}
	return fmt.Errorf("messenger: %w", err)
}

// retryAfter reads data.retry_after (seconds). Missing or invalid values
// back off for one second.
func retryAfter(data any) time.Duration {
	m, ok := data.(map[string]any)
	if !ok {
		return time.Second
	}
	secs, ok := m["retry_after"].(float64)
	if !ok || secs <= 0 {
		return time.Second
	}
	return time.Duration(secs * float64(time.Second))
}

func (g *Gateway) CreateGroupChat(ctx context.Context, name, description string) (domain.ChatID, error) {
	var reply CreateSupergroupReply
	err := g.call(ctx, MethodCreateGroupChat, rpcCreateSupergroup,
		CreateSupergroupArgs{Title: name, Description: description}, &reply)
	if err != nil {
		return 0, err
	}
	return domain.ChatID(reply.ChatID), nil
}

func (g *Gateway) AddMembers(ctx context.Context, chat domain.ChatID, handles []string) error {
	var ack Ack
	return g.call(ctx, MethodAddMembers, rpcAddMembers, MembersArgs{ChatID: int64(chat), Handles: handles}, &ack)
}

func (g *Gateway) PromoteMembers(ctx context.Context, chat domain.ChatID, handles []string) error {
	var ack Ack
	return g.call(ctx, MethodPromoteMembers, rpcPromoteMembers, MembersArgs{ChatID: int64(chat), Handles: handles}, &ack)
}

func (g *Gateway) InvitationLink(ctx context.Context, chat domain.ChatID) (string, error) {
	var reply InviteLinkReply
	if err := g.call(ctx, MethodInvitationLink, rpcExportInviteLink, ChatArgs{ChatID: int64(chat)}, &reply); err != nil {
		return "", err
	}
	if reply.Link == "" {
		return "", fmt.Errorf("messenger: %s: empty invitation link", rpcExportInviteLink)
	}
	return reply.Link, nil
}

func (g *Gateway) SendDirectMessage(ctx context.Context, handle, text string, button *LinkButton) error {
	var ack Ack
	return g.call(ctx, MethodSendDirectMessage, rpcSendMessage,
		SendMessageArgs{Handle: handle, Text: text, Button: button}, &ack)
}

func (g *Gateway) SendGroupMessage(ctx context.Context, chat domain.ChatID, text string) error {
	var ack Ack
	return g.call(ctx, MethodSendGroupMessage, rpcSendMessage,
		SendMessageArgs{ChatID: int64(chat), Text: text, DisableWebPagePreview: true}, &ack)
}

func (g *Gateway) SendGroupPhoto(ctx context.Context, chat domain.ChatID, path, caption string) error {
	photo, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("messenger: read photo: %w", err)
	}
	var ack Ack
	return g.call(ctx, MethodSendGroupPhoto, rpcSendPhoto, SendPhotoArgs{
		ChatID:   int64(chat),
		FileName: filepath.Base(path),
		Photo:    photo,
		Caption:  caption,
	}, &ack)
}
