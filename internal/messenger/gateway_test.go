package messenger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/electrooms/internal/domain"
	"github.com/roach88/electrooms/internal/rpcclient"
)

// fakeChat is a gorilla/rpc service standing in for the chat gateway.
type fakeChat struct {
	mu        sync.Mutex
	members   map[int64][]string
	messages  []SendMessageArgs
	photos    []SendPhotoArgs
	floodNext bool
	linkSeq   int
}

func (f *fakeChat) CreateSupergroup(r *http.Request, args *CreateSupergroupArgs, reply *CreateSupergroupReply) error {
	if args.Title == "" {
		return &json2.Error{Code: json2.E_BAD_PARAMS, Message: "title required"}
	}
	reply.ChatID = -1001234
	return nil
}

func (f *fakeChat) AddMembers(r *http.Request, args *MembersArgs, reply *Ack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.floodNext {
		f.floodNext = false
		return &json2.Error{Code: CodeRateLimited, Message: "FLOOD_WAIT", Data: map[string]any{"retry_after": 12}}
	}
	f.members[args.ChatID] = append(f.members[args.ChatID], args.Handles...)
	reply.OK = true
	return nil
}

func (f *fakeChat) PromoteMembers(r *http.Request, args *MembersArgs, reply *Ack) error {
	reply.OK = true
	return nil
}

func (f *fakeChat) ExportInviteLink(r *http.Request, args *ChatArgs, reply *InviteLinkReply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.linkSeq++
	if args.ChatID == 0 {
		return nil
	}
	reply.Link = "https://t.me/+abc"
	return nil
}

func (f *fakeChat) SendMessage(r *http.Request, args *SendMessageArgs, reply *Ack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, *args)
	reply.OK = true
	return nil
}

func (f *fakeChat) SendPhoto(r *http.Request, args *SendPhotoArgs, reply *Ack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos = append(f.photos, *args)
	reply.OK = true
	return nil
}

func (f *fakeChat) flood() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.floodNext = true
}

func (f *fakeChat) membersOf(chat int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.members[chat]...)
}

func (f *fakeChat) sentMessages() []SendMessageArgs {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SendMessageArgs(nil), f.messages...)
}

func (f *fakeChat) sentPhotos() []SendPhotoArgs {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SendPhotoArgs(nil), f.photos...)
}

func newGateway(t *testing.T) (*Gateway, *fakeChat) {
	t.Helper()
	svc := &fakeChat{members: make(map[int64][]string)}
	s := rpc.NewServer()
	s.RegisterCodec(json2.NewCodec(), "application/json")
	require.NoError(t, s.RegisterService(svc, "chat"))
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return NewGateway(rpcclient.New(srv.URL)), svc
}

func TestGateway_CreateAndPopulate(t *testing.T) {
	g, svc := newGateway(t)
	ctx := context.Background()

	chat, err := g.CreateGroupChat(ctx, "Eden R1G1 election S5,2026.", "long name")
	require.NoError(t, err)
	assert.Equal(t, domain.ChatID(-1001234), chat)

	require.NoError(t, g.AddMembers(ctx, chat, []string{"@alice", "@bob"}))
	require.NoError(t, g.PromoteMembers(ctx, chat, []string{"@alice"}))
	assert.Equal(t, []string{"@alice", "@bob"}, svc.membersOf(int64(chat)))

	link, err := g.InvitationLink(ctx, chat)
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/+abc", link)
}

func TestGateway_CreateRejected(t *testing.T) {
	g, _ := newGateway(t)

	_, err := g.CreateGroupChat(context.Background(), "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title required")
}

func TestGateway_RateLimit(t *testing.T) {
	g, svc := newGateway(t)
	svc.flood()

	err := g.AddMembers(context.Background(), 7, []string{"@alice"})
	var rl *RateLimitError
	require.True(t, errors.As(err, &rl), "got %v", err)
	assert.Equal(t, MethodAddMembers, rl.Method)
	assert.Equal(t, 12*time.Second, rl.RetryAfter)

	// Through Throttled the same flood is absorbed.
	svc.flood()
	var slept []time.Duration
	m := NewThrottled(g, WithLogger(discardLogger()), WithSleeper(func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}))
	require.NoError(t, m.AddMembers(context.Background(), 7, []string{"@bob"}))
	assert.Equal(t, []time.Duration{12 * time.Second}, slept)
	assert.Equal(t, []string{"@bob"}, svc.membersOf(7))
}

func TestGateway_EmptyInvitationLink(t *testing.T) {
	g, _ := newGateway(t)

	_, err := g.InvitationLink(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty invitation link")
}

func TestGateway_Messages(t *testing.T) {
	g, svc := newGateway(t)
	ctx := context.Background()

	button := &LinkButton{Text: "Join", URL: "https://t.me/+abc"}
	require.NoError(t, g.SendDirectMessage(ctx, "@alice", "you are in", button))
	require.NoError(t, g.SendGroupMessage(ctx, 7, "welcome"))

	msgs := svc.sentMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, SendMessageArgs{Handle: "@alice", Text: "you are in", Button: button}, msgs[0])
	assert.Equal(t, SendMessageArgs{ChatID: 7, Text: "welcome", DisableWebPagePreview: true}, msgs[1])
}

func TestGateway_SendGroupPhoto(t *testing.T) {
	g, svc := newGateway(t)
	ctx := context.Background()

	require.NoError(t, g.SendGroupPhoto(ctx, 7, filepath.Join("testdata", "orientation.png"), "how to start"))
	photos := svc.sentPhotos()
	require.Len(t, photos, 1)
	assert.Equal(t, "orientation.png", photos[0].FileName)
	assert.Equal(t, "how to start", photos[0].Caption)
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\nfake"), photos[0].Photo)

	err := g.SendGroupPhoto(ctx, 7, filepath.Join("testdata", "missing.png"), "")
	require.Error(t, err)
	assert.Len(t, svc.sentPhotos(), 1)
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, time.Second, retryAfter(nil))
	assert.Equal(t, time.Second, retryAfter(map[string]any{"retry_after": "soon"}))
	assert.Equal(t, time.Second, retryAfter(map[string]any{"retry_after": float64(0)}))
	assert.Equal(t, 1500*time.Millisecond, retryAfter(map[string]any{"retry_after": 1.5}))
}
