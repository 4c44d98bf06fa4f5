package messenger

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/electrooms/internal/domain"
)

// Call is one recorded Messenger invocation.
type Call struct {
	Method  string
	Chat    domain.ChatID
	Handles []string // AddMembers, PromoteMembers; single target for SendDirectMessage
	Text    string   // chat name, message text or caption
	Detail  string   // chat description or photo path
	Button  *LinkButton
}

// Recorder is an in-memory Messenger. Chats get sequential IDs starting at
// FirstChatID. Failures are injected per method with Fail.
type Recorder struct {
	mu       sync.Mutex
	calls    []Call
	failures map[string][]error
	nextChat domain.ChatID
	links    map[domain.ChatID]int
}

// FirstChatID is the ID of the first chat a Recorder creates.
const FirstChatID domain.ChatID = 1001

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		failures: make(map[string][]error),
		nextChat: FirstChatID,
		links:    make(map[domain.ChatID]int),
	}
}

// Fail makes the next call to method return err. Repeated calls queue
// failures in order. A nil err for CreateGroupChat returns chat ID 0.
func (r *Recorder) Fail(method string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[method] = append(r.failures[method], err)
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// CallsTo returns the recorded calls of one method.
func (r *Recorder) CallsTo(method string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls and pending failures. Chat IDs keep counting.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
	r.failures = make(map[string][]error)
}

// record stores c and pops the next injected failure for its method.
func (r *Recorder) record(c Call) (injected bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	q := r.failures[c.Method]
	if len(q) == 0 {
		return false, nil
	}
	r.failures[c.Method] = q[1:]
	return true, q[0]
}

func (r *Recorder) CreateGroupChat(ctx context.Context, name, description string) (domain.ChatID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if injected, err := r.record(Call{Method: MethodCreateGroupChat, Text: name, Detail: description}); injected {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextChat
	r.nextChat++
	return id, nil
}

func (r *Recorder) AddMembers(ctx context.Context, chat domain.ChatID, handles []string) error {
	return r.simple(ctx, Call{Method: MethodAddMembers, Chat: chat, Handles: slices.Clone(handles)})
}

func (r *Recorder) PromoteMembers(ctx context.Context, chat domain.ChatID, handles []string) error {
	return r.simple(ctx, Call{Method: MethodPromoteMembers, Chat: chat, Handles: slices.Clone(handles)})
}

func (r *Recorder) InvitationLink(ctx context.Context, chat domain.ChatID) (string, error) {
	if err := r.simple(ctx, Call{Method: MethodInvitationLink, Chat: chat}); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[chat]++
	return fmt.Sprintf("https://t.me/+chat%d-%d", chat, r.links[chat]), nil
}

func (r *Recorder) SendDirectMessage(ctx context.Context, handle, text string, button *LinkButton) error {
	return r.simple(ctx, Call{Method: MethodSendDirectMessage, Handles: []string{handle}, Text: text, Button: button})
}

func (r *Recorder) SendGroupMessage(ctx context.Context, chat domain.ChatID, text string) error {
	return r.simple(ctx, Call{Method: MethodSendGroupMessage, Chat: chat, Text: text})
}

func (r *Recorder) SendGroupPhoto(ctx context.Context, chat domain.ChatID, path, caption string) error {
	return r.simple(ctx, Call{Method: MethodSendGroupPhoto, Chat: chat, Text: caption, Detail: path})
}

func (r *Recorder) simple(ctx context.Context, c Call) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := r.record(c)
	return err
}
