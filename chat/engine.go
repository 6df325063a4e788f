package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"food-delivery/panel/models"
)

// Service is the remote chat backend.
type Service interface {
	ListChats(ctx context.Context) ([]models.Chat, error)
	// History returns the raw fetch payload; the engine normalizes the
	// shape itself (see normalizeHistory).
	History(ctx context.Context, chatID int) (json.RawMessage, error)
	Send(ctx context.Context, chatID int, text string) (models.Message, error)
}

// Channel is the persistent real-time transport delivering new messages.
type Channel interface {
	Connect(ctx context.Context) error
	Close() error
	OnMessage(fn func(models.Message))
	OnStateChange(fn func(connected bool))
}

// NotifyFunc observes messages entering a conversation, for fan-out to
// connected dashboard clients.
type NotifyFunc func(chatID int, msg models.Message)

// Engine keeps per-conversation message history consistent across three
// sources: the initial REST fetch, real-time pushes, and optimistic local
// sends. It owns the cache exclusively; readers only get copies.
type Engine struct {
	svc         Service
	channel     Channel
	senderID    string
	notify      NotifyFunc
	stateNotify func(connected bool)

	mu        sync.Mutex
	chats     []models.Chat
	cache     map[int][]models.Message
	openID    int
	draft     string
	sending   bool
	connected bool
}

func NewEngine(svc Service, channel Channel, senderID string) *Engine {
	return &Engine{
		svc:      svc,
		channel:  channel,
		senderID: senderID,
		cache:    make(map[int][]models.Message),
	}
}

// SetNotify registers a fan-out hook for pushed and confirmed messages.
// Call before Start.
func (e *Engine) SetNotify(fn NotifyFunc) {
	e.notify = fn
}

// SetStateNotify registers a fan-out hook for connection-state changes.
// Call before Start.
func (e *Engine) SetStateNotify(fn func(connected bool)) {
	e.stateNotify = fn
}

// Start hooks up the real-time channel and opens the connection.
func (e *Engine) Start(ctx context.Context) error {
	e.channel.OnMessage(e.ReceivePush)
	e.channel.OnStateChange(func(connected bool) {
		e.mu.Lock()
		e.connected = connected
		e.mu.Unlock()
		if connected {
			log.Printf("chat: realtime channel connected")
		} else {
			log.Printf("chat: realtime channel disconnected")
		}
		if e.stateNotify != nil {
			e.stateNotify(connected)
		}
	})
	return e.channel.Connect(ctx)
}

// Stop closes the real-time connection. The cache survives so a restarted
// engine instance is the only way to drop history.
func (e *Engine) Stop() error {
	return e.channel.Close()
}

// Connected reports the current real-time connection state.
func (e *Engine) Connected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connected
}

// LoadChats fetches the conversation list. Cached messages are untouched
// either way.
func (e *Engine) LoadChats(ctx context.Context) ([]models.Chat, error) {
	chats, err := e.svc.ListChats(ctx)
	if err != nil {
		return nil, fmt.Errorf("load chats: %w", err)
	}
	e.mu.Lock()
	e.chats = chats
	e.mu.Unlock()
	return chats, nil
}

// Chats returns the last fetched conversation list.
func (e *Engine) Chats() []models.Chat {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Chat, len(e.chats))
	copy(out, e.chats)
	return out
}

// Open selects a conversation and returns its ordered history. A cache hit
// is served without a network call so re-opening a chat never flickers.
// On fetch failure the chat gets an empty cached list and the error is
// returned for the retry affordance.
func (e *Engine) Open(ctx context.Context, chatID int) ([]models.Message, error) {
	e.mu.Lock()
	e.openID = chatID
	if msgs, ok := e.cache[chatID]; ok {
		out := make([]models.Message, len(msgs))
		copy(out, msgs)
		e.mu.Unlock()
		return out, nil
	}
	e.mu.Unlock()

	raw, err := e.svc.History(ctx, chatID)
	if err != nil {
		e.mu.Lock()
		e.cache[chatID] = []models.Message{}
		e.mu.Unlock()
		return nil, fmt.Errorf("load messages for chat %d: %w", chatID, err)
	}

	msgs := normalizeHistory(raw)
	if msgs == nil {
		msgs = []models.Message{}
	}

	e.mu.Lock()
	e.cache[chatID] = msgs
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	e.mu.Unlock()
	return out, nil
}

// CloseChat deselects the open conversation.
func (e *Engine) CloseChat() {
	e.mu.Lock()
	e.openID = 0
	e.mu.Unlock()
}

// Messages returns a copy of the open conversation's list, empty if no
// conversation is open.
func (e *Engine) Messages() []models.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	msgs := e.cache[e.openID]
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out
}

// ReceivePush merges a message delivered by the real-time channel. The
// target chat is found by matching the sender against cached participants;
// pushes for chats we have no cache for are dropped on purpose, a later
// Open fetches them anyway. Duplicate ids are discarded.
func (e *Engine) ReceivePush(msg models.Message) {
	e.mu.Lock()

	chatID := 0
	for _, c := range e.chats {
		if _, cached := e.cache[c.ID]; !cached {
			continue
		}
		if c.HasParticipant(msg.SenderID) {
			chatID = c.ID
			break
		}
	}
	if chatID == 0 {
		e.mu.Unlock()
		return
	}

	for _, m := range e.cache[chatID] {
		if m.ID == msg.ID {
			e.mu.Unlock()
			return
		}
	}

	e.cache[chatID] = sortMessages(append(e.cache[chatID], msg))
	e.mu.Unlock()

	if e.notify != nil {
		e.notify(chatID, msg)
	}
}

// Draft returns text restored from a failed send, clearing it.
func (e *Engine) Draft() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.draft
	e.draft = ""
	return d
}

// Send performs an optimistic send to the given chat. Blank text and a send
// already in flight are both silent no-ops. The local echo is appended
// before the network call; on confirmation it is replaced in place, on
// failure it is removed and the text is kept as the draft for retry.
func (e *Engine) Send(ctx context.Context, chatID int, text string) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, nil
	}

	e.mu.Lock()
	if e.sending {
		e.mu.Unlock()
		return models.Message{}, nil
	}
	e.sending = true

	optimistic := models.Message{
		ID:        models.TempIDPrefix + uuid.NewString(),
		Text:      text,
		SenderID:  e.senderID,
		IsSender:  true,
		CreatedAt: time.Now(),
	}
	e.cache[chatID] = sortMessages(append(e.cache[chatID], optimistic))
	e.mu.Unlock()

	confirmed, err := e.svc.Send(ctx, chatID, text)

	e.mu.Lock()
	e.sending = false
	if err != nil {
		// Roll back the echo and keep the text so the user can retry.
		msgs := e.cache[chatID]
		kept := msgs[:0]
		for _, m := range msgs {
			if m.ID != optimistic.ID {
				kept = append(kept, m)
			}
		}
		e.cache[chatID] = kept
		e.draft = text
		e.mu.Unlock()
		return models.Message{}, fmt.Errorf("send message to chat %d: %w", chatID, err)
	}

	if confirmed.CreatedAt.IsZero() {
		confirmed.CreatedAt = optimistic.CreatedAt
	}

	// The hub may echo our own message back before the send resolves; in
	// that case the pushed copy is already cached and the local echo must
	// go, or the confirmed id would appear twice.
	duplicate := false
	for _, m := range e.cache[chatID] {
		if m.ID == confirmed.ID {
			duplicate = true
			break
		}
	}
	if duplicate {
		msgs := e.cache[chatID]
		kept := msgs[:0]
		for _, m := range msgs {
			if m.ID != optimistic.ID {
				kept = append(kept, m)
			}
		}
		e.cache[chatID] = kept
		e.mu.Unlock()
		return confirmed, nil
	}

	replaced := false
	for i, m := range e.cache[chatID] {
		if m.ID == optimistic.ID {
			e.cache[chatID][i] = confirmed
			replaced = true
			break
		}
	}
	if !replaced {
		// The echo is gone (should not happen); fall back to append.
		e.cache[chatID] = sortMessages(append(e.cache[chatID], confirmed))
	}
	e.mu.Unlock()

	if e.notify != nil {
		e.notify(chatID, confirmed)
	}
	return confirmed, nil
}
