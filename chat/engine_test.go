package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"food-delivery/panel/models"
)

type fakeChatService struct {
	mu           sync.Mutex
	chats        []models.Chat
	history      map[int]json.RawMessage
	historyErr   error
	historyCalls int
	sendErr      error
	sendDelay    time.Duration
	sendCalls    int
	nextID       int
}

func (f *fakeChatService) ListChats(ctx context.Context) ([]models.Chat, error) {
	return f.chats, nil
}

func (f *fakeChatService) History(ctx context.Context, chatID int) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls++
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history[chatID], nil
}

func (f *fakeChatService) Send(ctx context.Context, chatID int, text string) (models.Message, error) {
	f.mu.Lock()
	f.sendCalls++
	f.nextID++
	id := f.nextID
	delay := f.sendDelay
	sendErr := f.sendErr
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if sendErr != nil {
		return models.Message{}, sendErr
	}
	return models.Message{
		ID:        fmt.Sprintf("srv-%d", id),
		Text:      text,
		SenderID:  "biz-1",
		IsSender:  true,
		CreatedAt: time.Now(),
	}, nil
}

type fakeChannel struct {
	mu        sync.Mutex
	connected bool
	closed    bool
	onMsg     func(models.Message)
	onState   func(bool)
}

func (f *fakeChannel) Connect(ctx context.Context) error {
	f.mu.Lock()
	f.connected = true
	fn := f.onState
	f.mu.Unlock()
	if fn != nil {
		fn(true)
	}
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	f.closed = true
	f.connected = false
	fn := f.onState
	f.mu.Unlock()
	if fn != nil {
		fn(false)
	}
	return nil
}

func (f *fakeChannel) OnMessage(fn func(models.Message)) { f.onMsg = fn }
func (f *fakeChannel) OnStateChange(fn func(bool))       { f.onState = fn }

func msgAt(id, sender string, sec int) models.Message {
	return models.Message{
		ID:        id,
		Text:      "msg " + id,
		SenderID:  sender,
		CreatedAt: time.Date(2024, 5, 1, 12, 0, sec, 0, time.UTC),
	}
}

func historyPayload(msgs ...models.Message) json.RawMessage {
	data, _ := json.Marshal(models.Chat{ID: 1, Messages: msgs})
	return data
}

func testChats() []models.Chat {
	return []models.Chat{
		{ID: 1, BusinessID: "biz-1", CustomerID: "cust-1"},
		{ID: 2, BusinessID: "biz-1", CustomerID: "cust-2"},
	}
}

func newTestEngine(t *testing.T, svc *fakeChatService) *Engine {
	t.Helper()
	e := NewEngine(svc, &fakeChannel{}, "biz-1")
	_, err := e.LoadChats(context.Background())
	require.NoError(t, err)
	return e
}

func TestOpenSortsHistory(t *testing.T) {
	svc := &fakeChatService{
		chats: testChats(),
		history: map[int]json.RawMessage{
			1: historyPayload(msgAt("m3", "cust-1", 3), msgAt("m1", "cust-1", 1), msgAt("m2", "cust-1", 2)),
		},
	}
	e := newTestEngine(t, svc)

	msgs, err := e.Open(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids(msgs))
}

func TestOpenUsesCacheOnReopen(t *testing.T) {
	svc := &fakeChatService{
		chats:   testChats(),
		history: map[int]json.RawMessage{1: historyPayload(msgAt("m1", "cust-1", 1))},
	}
	e := newTestEngine(t, svc)

	_, err := e.Open(context.Background(), 1)
	require.NoError(t, err)
	_, err = e.Open(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, svc.historyCalls, "second open must be served from cache")
}

func TestOpenFailureCachesEmptyList(t *testing.T) {
	svc := &fakeChatService{chats: testChats(), historyErr: errors.New("backend down")}
	e := newTestEngine(t, svc)

	msgs, err := e.Open(context.Background(), 1)
	assert.Error(t, err)
	assert.Empty(t, msgs)

	// The failure is cached as empty; retry is an explicit re-open path.
	assert.Empty(t, e.Messages())
}

func TestPushInsertsInOrder(t *testing.T) {
	svc := &fakeChatService{
		chats: testChats(),
		history: map[int]json.RawMessage{
			1: historyPayload(msgAt("m1", "cust-1", 1), msgAt("m3", "cust-1", 3)),
		},
	}
	e := newTestEngine(t, svc)
	_, err := e.Open(context.Background(), 1)
	require.NoError(t, err)

	e.ReceivePush(msgAt("m2", "cust-1", 2))

	assert.Equal(t, []string{"m1", "m2", "m3"}, ids(e.Messages()))
}

func TestPushDedupById(t *testing.T) {
	svc := &fakeChatService{
		chats:   testChats(),
		history: map[int]json.RawMessage{1: historyPayload(msgAt("m1", "cust-1", 1))},
	}
	e := newTestEngine(t, svc)
	_, err := e.Open(context.Background(), 1)
	require.NoError(t, err)

	e.ReceivePush(msgAt("m1", "cust-1", 1))

	assert.Len(t, e.Messages(), 1)
}

func TestPushForUncachedChatIsDropped(t *testing.T) {
	svc := &fakeChatService{
		chats:   testChats(),
		history: map[int]json.RawMessage{1: historyPayload()},
	}
	e := newTestEngine(t, svc)
	_, err := e.Open(context.Background(), 1)
	require.NoError(t, err)

	// cust-2's chat has never been opened, so its push goes nowhere.
	e.ReceivePush(msgAt("x1", "cust-2", 1))

	assert.Empty(t, e.Messages())
	e.mu.Lock()
	_, cached := e.cache[2]
	e.mu.Unlock()
	assert.False(t, cached)
}

func TestPushForUnknownSenderIsDropped(t *testing.T) {
	svc := &fakeChatService{
		chats:   testChats(),
		history: map[int]json.RawMessage{1: historyPayload()},
	}
	e := newTestEngine(t, svc)
	_, err := e.Open(context.Background(), 1)
	require.NoError(t, err)

	e.ReceivePush(msgAt("x1", "stranger", 1))

	assert.Empty(t, e.Messages())
}

func TestPushUpdatesVisibleListWhenOpen(t *testing.T) {
	svc := &fakeChatService{
		chats:   testChats(),
		history: map[int]json.RawMessage{1: historyPayload()},
	}
	e := newTestEngine(t, svc)
	_, err := e.Open(context.Background(), 1)
	require.NoError(t, err)

	var notified []string
	e.SetNotify(func(chatID int, msg models.Message) {
		notified = append(notified, msg.ID)
	})

	e.ReceivePush(msgAt("m1", "cust-1", 1))

	assert.Equal(t, []string{"m1"}, ids(e.Messages()))
	assert.Equal(t, []string{"m1"}, notified)
}

func TestSendBlankTextIsNoOp(t *testing.T) {
	svc := &fakeChatService{chats: testChats(), history: map[int]json.RawMessage{1: historyPayload()}}
	e := newTestEngine(t, svc)
	_, err := e.Open(context.Background(), 1)
	require.NoError(t, err)

	for _, text := range []string{"", "   ", "\n\t "} {
		msg, err := e.Send(context.Background(), 1, text)
		require.NoError(t, err)
		assert.Empty(t, msg.ID)
	}
	assert.Empty(t, e.Messages())
	assert.Equal(t, 0, svc.sendCalls)
}

func TestSendReplacesOptimisticEntryInPlace(t *testing.T) {
	svc := &fakeChatService{
		chats:   testChats(),
		history: map[int]json.RawMessage{1: historyPayload(msgAt("m1", "cust-1", 1))},
	}
	e := newTestEngine(t, svc)
	_, err := e.Open(context.Background(), 1)
	require.NoError(t, err)

	msg, err := e.Send(context.Background(), 1, "hello")
	require.NoError(t, err)
	assert.Equal(t, "srv-1", msg.ID)

	got := e.Messages()
	require.Len(t, got, 2, "confirmation must replace, not append")
	assert.Equal(t, "srv-1", got[1].ID)
	assert.Equal(t, "hello", got[1].Text)
	assert.False(t, got[1].Pending())
}

func TestSendAppendsOptimisticEchoBeforeConfirm(t *testing.T) {
	svc := &fakeChatService{
		chats:     testChats(),
		history:   map[int]json.RawMessage{1: historyPayload()},
		sendDelay: 50 * time.Millisecond,
	}
	e := newTestEngine(t, svc)
	_, err := e.Open(context.Background(), 1)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := e.Send(context.Background(), 1, "hello")
		assert.NoError(t, err)
	}()

	require.Eventually(t, func() bool {
		msgs := e.Messages()
		return len(msgs) == 1 && msgs[0].Pending()
	}, time.Second, time.Millisecond, "echo must be visible while the send is in flight")

	<-done
	got := e.Messages()
	require.Len(t, got, 1)
	assert.False(t, got[0].Pending())
}

func TestSendToleratesOwnEchoFromChannel(t *testing.T) {
	svc := &fakeChatService{
		chats:     testChats(),
		history:   map[int]json.RawMessage{1: historyPayload()},
		sendDelay: 50 * time.Millisecond,
	}
	e := newTestEngine(t, svc)
	_, err := e.Open(context.Background(), 1)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		msg, err := e.Send(context.Background(), 1, "hello")
		assert.NoError(t, err)
		assert.Equal(t, "srv-1", msg.ID)
	}()

	require.Eventually(t, func() bool {
		msgs := e.Messages()
		return len(msgs) == 1 && msgs[0].Pending()
	}, time.Second, time.Millisecond)

	// The hub echoes the confirmed message back before the send call
	// returns; the list must end up with a single copy of it.
	e.ReceivePush(models.Message{
		ID:        "srv-1",
		Text:      "hello",
		SenderID:  "biz-1",
		IsSender:  true,
		CreatedAt: time.Now(),
	})

	<-done
	assert.Equal(t, []string{"srv-1"}, ids(e.Messages()))
}

func TestSendOptimisticEchoSortsIntoPlace(t *testing.T) {
	ahead := models.Message{
		ID:        "m9",
		Text:      "scheduled",
		SenderID:  "cust-1",
		CreatedAt: time.Now().Add(time.Hour),
	}
	svc := &fakeChatService{
		chats:     testChats(),
		history:   map[int]json.RawMessage{1: historyPayload(ahead)},
		sendDelay: 50 * time.Millisecond,
	}
	e := newTestEngine(t, svc)
	_, err := e.Open(context.Background(), 1)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := e.Send(context.Background(), 1, "hello")
		assert.NoError(t, err)
	}()

	require.Eventually(t, func() bool {
		return len(e.Messages()) == 2
	}, time.Second, time.Millisecond)

	// The echo carries an earlier timestamp than m9 and must not land
	// after it just because it arrived later.
	assert.Equal(t, "m9", e.Messages()[1].ID)

	<-done
	assert.Equal(t, []string{"srv-1", "m9"}, ids(e.Messages()))
}

func TestSendFailureRollsBackAndRestoresDraft(t *testing.T) {
	svc := &fakeChatService{
		chats:   testChats(),
		history: map[int]json.RawMessage{1: historyPayload(msgAt("m1", "cust-1", 1))},
		sendErr: errors.New("backend down"),
	}
	e := newTestEngine(t, svc)
	_, err := e.Open(context.Background(), 1)
	require.NoError(t, err)

	_, err = e.Send(context.Background(), 1, "  hello  ")
	assert.Error(t, err)

	assert.Equal(t, []string{"m1"}, ids(e.Messages()), "optimistic entry must be removed")
	assert.Equal(t, "hello", e.Draft())
	assert.Empty(t, e.Draft(), "draft reads once")
}

func TestSingleSendInFlight(t *testing.T) {
	svc := &fakeChatService{
		chats:     testChats(),
		history:   map[int]json.RawMessage{1: historyPayload()},
		sendDelay: 50 * time.Millisecond,
	}
	e := newTestEngine(t, svc)
	_, err := e.Open(context.Background(), 1)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := e.Send(context.Background(), 1, "first")
		assert.NoError(t, err)
	}()

	require.Eventually(t, func() bool {
		return len(e.Messages()) == 1
	}, time.Second, time.Millisecond)

	// Second send while the first is pending is ignored, not queued.
	msg, err := e.Send(context.Background(), 1, "second")
	require.NoError(t, err)
	assert.Empty(t, msg.ID)

	<-done
	assert.Equal(t, 1, svc.sendCalls)
}

func TestConnectionLifecycle(t *testing.T) {
	svc := &fakeChatService{
		chats:   testChats(),
		history: map[int]json.RawMessage{1: historyPayload(msgAt("m1", "cust-1", 1))},
	}
	ch := &fakeChannel{}
	e := NewEngine(svc, ch, "biz-1")
	_, err := e.LoadChats(context.Background())
	require.NoError(t, err)

	require.NoError(t, e.Start(context.Background()))
	assert.True(t, e.Connected())

	_, err = e.Open(context.Background(), 1)
	require.NoError(t, err)

	require.NoError(t, e.Stop())
	assert.True(t, ch.closed)
	assert.False(t, e.Connected())

	// Losing the connection must not clear cached history.
	assert.Equal(t, []string{"m1"}, ids(e.Messages()))
}

func ids(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}
