package chat

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/contest-engine/internal/models"
	"github.com/terra-clan/contest-engine/internal/storage"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func newTestHub(t *testing.T) (*Hub, *storage.MemoryRepository) {
	t.Helper()

	repo := storage.NewMemoryRepository()
	hub := NewHub(repo, NewLocalBroadcaster(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, hub.Start(ctx))

	return hub, repo
}

// serveAs returns a websocket URL whose connections are bound to user
func serveAs(t *testing.T, hub *Hub, user *models.User) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		NewClient(hub, conn, user).Serve(r.Context())
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var hello Frame
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, FrameConnected, hello.Type)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()

	var f Frame
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestPostStoresAndBroadcasts(t *testing.T) {
	hub, repo := newTestHub(t)

	var got []*models.ChatMessage
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hub.broadcaster.Subscribe(ctx, func(m *models.ChatMessage) { got = append(got, m) }))

	sender := &models.User{ID: "u1", Name: "Ada", Role: models.RoleParticipant}
	msg, err := hub.Post(context.Background(), sender, "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Message)
	assert.Equal(t, "u1", msg.SenderID)

	require.Len(t, got, 1)
	assert.Equal(t, msg.ID, got[0].ID)

	stored, err := repo.ListChatMessages(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
}

func TestPostRejectsEmptyAndLong(t *testing.T) {
	hub, _ := newTestHub(t)
	sender := &models.User{ID: "u1"}

	_, err := hub.Post(context.Background(), sender, "   ")
	require.ErrorIs(t, err, ErrEmptyMessage)

	_, err = hub.Post(context.Background(), sender, strings.Repeat("x", MaxMessageLength+1))
	require.ErrorIs(t, err, ErrMessageTooLong)
}

func TestHistoryReturnsLatestOldestFirst(t *testing.T) {
	hub, _ := newTestHub(t)
	sender := &models.User{ID: "u1", Name: "Ada"}

	for i := 0; i < HistoryLimit+5; i++ {
		_, err := hub.Post(context.Background(), sender, fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
	}

	history, err := hub.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, HistoryLimit)
	assert.Equal(t, "msg 5", history[0].Message)
	assert.Equal(t, fmt.Sprintf("msg %d", HistoryLimit+4), history[len(history)-1].Message)
}

func TestSenderComesFromConnectionUser(t *testing.T) {
	hub, _ := newTestHub(t)
	alice := &models.User{ID: "alice", Name: "Alice", Role: models.RoleParticipant}
	bob := &models.User{ID: "bob", Name: "Bob", Role: models.RoleEvaluator}

	aliceConn := dial(t, serveAs(t, hub, alice))
	bobConn := dial(t, serveAs(t, hub, bob))

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 5*time.Second, 10*time.Millisecond)

	err := aliceConn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"sendMessage","message":"hi all","senderId":"bob","senderName":"Bob"}`))
	require.NoError(t, err)

	for _, conn := range []*websocket.Conn{aliceConn, bobConn} {
		f := readFrame(t, conn)
		require.Equal(t, FrameNewMessage, f.Type)
		require.NotNil(t, f.Data)
		assert.Equal(t, "alice", f.Data.SenderID)
		assert.Equal(t, "Alice", f.Data.SenderName)
		assert.Equal(t, models.RoleParticipant, f.Data.SenderRole)
		assert.Equal(t, "hi all", f.Data.Message)
	}
}

func TestInvalidFramesGetErrors(t *testing.T) {
	hub, _ := newTestHub(t)
	conn := dial(t, serveAs(t, hub, &models.User{ID: "u1"}))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Equal(t, FrameError, readFrame(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"shout"}`)))
	assert.Equal(t, FrameError, readFrame(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"sendMessage","message":""}`)))
	f := readFrame(t, conn)
	assert.Equal(t, FrameError, f.Type)
	assert.Equal(t, ErrEmptyMessage.Error(), f.Message)
}

func TestClientUnregistersOnDisconnect(t *testing.T) {
	hub, _ := newTestHub(t)
	conn := dial(t, serveAs(t, hub, &models.User{ID: "u1"}))

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)
	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestRedisBroadcasterRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDRESS")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDRESS not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	b, err := NewRedisBroadcaster(ctx, RedisConfig{Address: addr, Channel: "contest:chat:test"})
	require.NoError(t, err)
	defer b.Close()

	received := make(chan *models.ChatMessage, 1)
	require.NoError(t, b.Subscribe(ctx, func(m *models.ChatMessage) { received <- m }))

	require.NoError(t, b.Publish(ctx, &models.ChatMessage{ID: "m1", SenderID: "u1", Message: "ping"}))

	select {
	case m := <-received:
		assert.Equal(t, "m1", m.ID)
		assert.Equal(t, "ping", m.Message)
	case <-ctx.Done():
		t.Fatal("message not received")
	}
}
