package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spuklo/retromat/internal/app"
	"github.com/spuklo/retromat/internal/broadcast"
	"github.com/spuklo/retromat/internal/config"
	"github.com/spuklo/retromat/internal/domain"
	"github.com/spuklo/retromat/internal/snapshot"
	"github.com/spuklo/retromat/internal/store"
)

const testAdminCode = 123456

type testEnv struct {
	server  *httptest.Server
	store   *store.Store
	dataDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := clockwork.NewRealClock()
	dataDir := t.TempDir()

	cfg := &config.Config{
		AppEnv:   "test",
		Port:     "0",
		DataDir:  dataDir,
		LogLevel: "error",
	}

	snapshots := snapshot.NewStore(dataDir, clock)
	st := store.New(snapshots.LoadOrCreate(), clock)
	writer := snapshot.NewWriter(snapshots)
	t.Cleanup(writer.Stop)

	hub := broadcast.NewHub(clock, time.Hour, 16)
	t.Cleanup(hub.Stop)

	svc := app.NewService(st, hub, writer, domain.NewCardIDSource(clock), "test-version")
	srv := NewServer(cfg, svc, hub, clock, testAdminCode)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{server: ts, store: st, dataDir: dataDir}
}

func (e *testEnv) dial(t *testing.T) *ws.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws/retro"
	conn, _, err := ws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *ws.Conn) domain.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg domain.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

// readUntil skips envelopes until one of the wanted type arrives.
func readUntil(t *testing.T, conn *ws.Conn, want domain.MessageType) domain.Message {
	t.Helper()
	for range 10 {
		msg := readEnvelope(t, conn)
		if msg.Type == want {
			return msg
		}
	}
	t.Fatalf("no %s message received", want)
	return domain.Message{}
}

func TestWebSocket_HelloSequence(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	hello := readEnvelope(t, conn)
	require.Equal(t, domain.MessageVersion, hello.Type)
	assert.Equal(t, "test-version", hello.Body["v"])

	stats := readEnvelope(t, conn)
	require.Equal(t, domain.MessageStats, stats.Type)
	assert.Equal(t, 1.0, stats.Body["sessions"])
	assert.Equal(t, 0.0, stats.Body["min_safety"])
	assert.Equal(t, 0.0, stats.Body["max_safety"])
	assert.Equal(t, 0.0, stats.Body["avg_safety"])

	retro := readEnvelope(t, conn)
	require.Equal(t, domain.MessageRetro, retro.Type)
	assert.Equal(t, float64(env.store.Current().ID), retro.Body["id"])
	assert.Equal(t, []any{}, retro.Body["cards"])
}

func TestWebSocket_CardSubmissionBroadcastsToAll(t *testing.T) {
	env := newTestEnv(t)

	conn1 := env.dial(t)
	readUntil(t, conn1, domain.MessageRetro)
	conn2 := env.dial(t)
	readUntil(t, conn2, domain.MessageRetro)
	readUntil(t, conn1, domain.MessageStats) // second join re-broadcasts stats

	require.NoError(t, conn1.WriteMessage(ws.TextMessage,
		[]byte(`{"type":"CARD","body":{"type":"POSITIVE","text":"Great sprint"}}`)))

	for _, conn := range []*ws.Conn{conn1, conn2} {
		msg := readUntil(t, conn, domain.MessageCard)
		assert.Equal(t, "POSITIVE", msg.Body["type"])
		assert.Equal(t, "Great sprint", msg.Body["text"])
		assert.Equal(t, 0.0, msg.Body["votes"])
		assert.NotZero(t, msg.Body["id"])
	}

	// The mutation is committed and a snapshot lands on disk.
	retro := env.store.Current()
	require.Len(t, retro.Cards, 1)
	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(env.dataDir, snapshot.Filename(retro)))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocket_VoteBroadcastsWholeCount(t *testing.T) {
	env := newTestEnv(t)

	conn := env.dial(t)
	readUntil(t, conn, domain.MessageRetro)

	require.NoError(t, conn.WriteMessage(ws.TextMessage,
		[]byte(`{"type":"CARD","body":{"type":"NEGATIVE","text":"slow builds"}}`)))
	card := readUntil(t, conn, domain.MessageCard)
	cardID := int64(card.Body["id"].(float64))

	vote := `{"type":"VOTE","body":{"id":` + strconv.FormatInt(cardID, 10) + `,"vote":1}}`
	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte(vote)))

	updated := readUntil(t, conn, domain.MessageCard)
	assert.Equal(t, 1.0, updated.Body["votes"])
	assert.Equal(t, float64(cardID), updated.Body["id"])
}

func TestWebSocket_MalformedMessageEchoedBack(t *testing.T) {
	env := newTestEnv(t)

	conn := env.dial(t)
	readUntil(t, conn, domain.MessageRetro)

	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte("definitely not json")))

	msg := readEnvelope(t, conn)
	require.Equal(t, domain.MessageError, msg.Type)
	text, ok := msg.Body["message"].(string)
	require.True(t, ok)
	assert.Contains(t, text, "definitely not json")

	assert.Empty(t, env.store.Current().Cards)
}

func TestWebSocket_SafetyLevelUpdatesStats(t *testing.T) {
	env := newTestEnv(t)

	conn := env.dial(t)
	readUntil(t, conn, domain.MessageRetro)

	require.NoError(t, conn.WriteMessage(ws.TextMessage,
		[]byte(`{"type":"SAFETY_LEVEL","body":{"level":4}}`)))

	stats := readUntil(t, conn, domain.MessageStats)
	assert.Equal(t, 4.0, stats.Body["min_safety"])
	assert.Equal(t, 4.0, stats.Body["max_safety"])
	assert.Equal(t, 4.0, stats.Body["avg_safety"])
}

func TestGetRetro_ServesDownloadableSnapshot(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/retro")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "retro-")

	var retro domain.Retro
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, &retro))
	assert.Equal(t, env.store.Current().ID, retro.ID)
}

func TestResetRetro_RejectsInvalidCode(t *testing.T) {
	env := newTestEnv(t)
	before := env.store.Current()

	resp, err := http.PostForm(env.server.URL+"/retro", url.Values{"code": {"999999"}})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "Invalid code. Better luck next time", string(body))
	assert.Equal(t, before, env.store.Current())
}

func TestResetRetro_ReplacesRetroAndNotifiesSessions(t *testing.T) {
	env := newTestEnv(t)

	conn := env.dial(t)
	readUntil(t, conn, domain.MessageRetro)

	require.NoError(t, conn.WriteMessage(ws.TextMessage,
		[]byte(`{"type":"CARD","body":{"type":"POSITIVE","text":"old card"}}`)))
	readUntil(t, conn, domain.MessageCard)
	oldID := env.store.Current().ID

	resp, err := http.PostForm(env.server.URL+"/retro",
		url.Values{"code": {strconv.Itoa(testAdminCode)}})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fresh domain.Retro
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, &fresh))
	assert.NotEqual(t, oldID, fresh.ID)
	assert.Empty(t, fresh.Cards)

	// Connected sessions receive the fresh retro.
	msg := readUntil(t, conn, domain.MessageRetro)
	assert.Equal(t, float64(fresh.ID), msg.Body["id"])
	assert.Equal(t, []any{}, msg.Body["cards"])
}

// rejectingHub refuses every registration, like a wedged or full hub.
type rejectingHub struct{}

func (rejectingHub) Register(uuid.UUID, *ws.Conn) error { return errors.New("hub unavailable") }
func (rejectingHub) Unregister(uuid.UUID)               {}
func (rejectingHub) ClientCount() int                   { return 0 }

func TestWebSocket_RegisterFailureClosesConnection(t *testing.T) {
	clock := clockwork.NewRealClock()
	dataDir := t.TempDir()
	cfg := &config.Config{AppEnv: "test", Port: "0", DataDir: dataDir, LogLevel: "error"}

	snapshots := snapshot.NewStore(dataDir, clock)
	st := store.New(snapshots.LoadOrCreate(), clock)
	writer := snapshot.NewWriter(snapshots)
	t.Cleanup(writer.Stop)

	hub := broadcast.NewHub(clock, time.Hour, 16)
	t.Cleanup(hub.Stop)

	svc := app.NewService(st, hub, writer, domain.NewCardIDSource(clock), "test-version")
	srv := NewServer(cfg, svc, rejectingHub{}, clock, testAdminCode)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/retro"
	conn, _, err := ws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// The server must close the connection, not leave it dangling.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/health/live")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(env.server.URL + "/health/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(env.server.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
