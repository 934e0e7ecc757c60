package push

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/competeiq/internal/domain/analysis"
	"github.com/bryanwahyu/competeiq/internal/testutil"
)

func newHubServer(t *testing.T) (*Hub, string) {
	t.Helper()
	h := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/ws/")
		h.ServeWS(w, r, analysis.AnalysisID(id))
	}))
	t.Cleanup(srv.Close)
	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_FanOut(t *testing.T) {
	h, base := newHubServer(t)
	c1 := dial(t, base+"/ws/a1")
	c2 := dial(t, base+"/ws/a1")
	other := dial(t, base+"/ws/a2")

	require.Eventually(t, func() bool { return h.Subscribers("a1") == 2 && h.Subscribers("a2") == 1 }, 2*time.Second, 10*time.Millisecond)

	ev := analysis.Event{Stage: analysis.StageWebScraping, Progress: 0, Status: analysis.StageInProgress, Message: "Step web_scraping in_progress"}
	require.NoError(t, h.Notify(testutil.NewTestContext(t), "a1", ev))

	for _, c := range []*websocket.Conn{c1, c2} {
		require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
		var got analysis.Event
		require.NoError(t, c.ReadJSON(&got))
		assert.Equal(t, ev, got)
	}

	require.NoError(t, other.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	var none analysis.Event
	assert.Error(t, other.ReadJSON(&none))
}

func TestHub_NoSubscribers(t *testing.T) {
	h := NewHub(nil)
	assert.NoError(t, h.Notify(testutil.NewTestContext(t), "nobody", analysis.Event{}))
}

func TestHub_ClientDisconnectUnsubscribes(t *testing.T) {
	h, base := newHubServer(t)
	c := dial(t, base+"/ws/a1")
	require.Eventually(t, func() bool { return h.Subscribers("a1") == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	c.Close()
	require.Eventually(t, func() bool { return h.Subscribers("a1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

// serverConn returns the server side of a fresh websocket connection
func serverConn(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	conns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
	}))
	t.Cleanup(srv.Close)
	dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))

	select {
	case conn := <-conns:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("no server connection")
		return nil
	}
}

func TestHub_FailedWriteDropsSubscriber(t *testing.T) {
	h := NewHub(nil)
	conn := serverConn(t, h)
	h.subscribe("a1", conn)
	require.Equal(t, 1, h.Subscribers("a1"))
	conn.Close()

	require.NoError(t, h.Notify(testutil.NewTestContext(t), "a1", analysis.Event{Stage: analysis.StageTrendPrediction}))
	require.Eventually(t, func() bool { return h.Subscribers("a1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_SlowSubscriberDoesNotBlockNotify(t *testing.T) {
	h := NewHub(nil)
	// no writer goroutine, so the queue never drains
	s := newSubscriber(serverConn(t, h), 1)
	h.add("a1", s)

	ctx := testutil.NewTestContext(t)
	done := make(chan error, 1)
	go func() {
		assert.NoError(t, h.Notify(ctx, "a1", analysis.Event{Stage: analysis.StageWebScraping}))
		done <- h.Notify(ctx, "a1", analysis.Event{Stage: analysis.StageCompetitorResearch})
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, errSlowSubscriber)
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full queue")
	}
	assert.Equal(t, 0, h.Subscribers("a1"))

	// later events skip the dropped subscriber
	assert.NoError(t, h.Notify(ctx, "a1", analysis.Event{Stage: analysis.StageTrendPrediction}))
}

func TestHub_EventsKeepOrderPerSubscriber(t *testing.T) {
	h, base := newHubServer(t)
	c := dial(t, base+"/ws/a1")
	require.Eventually(t, func() bool { return h.Subscribers("a1") == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx := testutil.NewTestContext(t)
	for i := 0; i <= 100; i += 25 {
		require.NoError(t, h.Notify(ctx, "a1", analysis.Event{Stage: analysis.StageWebScraping, Progress: i}))
	}
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	for i := 0; i <= 100; i += 25 {
		var got analysis.Event
		require.NoError(t, c.ReadJSON(&got))
		assert.Equal(t, i, got.Progress)
	}
}
