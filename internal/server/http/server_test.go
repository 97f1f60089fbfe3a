package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ajdavis/chirp/internal/hub"
	"github.com/ajdavis/chirp/internal/recent"
	"github.com/ajdavis/chirp/internal/runtime"
	"github.com/ajdavis/chirp/internal/tailer"
)

// startBoard wires a full board (runtime, store, buffer, hub, tailer,
// HTTP surface) over a temp directory and serves it from httptest.
func startBoard(t *testing.T) *httptest.Server {
	t.Helper()

	rt, err := runtime.Open(runtime.Options{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })

	store := rt.OpenStore()
	buf := recent.NewBuffer(rt.Config().RecentSize)
	h := hub.New(nil)
	mgr := tailer.New(store, buf, h, tailer.Options{
		PollWait: 50 * time.Millisecond,
		Backoff:  50 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	tailDone := make(chan struct{})
	go func() { defer close(tailDone); _ = mgr.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-tailDone
	})

	srv := New(Deps{Runtime: rt, Store: store, Buffer: buf, Hub: h, Tailer: mgr})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

type chirpsResp struct {
	Chirps []chirpJSON `json:"chirps"`
}

func getChirps(t *testing.T, ts *httptest.Server) []chirpJSON {
	t.Helper()
	resp, err := http.Get(ts.URL + "/chirps")
	if err != nil {
		t.Fatalf("GET /chirps: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /chirps status %d", resp.StatusCode)
	}
	var out []chirpJSON
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode /chirps: %v", err)
	}
	return out
}

func postNew(t *testing.T, ts *httptest.Server, msg string) int {
	t.Helper()
	resp, err := http.Post(ts.URL+"/new", "text/plain", strings.NewReader(msg))
	if err != nil {
		t.Fatalf("POST /new: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

// waitForChirps polls the list endpoint until want messages show up.
func waitForChirps(t *testing.T, ts *httptest.Server, want int) []chirpJSON {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		got := getChirps(t, ts)
		if len(got) >= want {
			return got
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("never saw %d chirps", want)
	return nil
}

func TestListStartsEmpty(t *testing.T) {
	ts := startBoard(t)
	if got := getChirps(t, ts); len(got) != 0 {
		t.Fatalf("fresh board has %d chirps", len(got))
	}
}

// The list endpoint is a bare JSON array; only the websocket "chirps"
// event wraps records in an object.
func TestListBodyIsBareArray(t *testing.T) {
	ts := startBoard(t)
	resp, err := http.Get(ts.URL + "/chirps")
	if err != nil {
		t.Fatalf("GET /chirps: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "[") {
		t.Fatalf("body = %q, want a bare JSON array", trimmed)
	}
}

func TestPostThenList(t *testing.T) {
	ts := startBoard(t)

	if code := postNew(t, ts, "hello board"); code != http.StatusOK {
		t.Fatalf("POST /new status %d", code)
	}
	got := waitForChirps(t, ts, 1)
	if got[0].Msg != "hello board" {
		t.Fatalf("chirp %q, want %q", got[0].Msg, "hello board")
	}
	if got[0].ID == "" || got[0].Ts == "" {
		t.Fatalf("chirp missing id/ts: %+v", got[0])
	}
}

func TestListIsOldestFirstAndBounded(t *testing.T) {
	ts := startBoard(t)

	for i := 0; i < 25; i++ {
		postNew(t, ts, "m"+string(rune('a'+i)))
	}
	// Wait until the newest chirp has flowed through the tail loop.
	var got []chirpJSON
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		got = getChirps(t, ts)
		if len(got) > 0 && got[len(got)-1].Msg == "my" {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if len(got) != 20 {
		t.Fatalf("got %d chirps, want the 20-record window", len(got))
	}
	// Oldest first: the first five chirps fell off the window.
	if got[0].Msg != "mf" {
		t.Fatalf("window starts at %q, want %q", got[0].Msg, "mf")
	}
}

// Empty messages are legal chirps, as on the original board.
func TestEmptyBodyAccepted(t *testing.T) {
	ts := startBoard(t)
	if code := postNew(t, ts, ""); code != http.StatusOK {
		t.Fatalf("empty POST /new status %d, want 200", code)
	}
	got := waitForChirps(t, ts, 1)
	if got[0].Msg != "" {
		t.Fatalf("chirp %q, want empty message", got[0].Msg)
	}
}

func TestOversizeBodyRejected(t *testing.T) {
	ts := startBoard(t)
	if code := postNew(t, ts, strings.Repeat("x", maxChirpBytes+1)); code != http.StatusBadRequest {
		t.Fatalf("oversize POST /new status %d, want 400", code)
	}
}

func TestClearEmptiesBoard(t *testing.T) {
	ts := startBoard(t)

	postNew(t, ts, "doomed")
	waitForChirps(t, ts, 1)

	resp, err := http.Post(ts.URL+"/clear", "text/plain", nil)
	if err != nil {
		t.Fatalf("POST /clear: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /clear status %d", resp.StatusCode)
	}
	if got := getChirps(t, ts); len(got) != 0 {
		t.Fatalf("board has %d chirps after clear", len(got))
	}

	// The board keeps working after a clear.
	postNew(t, ts, "reborn")
	got := waitForChirps(t, ts, 1)
	if got[0].Msg != "reborn" {
		t.Fatalf("post-clear chirp %q", got[0].Msg)
	}
}

func TestHealthz(t *testing.T) {
	ts := startBoard(t)
	resp, err := http.Get(ts.URL + "/v1/healthz")
	if err != nil {
		t.Fatalf("GET /v1/healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status %d", resp.StatusCode)
	}
}

func TestIndexServesHTML(t *testing.T) {
	ts := startBoard(t)
	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("index status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("index content type %q", ct)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := startBoard(t)
	resp, err := http.Get(ts.URL + "/new")
	if err != nil {
		t.Fatalf("GET /new: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET /new status %d, want 405", resp.StatusCode)
	}
}

func dialTail(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/tail"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode frame %s: %v", data, err)
	}
	return env
}

func chirpsIn(t *testing.T, env envelope) []chirpJSON {
	t.Helper()
	var data chirpsResp
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode chirps payload: %v", err)
	}
	return data.Chirps
}

func TestTailOpeningSnapshotAndLiveDelta(t *testing.T) {
	ts := startBoard(t)

	postNew(t, ts, "before connect")
	waitForChirps(t, ts, 1)

	conn := dialTail(t, ts)

	env := readFrame(t, conn)
	if env.Event != "chirps" {
		t.Fatalf("opening frame event %q", env.Event)
	}
	if got := chirpsIn(t, env); len(got) != 1 || got[0].Msg != "before connect" {
		t.Fatalf("opening snapshot %+v", got)
	}

	postNew(t, ts, "live one")
	env = readFrame(t, conn)
	if env.Event != "chirps" {
		t.Fatalf("delta frame event %q", env.Event)
	}
	if got := chirpsIn(t, env); len(got) != 1 || got[0].Msg != "live one" {
		t.Fatalf("delta %+v", got)
	}
}

func TestTailClearedEvent(t *testing.T) {
	ts := startBoard(t)
	conn := dialTail(t, ts)
	readFrame(t, conn) // opening snapshot

	resp, err := http.Post(ts.URL+"/clear", "text/plain", nil)
	if err != nil {
		t.Fatalf("POST /clear: %v", err)
	}
	resp.Body.Close()

	env := readFrame(t, conn)
	if env.Event != "cleared" {
		t.Fatalf("got event %q, want cleared", env.Event)
	}
}

func TestTailFilter(t *testing.T) {
	ts := startBoard(t)
	conn := dialTail(t, ts)
	readFrame(t, conn) // opening snapshot

	intent := `{"intent":"set_filter","filter":"text.contains(\"keep\")"}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(intent)); err != nil {
		t.Fatalf("send intent: %v", err)
	}
	// Give the read pump time to install the filter.
	time.Sleep(100 * time.Millisecond)

	postNew(t, ts, "drop this")
	postNew(t, ts, "keep this")

	env := readFrame(t, conn)
	if env.Event != "chirps" {
		t.Fatalf("got event %q", env.Event)
	}
	got := chirpsIn(t, env)
	for _, c := range got {
		if !strings.Contains(c.Msg, "keep") {
			t.Fatalf("filter let through %q", c.Msg)
		}
	}
	if len(got) == 0 {
		t.Fatal("filter dropped the matching chirp")
	}
}

func TestTailBadFilterReportsAppError(t *testing.T) {
	ts := startBoard(t)
	conn := dialTail(t, ts)
	readFrame(t, conn) // opening snapshot

	intent := `{"intent":"set_filter","filter":"no_such_var > 1"}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(intent)); err != nil {
		t.Fatalf("send intent: %v", err)
	}

	env := readFrame(t, conn)
	if env.Event != "app_error" {
		t.Fatalf("got event %q, want app_error", env.Event)
	}
	var msg string
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		t.Fatalf("decode app_error payload: %v", err)
	}
	if !strings.Contains(msg, "filter not valid at server") {
		t.Fatalf("app_error message %q", msg)
	}
}

func TestTailGetChirpsIntent(t *testing.T) {
	ts := startBoard(t)
	postNew(t, ts, "snapshot me")
	waitForChirps(t, ts, 1)

	conn := dialTail(t, ts)
	readFrame(t, conn) // opening snapshot

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"intent":"get_chirps"}`)); err != nil {
		t.Fatalf("send intent: %v", err)
	}
	env := readFrame(t, conn)
	if env.Event != "chirps" {
		t.Fatalf("got event %q", env.Event)
	}
	if got := chirpsIn(t, env); len(got) != 1 || got[0].Msg != "snapshot me" {
		t.Fatalf("snapshot %+v", got)
	}
}
