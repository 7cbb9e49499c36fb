package streaming

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type recorder struct {
	mu          sync.Mutex
	transcripts []string
	errs        []error
	closed      chan struct{}
	once        sync.Once
}

func newRecorder() *recorder {
	return &recorder{closed: make(chan struct{})}
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnTranscript: func(text string) {
			r.mu.Lock()
			r.transcripts = append(r.transcripts, text)
			r.mu.Unlock()
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		},
		OnClosed: func() { r.once.Do(func() { close(r.closed) }) },
	}
}

func (r *recorder) snapshot() ([]string, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.transcripts...), append([]error(nil), r.errs...)
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func newServer(t *testing.T, handler func(conn *websocket.Conn, r *http.Request)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		handler(conn, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestBuildURL(t *testing.T) {
	got, err := BuildURL(DefaultEndpoint, Credentials{Model: "nova-3", Language: "multi"})
	if err != nil {
		t.Fatalf("BuildURL() error = %v", err)
	}
	if !strings.HasPrefix(got, "wss://api.deepgram.com/v1/listen?") {
		t.Errorf("BuildURL() = %q, want deepgram listen endpoint", got)
	}
	for _, want := range []string{
		"model=nova-3",
		"language=multi",
		"encoding=linear16",
		"sample_rate=16000",
		"channels=1",
		"punctuate=true",
		"interim_results=false",
		"utterance_end_ms=1000",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("BuildURL() = %q, want to contain %q", got, want)
		}
	}

	got, _ = BuildURL(DefaultEndpoint, Credentials{Model: "nova-3", Language: "en"})
	if !strings.Contains(got, "language=en-US") {
		t.Errorf("BuildURL() = %q, want en normalized to en-US", got)
	}
}

func TestSession_ReceivesOnlyFinalTranscripts(t *testing.T) {
	authCh := make(chan string, 1)
	server := newServer(t, func(conn *websocket.Conn, r *http.Request) {
		authCh <- r.Header.Get("Authorization")
		msgs := []string{
			`{"type":"Metadata","request_id":"abc"}`,
			`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"hel"}]}}`,
			`not json`,
			`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"hello world"}]}}`,
			`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"  "}]}}`,
			`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"second"}]}}`,
		}
		for _, m := range msgs {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		// wait for CloseStream, then close normally
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if strings.Contains(string(data), "CloseStream") {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
		}
	})

	rec := newRecorder()
	session := NewSession(Config{Endpoint: wsURL(server)}, rec.handlers())
	if err := session.Connect(context.Background(), Credentials{APIKey: "secret", Model: "nova-3"}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !session.Connected() {
		t.Fatalf("State() = %v, want connected", session.State())
	}
	if auth := <-authCh; auth != "Token secret" {
		t.Errorf("Authorization = %q, want %q", auth, "Token secret")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		transcripts, _ := rec.snapshot()
		if len(transcripts) >= 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := session.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if session.State() != Closed {
		t.Errorf("State() = %v, want closed", session.State())
	}

	transcripts, errs := rec.snapshot()
	if len(transcripts) != 2 || transcripts[0] != "hello world" || transcripts[1] != "second" {
		t.Errorf("transcripts = %q, want [hello world second]", transcripts)
	}
	if len(errs) != 1 || !strings.Contains(errs[0].Error(), "parse message") {
		t.Errorf("errors = %v, want one parse error", errs)
	}
}

func TestSession_SendAudio(t *testing.T) {
	received := make(chan []byte, 4)
	server := newServer(t, func(conn *websocket.Conn, r *http.Request) {
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt == websocket.BinaryMessage {
				received <- data
				continue
			}
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	})

	session := NewSession(Config{Endpoint: wsURL(server)}, Handlers{})

	// not connected yet: dropped silently
	session.SendAudio([]byte{9, 9})

	if err := session.Connect(context.Background(), Credentials{APIKey: "k"}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	session.SendAudio([]byte{1, 2})
	session.SendAudio([]byte{3, 4})

	for _, want := range [][]byte{{1, 2}, {3, 4}} {
		select {
		case got := <-received:
			if string(got) != string(want) {
				t.Errorf("server received %v, want %v", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for audio")
		}
	}

	session.Close()
	session.SendAudio([]byte{5, 6})
	select {
	case got := <-received:
		t.Errorf("audio sent after close: %v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSession_CloseIsBounded(t *testing.T) {
	release := make(chan struct{})
	server := newServer(t, func(conn *websocket.Conn, r *http.Request) {
		// never answer CloseStream; keep the socket open
		<-release
	})
	defer close(release)

	rec := newRecorder()
	session := NewSession(Config{Endpoint: wsURL(server), CloseTimeout: 200 * time.Millisecond}, rec.handlers())
	if err := session.Connect(context.Background(), Credentials{APIKey: "k"}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	start := time.Now()
	session.Close()
	elapsed := time.Since(start)

	if elapsed > time.Second {
		t.Errorf("Close() took %v, want it bounded by the close timeout", elapsed)
	}
	if session.State() != Closed {
		t.Errorf("State() = %v, want closed", session.State())
	}

	select {
	case <-rec.closed:
	case <-time.After(time.Second):
		t.Error("receive loop did not exit after forced close")
	}
}

func TestSession_ConcurrentCloseWaits(t *testing.T) {
	release := make(chan struct{})
	server := newServer(t, func(conn *websocket.Conn, r *http.Request) {
		<-release
	})
	defer close(release)

	session := NewSession(Config{Endpoint: wsURL(server), CloseTimeout: 200 * time.Millisecond}, Handlers{})
	if err := session.Connect(context.Background(), Credentials{APIKey: "k"}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	first := make(chan struct{})
	go func() {
		session.Close()
		close(first)
	}()

	deadline := time.Now().Add(time.Second)
	for session.State() != Closing && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if session.State() != Closing {
		t.Fatalf("State() = %v, want closing", session.State())
	}

	session.Close()
	if session.State() != Closed {
		t.Errorf("State() after second Close() = %v, want closed", session.State())
	}
	<-first
}

func TestSession_CloseWhileConnecting(t *testing.T) {
	hold := make(chan struct{})
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-hold
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.ReadMessage()
	}))
	defer server.Close()

	session := NewSession(Config{Endpoint: wsURL(server)}, Handlers{})
	connectErr := make(chan error, 1)
	go func() {
		connectErr <- session.Connect(context.Background(), Credentials{APIKey: "k"})
	}()

	deadline := time.Now().Add(time.Second)
	for session.State() != Connecting && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if err := session.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if session.State() != Closed {
		t.Errorf("State() = %v, want closed", session.State())
	}

	close(hold)
	select {
	case err := <-connectErr:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Connect() error = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Connect() did not return")
	}
	if session.State() != Closed {
		t.Errorf("State() after connect = %v, want closed", session.State())
	}
}

func TestSession_CloseIdempotent(t *testing.T) {
	session := NewSession(DefaultConfig(), Handlers{})
	if err := session.Close(); err != nil {
		t.Errorf("Close() on fresh session error = %v", err)
	}
	if err := session.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if session.State() != Closed {
		t.Errorf("State() = %v, want closed", session.State())
	}
}

func TestSession_ConnectFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	rec := newRecorder()
	session := NewSession(Config{Endpoint: wsURL(server)}, rec.handlers())
	err := session.Connect(context.Background(), Credentials{APIKey: "bad"})
	if err == nil {
		t.Fatal("Connect() should fail")
	}
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
	if session.State() != Failed {
		t.Errorf("State() = %v, want failed", session.State())
	}
	if _, errs := rec.snapshot(); len(errs) != 1 {
		t.Errorf("OnError called %d times, want 1", len(errs))
	}

	// close after a failed connect still ends closed
	session.Close()
	if session.State() != Closed {
		t.Errorf("State() = %v, want closed", session.State())
	}
}

func TestSession_RemoteClose(t *testing.T) {
	server := newServer(t, func(conn *websocket.Conn, r *http.Request) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	})

	rec := newRecorder()
	session := NewSession(Config{Endpoint: wsURL(server)}, rec.handlers())
	if err := session.Connect(context.Background(), Credentials{APIKey: "k"}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	select {
	case <-rec.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("OnClosed not fired after remote close")
	}
	if session.Connected() {
		t.Error("session should not report connected after remote close")
	}
	if _, errs := rec.snapshot(); len(errs) != 0 {
		t.Errorf("remote normal close reported errors: %v", errs)
	}
}

func TestSession_ErrorMessage(t *testing.T) {
	server := newServer(t, func(conn *websocket.Conn, r *http.Request) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Error","description":"bad audio"}`))
		conn.ReadMessage()
	})

	rec := newRecorder()
	session := NewSession(Config{Endpoint: wsURL(server), CloseTimeout: 100 * time.Millisecond}, rec.handlers())
	if err := session.Connect(context.Background(), Credentials{APIKey: "k"}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer session.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, errs := rec.snapshot(); len(errs) > 0 {
			if !strings.Contains(errs[0].Error(), "bad audio") {
				t.Errorf("error = %v, want to mention bad audio", errs[0])
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("error message was not reported")
}
