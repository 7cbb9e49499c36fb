// Package streaming runs one live transcription session over a Deepgram WebSocket.
package streaming

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultEndpoint     = "wss://api.deepgram.com/v1/listen"
	DefaultCloseTimeout = 3 * time.Second

	writeTimeout = 5 * time.Second
)

var (
	ErrConnectionFailed = errors.New("connection failed")
	ErrClosed           = errors.New("session closed")
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Closing
	Closed
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

type Credentials struct {
	APIKey   string
	Model    string
	Language string
}

// Handlers are invoked from the receive goroutine; they must not block for long.
type Handlers struct {
	OnTranscript func(text string)
	OnError      func(err error)
	OnClosed     func()
}

type Config struct {
	Endpoint     string
	CloseTimeout time.Duration
	Dialer       *websocket.Dialer
}

func DefaultConfig() Config {
	return Config{
		Endpoint:     DefaultEndpoint,
		CloseTimeout: DefaultCloseTimeout,
	}
}

type Session struct {
	config   Config
	handlers Handlers

	mu       sync.Mutex
	state    State
	conn      *websocket.Conn
	readDone  chan struct{}
	closeDone chan struct{}

	writeMu sync.Mutex
}

func NewSession(config Config, handlers Handlers) *Session {
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}
	if config.CloseTimeout <= 0 {
		config.CloseTimeout = DefaultCloseTimeout
	}
	if config.Dialer == nil {
		config.Dialer = websocket.DefaultDialer
	}
	return &Session{config: config, handlers: handlers}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Connected() bool {
	return s.State() == Connected
}

// Connect dials the endpoint and starts the receive loop.
func (s *Session) Connect(ctx context.Context, creds Credentials) error {
	s.mu.Lock()
	if s.state != Disconnected {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("session is %s", state)
	}
	s.state = Connecting
	s.mu.Unlock()

	wsURL, err := BuildURL(s.config.Endpoint, creds)
	if err != nil {
		return s.connectFailed(fmt.Errorf("build websocket url: %w", err))
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+creds.APIKey)

	conn, resp, err := s.config.Dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			log.Printf("streaming: dial failed with status %d", resp.StatusCode)
		}
		return s.connectFailed(err)
	}

	done := make(chan struct{})
	s.mu.Lock()
	if s.state != Connecting {
		s.mu.Unlock()
		_ = conn.Close()
		log.Printf("streaming: closed while connecting")
		return ErrClosed
	}
	s.conn = conn
	s.readDone = done
	s.state = Connected
	s.mu.Unlock()

	go s.readLoop(conn, done)

	log.Printf("streaming: connected, model=%s, language=%s", creds.Model, creds.Language)
	return nil
}

func (s *Session) connectFailed(err error) error {
	err = fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	s.mu.Lock()
	if s.state != Connecting {
		s.mu.Unlock()
		return ErrClosed
	}
	s.state = Failed
	s.mu.Unlock()
	log.Printf("streaming: %v", err)
	s.emitError(err)
	return err
}

// SendAudio forwards one PCM chunk; it is a no-op unless the session is connected.
func (s *Session) SendAudio(chunk []byte) {
	s.mu.Lock()
	if s.state != Connected {
		s.mu.Unlock()
		return
	}
	conn := s.conn
	s.mu.Unlock()

	if err := s.write(conn, websocket.BinaryMessage, chunk); err != nil {
		s.emitError(fmt.Errorf("send audio: %w", err))
	}
}

// Close ends the stream gracefully: it asks the server to flush, waits for the
// receive loop up to the close timeout, then closes the socket. It always ends
// in the Closed state. A Close during Connecting makes Connect discard the
// connection; concurrent calls wait for the first to finish.
func (s *Session) Close() error {
	s.mu.Lock()
	switch s.state {
	case Connected:
	case Closing:
		wait := s.closeDone
		s.mu.Unlock()
		<-wait
		return nil
	default:
		s.state = Closed
		s.mu.Unlock()
		return nil
	}
	s.state = Closing
	conn := s.conn
	done := s.readDone
	closed := make(chan struct{})
	s.closeDone = closed
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state = Closed
		s.mu.Unlock()
		close(closed)
	}()

	msg, _ := json.Marshal(closeStream{Type: "CloseStream"})
	sendErr := s.write(conn, websocket.TextMessage, msg)
	if sendErr != nil {
		log.Printf("streaming: send CloseStream: %v", sendErr)
	}

	if sendErr == nil {
		timer := time.NewTimer(s.config.CloseTimeout)
		select {
		case <-done:
		case <-timer.C:
			log.Printf("streaming: close timed out after %v, forcing", s.config.CloseTimeout)
		}
		timer.Stop()
	}

	_ = s.writeControl(conn, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()

	log.Printf("streaming: closed")
	return nil
}

func (s *Session) write(conn *websocket.Conn, messageType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(messageType, data)
}

func (s *Session) writeControl(conn *websocket.Conn, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteControl(websocket.CloseMessage, data, time.Now().Add(time.Second))
}

func (s *Session) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer func() {
		close(done)
		if s.handlers.OnClosed != nil {
			s.handlers.OnClosed()
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if lost := s.readEnded(err); lost != nil {
				s.emitError(lost)
			}
			return
		}
		s.handleMessage(message)
	}
}

// readEnded records why the receive loop stopped. Unless Close is already
// tearing the connection down, the socket is closed here. It returns an error
// when the connection was lost rather than closed by the server.
func (s *Session) readEnded(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Closing, Closed:
		return nil
	}
	_ = s.conn.Close()

	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.Printf("streaming: server closed the connection")
		s.state = Closed
		return nil
	}

	log.Printf("streaming: read error: %v", err)
	s.state = Failed
	return fmt.Errorf("connection lost: %w", err)
}

type closeStream struct {
	Type string `json:"type"`
}

type message struct {
	Type    string   `json:"type"`
	Channel *channel `json:"channel,omitempty"`
	IsFinal bool     `json:"is_final,omitempty"`
	// Error messages carry a description alongside the type.
	Description string `json:"description,omitempty"`
	Message     string `json:"message,omitempty"`
}

type channel struct {
	Alternatives []alternative `json:"alternatives,omitempty"`
}

type alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

func (s *Session) handleMessage(data []byte) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.emitError(fmt.Errorf("parse message: %w", err))
		return
	}

	switch msg.Type {
	case "Results":
		if !msg.IsFinal || msg.Channel == nil || len(msg.Channel.Alternatives) == 0 {
			return
		}
		text := msg.Channel.Alternatives[0].Transcript
		if strings.TrimSpace(text) == "" {
			return
		}
		if s.handlers.OnTranscript != nil {
			s.handlers.OnTranscript(text)
		}

	case "Error":
		desc := msg.Description
		if desc == "" {
			desc = msg.Message
		}
		s.emitError(fmt.Errorf("deepgram: %s", desc))

	case "Metadata", "UtteranceEnd", "SpeechStarted":

	default:
		log.Printf("streaming: unknown message type: %s", msg.Type)
	}
}

func (s *Session) emitError(err error) {
	if s.handlers.OnError != nil {
		s.handlers.OnError(err)
	}
}

// BuildURL appends the fixed audio format and the model/language to the endpoint.
func BuildURL(endpoint string, creds Credentials) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}

	q := u.Query()
	if creds.Model != "" {
		q.Set("model", creds.Model)
	}
	if lang := normalizeLanguage(creds.Language); lang != "" {
		q.Set("language", lang)
	}
	q.Set("encoding", "linear16")
	q.Set("sample_rate", "16000")
	q.Set("channels", "1")
	q.Set("punctuate", "true")
	q.Set("interim_results", "false")
	q.Set("utterance_end_ms", "1000")

	u.RawQuery = q.Encode()
	return u.String(), nil
}

func normalizeLanguage(code string) string {
	if strings.EqualFold(code, "en") || strings.EqualFold(code, "en_us") {
		return "en-US"
	}
	return code
}
