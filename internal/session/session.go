// Package session wraps one websocket client connection as a push-only
// channel for rendered markup.
package session

import (
	"errors"
	"sync"
	"time"

	"watchfile/internal/logging"

	"github.com/gorilla/websocket"
)

const (
	DefaultWriteTimeout = 10 * time.Second
	DefaultPingInterval = 30 * time.Second
	// Clients never send data frames; anything larger is a protocol abuse.
	maxClientMessageSize = 4096
)

// ErrClosed is returned by Send once the peer has gone away or the session
// was closed locally.
var ErrClosed = errors.New("session closed")

type Options struct {
	WriteTimeout time.Duration
	// PingInterval controls keepalive pings; a peer that does not answer
	// within two intervals is treated as disconnected. Zero uses the default,
	// a negative value disables pings.
	PingInterval time.Duration
	Logger       *logging.Logger
}

// Session owns a websocket connection. Send may be called from one goroutine
// at a time; Close and Done are safe from any goroutine.
type Session struct {
	conn         *websocket.Conn
	writeMu      sync.Mutex
	writeTimeout time.Duration
	pingInterval time.Duration
	done         chan struct{}
	closeOnce    sync.Once
	logger       *logging.Logger
}

// New takes ownership of conn and starts the read loop that services
// ping, pong and close control frames.
func New(conn *websocket.Conn, options Options) *Session {
	writeTimeout := options.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	pingInterval := options.PingInterval
	if pingInterval == 0 {
		pingInterval = DefaultPingInterval
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	session := &Session{
		conn:         conn,
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		done:         make(chan struct{}),
		logger:       logger,
	}
	go session.readLoop()
	if pingInterval > 0 {
		go session.pingLoop()
	}
	return session
}

// Send writes markup as a single text frame.
func (s *Session) Send(markup string) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		s.shutdown()
		return ErrClosed
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(markup)); err != nil {
		s.logger.Debug("websocket write failed", map[string]string{
			"error": err.Error(),
		})
		s.shutdown()
		return ErrClosed
	}
	return nil
}

// Done is closed when the peer disconnects or Close is called.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close sends a normal close frame, best effort, and releases the connection.
func (s *Session) Close() error {
	s.writeMu.Lock()
	deadline := time.Now().Add(s.writeTimeout)
	_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	s.writeMu.Unlock()
	s.shutdown()
	return nil
}

func (s *Session) shutdown() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

func (s *Session) readLoop() {
	defer s.shutdown()
	s.conn.SetReadLimit(maxClientMessageSize)
	if s.pingInterval > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(2 * s.pingInterval))
		s.conn.SetPongHandler(func(string) error {
			return s.conn.SetReadDeadline(time.Now().Add(2 * s.pingInterval))
		})
	}
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				s.logger.Debug("websocket read ended", map[string]string{
					"error": err.Error(),
				})
			}
			return
		}
	}
}

func (s *Session) pingLoop() {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeTimeout))
			s.writeMu.Unlock()
			if err != nil {
				s.shutdown()
				return
			}
		case <-s.done:
			return
		}
	}
}
