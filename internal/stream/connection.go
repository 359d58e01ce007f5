package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/SuiteSpot/extension/pkg/streaming"
)

const (
	outboxSize     = 1024
	ackBufferSize  = 16
	redialAttempts = 10
	writeTimeout   = 10 * time.Second
	ackTimeout     = 10 * time.Second
)

var errLinkClosed = errors.New("overlay link closed")

// link is one logical connection to the overlay server. It survives socket
// failures by redialing with exponential backoff, and greets every new
// socket with the hello frame so the server can resume the session.
type link struct {
	target *url.URL
	log    *slog.Logger

	baseDelay time.Duration
	maxDelay  time.Duration

	outbox chan []byte
	acks   chan streaming.AckMessage
	quit   chan struct{}

	mu     sync.Mutex
	sock   *ws.Conn
	hello  []byte
	closed bool

	// gorilla allows one writer per socket
	writeMu sync.Mutex
}

func newLink(log *slog.Logger, baseDelay, maxDelay time.Duration) *link {
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &link{
		log:       log,
		baseDelay: baseDelay,
		maxDelay:  max(maxDelay, baseDelay),
		outbox:    make(chan []byte, outboxSize),
		acks:      make(chan streaming.AckMessage, ackBufferSize),
		quit:      make(chan struct{}),
	}
}

// open resolves the target, adding the shared secret as a query parameter,
// and dials the first socket.
func (l *link) open(rawURL, secret string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid websocket URL: %w", err)
	}
	if secret != "" {
		q := u.Query()
		q.Set("secret", secret)
		u.RawQuery = q.Encode()
	}
	l.target = u

	sock, err := l.dial()
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.sock = sock
	l.mu.Unlock()

	go l.pump()
	go l.listen(sock)
	return nil
}

func (l *link) dial() (*ws.Conn, error) {
	d := *ws.DefaultDialer
	d.HandshakeTimeout = writeTimeout
	sock, _, err := d.Dial(l.target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dialing overlay: %w", err)
	}
	return sock, nil
}

func (l *link) setHello(frame []byte) {
	l.mu.Lock()
	l.hello = frame
	l.mu.Unlock()
}

func (l *link) current() *ws.Conn {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sock
}

// pump writes queued frames for the lifetime of the link. Frames queued
// while no socket is up are dropped.
func (l *link) pump() {
	for {
		select {
		case <-l.quit:
			return
		case frame := <-l.outbox:
			sock := l.current()
			if sock == nil {
				continue
			}
			if err := l.writeFrame(sock, ws.TextMessage, frame); err != nil {
				l.log.Warn("Overlay write failed", "error", err)
				go l.redial(sock)
			}
		}
	}
}

// listen forwards acks from sock until it fails.
func (l *link) listen(sock *ws.Conn) {
	for {
		_, raw, err := sock.ReadMessage()
		if err != nil {
			select {
			case <-l.quit:
			default:
				l.log.Warn("Overlay read failed", "error", err)
				go l.redial(sock)
			}
			return
		}

		var ack streaming.AckMessage
		if json.Unmarshal(raw, &ack) != nil || ack.Type != "ack" {
			l.log.Debug("Ignoring overlay message", "raw", string(raw))
			continue
		}
		select {
		case l.acks <- ack:
		default:
			l.log.Debug("Ack buffer full", "for", ack.For)
		}
	}
}

// redial replaces the failed socket. Both loops may report the same failure;
// only the first call for a given socket redials.
func (l *link) redial(failed *ws.Conn) {
	l.mu.Lock()
	if l.closed || l.sock != failed {
		l.mu.Unlock()
		return
	}
	l.sock = nil
	l.mu.Unlock()
	_ = failed.Close()

	delay := l.baseDelay
	for attempt := 1; attempt <= redialAttempts; attempt++ {
		select {
		case <-l.quit:
			return
		case <-time.After(delay):
		}

		sock, err := l.dial()
		if err != nil {
			l.log.Warn("Overlay redial failed", "attempt", attempt, "error", err)
			delay = min(delay*2, l.maxDelay)
			continue
		}

		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			_ = sock.Close()
			return
		}
		l.sock = sock
		hello := l.hello
		l.mu.Unlock()

		if hello != nil {
			if err := l.writeFrame(sock, ws.TextMessage, hello); err != nil {
				l.log.Warn("Overlay hello failed after redial", "error", err)
				l.mu.Lock()
				l.sock = nil
				l.mu.Unlock()
				_ = sock.Close()
				continue
			}
		}

		l.log.Info("Overlay feed reconnected", "attempt", attempt)
		go l.listen(sock)
		return
	}
	l.log.Error("Giving up on overlay feed", "attempts", redialAttempts)
}

// post queues a frame without blocking; a full outbox drops it.
func (l *link) post(frame []byte) {
	select {
	case l.outbox <- frame:
	default:
		l.log.Warn("Overlay outbox full, dropping frame")
	}
}

// request posts a frame and waits for the server to ack msgType.
func (l *link) request(frame []byte, msgType string, timeout time.Duration) error {
	l.post(frame)

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case ack := <-l.acks:
			if ack.For == msgType {
				return nil
			}
		case <-deadline.C:
			return fmt.Errorf("no ack for %s after %s", msgType, timeout)
		case <-l.quit:
			return fmt.Errorf("waiting for %s ack: %w", msgType, errLinkClosed)
		}
	}
}

// shutdown stops both loops and closes the socket with a normal close frame.
func (l *link) shutdown() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.quit)
	sock := l.sock
	l.sock = nil
	l.mu.Unlock()

	if sock == nil {
		return nil
	}
	_ = l.writeFrame(sock, ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
	return sock.Close()
}

func (l *link) writeFrame(sock *ws.Conn, kind int, data []byte) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if err := sock.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return sock.WriteMessage(kind, data)
}
