package realtime

import (
	"context"
	"log"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"minglr/pkg/logger"
)

const (
	readLimit     = 65536
	pongWait      = 60 * time.Second
	pingInterval  = 30 * time.Second
	writeWait     = 10 * time.Second
	baseDelay     = time.Second
	maxDelay      = 30 * time.Second
	stableConnAge = 60 * time.Second
)

// Listener holds the realtime socket open and feeds validated events to a
// single handler. It reconnects with exponential backoff and jitter; the
// backoff resets once a connection survives for a while.
type Listener struct {
	url     string
	token   string
	dialer  *websocket.Dialer
	handler func(Event)
}

func NewListener(url, token string, handler func(Event)) *Listener {
	return &Listener{
		url:     url,
		token:   token,
		dialer:  websocket.DefaultDialer,
		handler: handler,
	}
}

// Run blocks until ctx is cancelled, dialing and re-dialing the socket.
func (l *Listener) Run(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		connectedAt := time.Now()
		if err := l.connectAndRead(ctx); err != nil {
			log.Printf("Realtime connection lost: %v", err)
		}
		if ctx.Err() != nil {
			return
		}

		if time.Since(connectedAt) > stableConnAge {
			attempt = 0
		}
		delay := backoffDelay(attempt)
		attempt++
		log.Printf("Realtime reconnecting in %v (attempt %d)", delay, attempt)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

func backoffDelay(attempt int) time.Duration {
	jitter := time.Duration(rand.Float64() * float64(baseDelay) * 0.5)
	delay := time.Duration(math.Min(
		float64(baseDelay)*math.Pow(2, float64(attempt))+float64(jitter),
		float64(maxDelay),
	))
	return delay
}

func (l *Listener) connectAndRead(ctx context.Context) error {
	header := http.Header{}
	if l.token != "" {
		header.Set("Authorization", "Bearer "+l.token)
	}

	conn, resp, err := l.dialer.DialContext(ctx, l.url, header)
	if err != nil {
		return err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	log.Printf("Realtime connected: %s", l.url)

	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go l.pingLoop(ctx, conn, done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("Realtime: unexpected close: %v", err)
			}
			return err
		}

		event, err := ParseEvent(data)
		if err != nil {
			logger.Debug("Realtime: dropping frame: %v", err)
			continue
		}
		l.handler(event)
	}
}

func (l *Listener) pingLoop(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-ctx.Done():
			conn.Close()
			return
		}
	}
}
