package live

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"rillcast/internal/core/domain"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeTimeout = 10 * time.Second
	readTimeout  = 60 * time.Second
	pingInterval = 25 * time.Second
)

// signalClient is a JSON message pipe over one websocket connection.
type signalClient struct {
	conn   *websocket.Conn
	logger *zap.SugaredLogger

	writeMu  sync.Mutex
	incoming chan SignalMessage
	done     chan struct{}
	closeMu  sync.Once
	err      error
}

func dialSignal(ctx context.Context, rawURL, token string, maxMessageSize int64, logger *zap.SugaredLogger) (*signalClient, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse signal url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial signal server: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial signal server: %w", err)
	}
	if maxMessageSize > 0 {
		conn.SetReadLimit(maxMessageSize)
	}

	c := &signalClient{
		conn:     conn,
		logger:   logger,
		incoming: make(chan SignalMessage, 32),
		done:     make(chan struct{}),
	}

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go c.readLoop()
	go c.pingLoop()
	return c, nil
}

func (c *signalClient) send(msgType string, payload interface{}) error {
	msg, err := newMessage(msgType, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msgType, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.done:
		return domain.ErrSignalClosed
	default:
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send %s: %w", msgType, err)
	}
	return nil
}

// messages is closed when the connection ends.
func (c *signalClient) messages() <-chan SignalMessage {
	return c.incoming
}

func (c *signalClient) readLoop() {
	defer close(c.incoming)
	for {
		var msg SignalMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			select {
			case <-c.done:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.logger.Warnw("signal connection lost", "error", err)
				}
				c.shutdown(err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))

		select {
		case c.incoming <- msg:
		case <-c.done:
			return
		}
	}
}

func (c *signalClient) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Debugw("signal ping failed", "error", err)
				return
			}
		}
	}
}

func (c *signalClient) close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "leaving"),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	c.shutdown(nil)
	return nil
}

func (c *signalClient) shutdown(err error) {
	c.closeMu.Do(func() {
		c.err = err
		close(c.done)
		_ = c.conn.Close()
	})
}

// closeErr is the read error that ended the connection, nil after close.
func (c *signalClient) closeErr() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}
