// Package stream connects to the backend notification socket and decodes the
// job events pushed over it.
package stream

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"impressa/internal/constants"
	"impressa/internal/metrics"
	"impressa/internal/types"
)

// Config configures a Dialer.
type Config struct {
	// URL is the ws:// or wss:// address of the notification endpoint.
	URL                string
	InsecureSkipVerify bool
	HandshakeTimeout   time.Duration
	// Register sends the client_id/token frame right after the handshake.
	Register bool
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

// Dialer opens notification streams.
type Dialer struct {
	url      string
	register bool
	dialer   *websocket.Dialer
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewDialer builds a Dialer from cfg.
func NewDialer(cfg Config) *Dialer {
	timeout := cfg.HandshakeTimeout
	if timeout == 0 {
		timeout = constants.WSHandshakeTimeout
	}

	dialer := &websocket.Dialer{
		Proxy:             http.ProxyFromEnvironment,
		ReadBufferSize:    constants.WSBufferSize,
		WriteBufferSize:   constants.WSBufferSize,
		EnableCompression: false,
		HandshakeTimeout:  timeout,
	}
	if cfg.InsecureSkipVerify {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed dev backends
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dialer{
		url:      cfg.URL,
		register: cfg.Register,
		dialer:   dialer,
		logger:   logger,
		metrics:  cfg.Metrics,
	}
}

// URL returns the endpoint this dialer connects to.
func (d *Dialer) URL() string {
	return d.url
}

// Connect performs the handshake and, when enabled, writes the registration
// frame. The returned Stream is idle until Run is called.
func (d *Dialer) Connect(ctx context.Context, reg types.StreamRegistration) (*Stream, error) {
	d.logger.Debug("dialing notification stream", zap.String("url", d.url))

	conn, resp, err := d.dialer.DialContext(ctx, d.url, nil)
	if err != nil {
		if resp != nil {
			if resp.StatusCode == http.StatusNotFound {
				return nil, fmt.Errorf("dial %s: no notification endpoint (is the server running?): %w", d.url, err)
			}
			return nil, fmt.Errorf("dial %s: server returned %d: %w", d.url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", d.url, err)
	}
	conn.SetReadLimit(int64(constants.MaxWSMessageSize))

	s := &Stream{
		conn:    conn,
		logger:  d.logger.With(zap.String("remote", conn.RemoteAddr().String())),
		metrics: d.metrics,
	}

	if d.register {
		if err := s.writeJSON(reg); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("send registration: %w", err)
		}
		s.logger.Debug("registration sent", zap.String("client_id", reg.ClientID))
	}

	s.logger.Info("notification stream connected")
	return s, nil
}

// Stream is one open notification socket. The controller is its only reader.
type Stream struct {
	conn    *websocket.Conn
	logger  *zap.Logger
	metrics *metrics.Metrics

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    bool
	closedMu  sync.Mutex
}

// Run reads frames until the socket ends and hands every decodable JSON
// frame to handle, in arrival order. Frames that are not JSON objects are
// dropped. Run returns nil after Close or a normal close from the server.
func (s *Stream) Run(handle func(types.Notification)) error {
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.isClosed() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Info("notification stream closed")
				return nil
			}
			s.logger.Warn("notification stream ended", zap.Error(err))
			return fmt.Errorf("read notification: %w", err)
		}
		if msgType != websocket.TextMessage {
			s.metrics.StreamMessage(metrics.KindIgnored)
			continue
		}

		var n types.Notification
		if err := json.Unmarshal(data, &n); err != nil {
			s.metrics.StreamMessage(metrics.KindIgnored)
			s.logger.Debug("dropping malformed frame", zap.Int("bytes", len(data)), zap.Error(err))
			continue
		}

		kind := Kind(n)
		s.metrics.StreamMessage(kind)
		switch kind {
		case metrics.KindAck:
			s.logger.Info("stream registration acknowledged", zap.String("status", n.Status))
		case metrics.KindError:
			s.logger.Warn("stream registration rejected", zap.String("error", n.Error))
		}
		handle(n)
	}
}

// Close sends a close frame and releases the socket. It is safe to call
// more than once and concurrently with Run.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closedMu.Lock()
		s.closed = true
		s.closedMu.Unlock()

		s.writeMu.Lock()
		deadline := time.Now().Add(time.Second)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if werr := s.conn.WriteControl(websocket.CloseMessage, msg, deadline); werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
			s.logger.Debug("close frame not sent", zap.Error(werr))
		}
		s.writeMu.Unlock()

		err = s.conn.Close()
	})
	return err
}

func (s *Stream) isClosed() bool {
	s.closedMu.Lock()
	defer s.closedMu.Unlock()
	return s.closed
}

func (s *Stream) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

// Kind classifies a decoded frame for logging and metrics.
func Kind(n types.Notification) string {
	switch {
	case n.PrintJob != nil && n.PrintJob.PrinterID != "":
		return metrics.KindPrintJob
	case n.Error != "":
		return metrics.KindError
	case n.Status != "":
		return metrics.KindAck
	default:
		return metrics.KindIgnored
	}
}
