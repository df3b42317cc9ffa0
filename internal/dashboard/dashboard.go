// Package dashboard serves an optional local web view of the session: the
// printer list, the status log as it grows, and the client metrics.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"impressa/internal/constants"
	"impressa/internal/metrics"
	"impressa/internal/session"
	"impressa/internal/types"
)

var upgrader = websocket.Upgrader{
	// The dashboard only listens on a local address.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: constants.WSBufferSize,
}

// clientQueueSize bounds the events buffered for one socket. A client that
// falls this far behind is dropped.
const clientQueueSize = 64

// Event is one message pushed to dashboard sockets.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Options configures a Dashboard.
type Options struct {
	Addr      string
	SessionID string
	LogPath   string
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// Dashboard is a controller View backed by an HTTP server.
type Dashboard struct {
	addr      string
	sessionID string
	logPath   string
	logger    *zap.Logger
	metrics   *metrics.Metrics
	router    chi.Router

	mu        sync.RWMutex
	entries   []session.Entry
	printers  []types.Printer
	alerts    []string
	mainShown bool
	state     func() session.State

	clientsMu sync.Mutex
	clients   map[*client]struct{}

	server   *http.Server
	listener net.Listener
}

func New(opts Options) *Dashboard {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dashboard{
		addr:      opts.Addr,
		sessionID: opts.SessionID,
		logPath:   opts.LogPath,
		logger:    logger,
		metrics:   opts.Metrics,
		printers:  []types.Printer{},
		clients:   make(map[*client]struct{}),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", d.handleIndex)
	r.Get("/ws", d.handleWebSocket)
	r.Get("/metrics", d.metrics.Handler().ServeHTTP)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", d.handleStatus)
		r.Get("/printers", d.handlePrinters)
		r.Get("/session", d.handleSession)
	})
	d.router = r
	return d
}

// Handler returns the dashboard router.
func (d *Dashboard) Handler() http.Handler {
	return d.router
}

// SetStateFunc supplies the lifecycle state reported by /api/session.
func (d *Dashboard) SetStateFunc(fn func() session.State) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = fn
}

// Start binds the listen address and serves in the background.
func (d *Dashboard) Start() error {
	ln, err := net.Listen("tcp", d.addr)
	if err != nil {
		return fmt.Errorf("dashboard listen %s: %w", d.addr, err)
	}
	d.listener = ln
	d.server = &http.Server{
		Handler:           d.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := d.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("dashboard server error", zap.Error(err))
		}
	}()
	d.logger.Info("dashboard listening", zap.String("url", d.URL()))
	return nil
}

// Stop closes dashboard sockets and shuts the server down.
func (d *Dashboard) Stop() error {
	d.clientsMu.Lock()
	for c := range d.clients {
		d.dropLocked(c)
	}
	d.clientsMu.Unlock()

	if d.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), constants.DashboardShutdown)
	defer cancel()
	return d.server.Shutdown(ctx)
}

// URL is the browsable address once started.
func (d *Dashboard) URL() string {
	if d.listener != nil {
		return "http://" + d.listener.Addr().String()
	}
	return "http://" + d.addr
}

func (d *Dashboard) ShowLogin() {}

func (d *Dashboard) ShowMain() {
	d.mu.Lock()
	d.mainShown = true
	d.mu.Unlock()
}

func (d *Dashboard) RenderPrinters(printers []types.Printer) {
	d.mu.Lock()
	d.printers = append([]types.Printer{}, printers...)
	d.mu.Unlock()

	d.broadcast(Event{Type: "printers", Data: printers})
}

func (d *Dashboard) AppendStatus(e session.Entry) {
	d.mu.Lock()
	d.entries = append(d.entries, e)
	d.mu.Unlock()

	d.broadcast(Event{Type: "status", Data: e})
}

func (d *Dashboard) Alert(msg string) {
	d.mu.Lock()
	d.alerts = append(d.alerts, msg)
	d.mu.Unlock()

	d.broadcast(Event{Type: "alert", Data: msg})
}

// client is one dashboard socket. Its writer drains send in order, so
// broadcast never waits on the network.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writeLoop() {
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			_ = c.conn.Close()
			for range c.send {
			}
			return
		}
	}
}

// broadcast queues ev for every socket in call order and drops sockets whose
// queue is full.
func (d *Dashboard) broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}

	d.clientsMu.Lock()
	defer d.clientsMu.Unlock()
	for c := range d.clients {
		select {
		case c.send <- data:
		default:
			d.logger.Debug("dropping slow dashboard client", zap.String("remote", c.conn.RemoteAddr().String()))
			d.dropLocked(c)
		}
	}
}

// dropLocked unregisters c and closes its socket. clientsMu must be held.
func (d *Dashboard) dropLocked(c *client) {
	if _, ok := d.clients[c]; !ok {
		return
	}
	delete(d.clients, c)
	close(c.send)
	_ = c.conn.Close()
}

func (d *Dashboard) clientCount() int {
	d.clientsMu.Lock()
	defer d.clientsMu.Unlock()
	return len(d.clients)
}

func (d *Dashboard) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := indexTemplate.Execute(w, indexData{
		Title:     "impressa",
		Version:   constants.Version,
		SessionID: d.sessionID,
	})
	if err != nil {
		d.logger.Warn("render dashboard", zap.Error(err))
	}
}

func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Queue the backlog and register under clientsMu so no live event is
	// sent before it.
	d.clientsMu.Lock()
	d.mu.RLock()
	backlog := make([]session.Entry, len(d.entries))
	copy(backlog, d.entries)
	d.mu.RUnlock()

	c := &client{conn: conn, send: make(chan []byte, len(backlog)+clientQueueSize)}
	for _, e := range backlog {
		data, _ := json.Marshal(Event{Type: "status", Data: e})
		c.send <- data
	}
	d.clients[c] = struct{}{}
	d.clientsMu.Unlock()

	go c.writeLoop()
	defer func() {
		d.clientsMu.Lock()
		d.dropLocked(c)
		d.clientsMu.Unlock()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (d *Dashboard) handleStatus(w http.ResponseWriter, _ *http.Request) {
	d.mu.RLock()
	entries := make([]session.Entry, len(d.entries))
	copy(entries, d.entries)
	d.mu.RUnlock()
	writeJSON(w, http.StatusOK, entries)
}

func (d *Dashboard) handlePrinters(w http.ResponseWriter, _ *http.Request) {
	d.mu.RLock()
	printers := append([]types.Printer{}, d.printers...)
	d.mu.RUnlock()
	writeJSON(w, http.StatusOK, printers)
}

type sessionInfo struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	LoggedIn  bool   `json:"logged_in"`
	LogPath   string `json:"log_path,omitempty"`
	Alerts    int    `json:"alerts"`
}

func (d *Dashboard) handleSession(w http.ResponseWriter, _ *http.Request) {
	d.mu.RLock()
	info := sessionInfo{
		SessionID: d.sessionID,
		State:     session.StateAnonymous.String(),
		LoggedIn:  d.mainShown,
		LogPath:   d.logPath,
		Alerts:    len(d.alerts),
	}
	stateFn := d.state
	d.mu.RUnlock()

	if stateFn != nil {
		info.State = stateFn().String()
	}
	writeJSON(w, http.StatusOK, info)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", constants.ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
