// Package controller drives one client session: login, printer listing, job
// submission and the job notification stream, rendering results into a View.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"impressa/internal/constants"
	"impressa/internal/metrics"
	"impressa/internal/session"
	"impressa/internal/types"
)

var (
	// ErrClosed is returned by Login once Close has been called.
	ErrClosed = errors.New("controller closed")
	// ErrNotListed is reported by Printers before any listing completed.
	ErrNotListed = errors.New("printers not listed yet")
)

// Options wires a Controller. Backend and View are required. A nil Notifier
// disables the notification stream.
type Options struct {
	Session   *session.Session
	StatusLog *session.StatusLog
	Backend   Backend
	Notifier  Notifier
	View      View
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// Controller is the client session controller. Its methods may be called
// from any goroutine.
type Controller struct {
	sess     *session.Session
	log      *session.StatusLog
	backend  Backend
	notifier Notifier
	logger   *zap.Logger
	metrics  *metrics.Metrics

	// viewMu serializes view updates and status appends. It also guards the
	// last listing result.
	viewMu      sync.Mutex
	view        View
	printers    []types.Printer
	printersErr error

	loginMu sync.Mutex

	// closeMu orders Close against stream attachment.
	closeMu    sync.Mutex
	closed     bool
	wg         sync.WaitGroup
	streamDone chan struct{}
}

func New(opts Options) (*Controller, error) {
	if opts.Backend == nil {
		return nil, errors.New("controller: backend is required")
	}
	if opts.View == nil {
		return nil, errors.New("controller: view is required")
	}

	sess := opts.Session
	if sess == nil {
		sess = session.New()
	}
	statusLog := opts.StatusLog
	if statusLog == nil {
		statusLog = session.NewStatusLog(sess.ID, nil, nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Controller{
		sess:       sess,
		log:        statusLog,
		backend:    opts.Backend,
		notifier:   opts.Notifier,
		logger:     logger.With(zap.String("session_id", sess.ID)),
		metrics:    opts.Metrics,
		view:        opts.View,
		printersErr: ErrNotListed,
		streamDone:  make(chan struct{}),
	}, nil
}

// Start presents the login form.
func (c *Controller) Start() {
	c.render(func(v View) { v.ShowLogin() })
}

// Login authenticates clientID. On success it reveals the main interface,
// lists printers and opens the notification stream; listing and stream
// failures are shown to the user but do not fail the login. On failure the
// user is alerted and the session stays anonymous, so Login may be retried.
func (c *Controller) Login(ctx context.Context, clientID, password string) error {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	if c.isClosed() {
		return ErrClosed
	}
	if c.sess.Authenticated() {
		return session.ErrAlreadyAuthenticated
	}

	tok, err := c.backend.Login(ctx, clientID, password)
	if err == nil && (tok == nil || tok.AccessToken == "") {
		err = errors.New("response carried no access token")
	}
	if err == nil {
		err = c.sess.SetToken(clientID, tok)
	}
	if err != nil {
		c.logger.Warn("login failed", zap.String("client_id", clientID), zap.Error(err))
		c.alert(constants.MsgLoginFailed)
		return err
	}

	c.logger.Info("logged in", zap.String("client_id", clientID))
	c.render(func(v View) { v.ShowMain() })

	_, _ = c.ListPrinters(ctx)

	if c.notifier != nil {
		err := c.connectStream(ctx)
		switch {
		case errors.Is(err, ErrClosed):
			c.logger.Debug("discarding stream opened after close")
		case err != nil:
			c.logger.Warn("notification stream unavailable", zap.Error(err))
			c.alert(fmt.Sprintf("%s: %v", constants.MsgStreamFailed, err))
		}
	}
	return nil
}

// ListPrinters fetches the printers and re-renders the list and the
// selection control in response order.
func (c *Controller) ListPrinters(ctx context.Context) ([]types.Printer, error) {
	tok := c.sess.Token()
	if tok == nil {
		c.alert(constants.MsgNotAuthenticated)
		return nil, session.ErrNotAuthenticated
	}

	printers, err := c.backend.ListPrinters(ctx, tok)
	if err != nil {
		c.logger.Warn("list printers failed", zap.Error(err))
		c.render(func(v View) {
			c.printersErr = err
			v.Alert(fmt.Sprintf("%s: %v", constants.MsgPrintersFailed, err))
		})
		return nil, err
	}

	c.logger.Debug("printers listed", zap.Int("count", len(printers)))
	c.render(func(v View) {
		c.printers, c.printersErr = printers, nil
		v.RenderPrinters(printers)
	})
	return printers, nil
}

// Printers returns the outcome of the most recent listing. A failed listing
// keeps the previously rendered printers and reports its error.
func (c *Controller) Printers() ([]types.Printer, error) {
	c.viewMu.Lock()
	defer c.viewMu.Unlock()
	return c.printers, c.printersErr
}

// SubmitJob sends req once and appends a status line naming the printer the
// backend accepted it for.
func (c *Controller) SubmitJob(ctx context.Context, req types.PrintJobRequest) (*types.PrintJob, error) {
	tok := c.sess.Token()
	if tok == nil {
		c.alert(constants.MsgNotAuthenticated)
		return nil, session.ErrNotAuthenticated
	}

	job, err := c.backend.SubmitPrintJob(ctx, tok, req)
	if err != nil {
		c.logger.Warn("print job failed", zap.String("printer_id", req.PrinterID.String()), zap.Error(err))
		c.alert(fmt.Sprintf("%s: %v", constants.MsgPrintJobFailed, err))
		return nil, err
	}

	printerID := job.PrinterID
	if printerID == "" {
		printerID = req.PrinterID
	}
	c.logger.Info("print job sent",
		zap.String("printer_id", printerID.String()),
		zap.String("job_id", job.ID.String()),
	)
	c.appendStatus(ctx, fmt.Sprintf(constants.StatusJobSent, printerID))
	return job, nil
}

// State reports the lifecycle state.
func (c *Controller) State() session.State {
	return c.sess.State()
}

func (c *Controller) Session() *session.Session {
	return c.sess
}

func (c *Controller) StatusLog() *session.StatusLog {
	return c.log
}

// StreamDone is closed when the notification stream ends. It never closes if
// no stream was opened.
func (c *Controller) StreamDone() <-chan struct{} {
	return c.streamDone
}

// Close closes the notification stream and waits for its reader to exit. A
// stream that finishes dialing after Close is discarded.
func (c *Controller) Close() error {
	c.closeMu.Lock()
	c.closed = true
	c.closeMu.Unlock()

	err := c.sess.Close()
	c.wg.Wait()
	return err
}

func (c *Controller) isClosed() bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	return c.closed
}

func (c *Controller) connectStream(ctx context.Context) error {
	reg := types.StreamRegistration{
		ClientID: c.sess.ClientID(),
		Token:    c.sess.Token().AccessToken,
	}

	sub, err := c.notifier.Connect(ctx, reg)
	if err != nil {
		return err
	}

	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		_ = sub.Close()
		return ErrClosed
	}
	if err := c.sess.AttachStream(sub); err != nil {
		_ = sub.Close()
		return err
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(c.streamDone)

		err := sub.Run(c.handleNotification)
		c.sess.DetachStream(sub)
		if err != nil {
			c.logger.Warn("notification stream lost", zap.Error(err))
			return
		}
		c.logger.Debug("notification stream finished")
	}()
	return nil
}

func (c *Controller) handleNotification(n types.Notification) {
	switch {
	case n.PrintJob != nil && n.PrintJob.PrinterID != "":
		c.appendStatus(context.Background(), fmt.Sprintf(constants.StatusJobReceived, n.PrintJob.PrinterID))
	case n.Error != "":
		c.appendStatus(context.Background(), fmt.Sprintf(constants.StatusStreamRejected, n.Error))
	default:
		c.logger.Debug("ignoring notification", zap.String("status", n.Status))
	}
}

func (c *Controller) appendStatus(ctx context.Context, text string) {
	c.viewMu.Lock()
	defer c.viewMu.Unlock()

	e, err := c.log.Append(ctx, text)
	if err != nil {
		c.logger.Warn("status log not persisted", zap.Error(err))
	}
	c.metrics.StatusLine()
	c.view.AppendStatus(e)
}

func (c *Controller) alert(msg string) {
	c.render(func(v View) { v.Alert(msg) })
}

func (c *Controller) render(fn func(View)) {
	c.viewMu.Lock()
	defer c.viewMu.Unlock()
	fn(c.view)
}
