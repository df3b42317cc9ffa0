package main

import (
	"context"
	"io"

	"go.uber.org/zap"

	"impressa/internal/api"
	"impressa/internal/client"
	"impressa/internal/config"
	"impressa/internal/constants"
	"impressa/internal/controller"
	"impressa/internal/dashboard"
	"impressa/internal/logger"
	"impressa/internal/metrics"
	"impressa/internal/session"
	"impressa/internal/stream"
	"impressa/internal/utils"
)

// app is one wired client session.
type app struct {
	log     *zap.Logger
	sessLog *logger.Session
	store   session.LogStore
	dash    *dashboard.Dashboard
	term    *client.Terminal
	ctrl    *controller.Controller
}

func newApp(ctx context.Context, cfg config.Config, base *zap.Logger, out io.Writer, withStream bool) (*app, error) {
	sess := session.New()
	a := &app{log: base}

	if cfg.Log.SessionFile {
		sl, err := logger.NewSession(base, sess.ID)
		if err != nil {
			base.Warn("session log disabled", zap.Error(err))
		} else {
			a.sessLog = sl
			a.log = sl.Logger
		}
	}

	m := metrics.New()

	apiClient, err := api.New(api.Options{
		BaseURL:            cfg.Server.URL,
		InsecureSkipVerify: cfg.Server.InsecureSkipVerify,
		Timeout:            cfg.HTTP.Timeout,
		Logger:             a.log.Named("api"),
		Metrics:            m,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	var notifier controller.Notifier
	if withStream {
		wsURL, err := utils.WebSocketURL(cfg.Server.URL, constants.EndpointWebSocket)
		if err != nil {
			a.Close()
			return nil, err
		}
		notifier = controller.StreamNotifier(stream.NewDialer(stream.Config{
			URL:                wsURL,
			InsecureSkipVerify: cfg.Server.InsecureSkipVerify,
			HandshakeTimeout:   cfg.Stream.HandshakeTimeout,
			Register:           cfg.Stream.Register,
			Logger:             a.log.Named("stream"),
			Metrics:            m,
		}))
	}

	a.store = session.NewStore(ctx, cfg.StatusLog.Redis, a.log.Named("statuslog"))
	a.term = client.NewTerminal(out, cfg.TUI.Tail)

	var view controller.View = a.term
	if cfg.Dashboard.Enabled {
		a.dash = dashboard.New(dashboard.Options{
			Addr:      cfg.Dashboard.Addr,
			SessionID: sess.ID,
			LogPath:   a.logPath(),
			Logger:    a.log.Named("dashboard"),
			Metrics:   m,
		})
		if err := a.dash.Start(); err != nil {
			a.log.Warn("dashboard disabled", zap.Error(err))
			a.dash = nil
		} else {
			view = controller.MultiView{a.term, a.dash}
		}
	}

	a.ctrl, err = controller.New(controller.Options{
		Session:   sess,
		StatusLog: session.NewStatusLog(sess.ID, a.store, nil),
		Backend:   apiClient,
		Notifier:  notifier,
		View:      view,
		Logger:    a.log.Named("controller"),
		Metrics:   m,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.dash != nil {
		a.dash.SetStateFunc(a.ctrl.State)
	}

	a.log.Debug("session ready",
		zap.String("server", cfg.Server.URL),
		zap.Bool("stream", withStream),
		zap.String("session_id", sess.ID),
	)
	return a, nil
}

// fields are shown once the user is logged in.
func (a *app) fields() []client.Field {
	var out []client.Field
	if a.dash != nil {
		out = append(out, client.Field{Label: "dashboard", Value: a.dash.URL(), Color: client.ColorPurple})
	}
	if p := a.logPath(); p != "" {
		out = append(out, client.Field{Label: "logs", Value: p, Color: client.ColorDim})
	}
	return out
}

func (a *app) logPath() string {
	if a.sessLog == nil {
		return ""
	}
	return a.sessLog.Path()
}

// Close tears the session down in reverse wiring order.
func (a *app) Close() {
	if a.ctrl != nil {
		if err := a.ctrl.Close(); err != nil {
			a.log.Debug("close stream", zap.Error(err))
		}
	}
	if a.dash != nil {
		if err := a.dash.Stop(); err != nil {
			a.log.Debug("stop dashboard", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Debug("close status store", zap.Error(err))
		}
	}
	if a.sessLog != nil {
		_ = a.sessLog.Close()
	}
}
