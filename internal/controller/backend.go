package controller

import (
	"context"

	"golang.org/x/oauth2"

	"impressa/internal/stream"
	"impressa/internal/types"
)

// Backend is the request side of the print API. *api.Client implements it.
type Backend interface {
	Login(ctx context.Context, clientID, password string) (*oauth2.Token, error)
	ListPrinters(ctx context.Context, tok *oauth2.Token) ([]types.Printer, error)
	SubmitPrintJob(ctx context.Context, tok *oauth2.Token, req types.PrintJobRequest) (*types.PrintJob, error)
}

// Subscription is an open notification stream.
type Subscription interface {
	// Run delivers frames until the stream ends.
	Run(handle func(types.Notification)) error
	Close() error
}

// Notifier opens notification streams.
type Notifier interface {
	Connect(ctx context.Context, reg types.StreamRegistration) (Subscription, error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, reg types.StreamRegistration) (Subscription, error)

func (f NotifierFunc) Connect(ctx context.Context, reg types.StreamRegistration) (Subscription, error) {
	return f(ctx, reg)
}

// StreamNotifier adapts a websocket dialer.
func StreamNotifier(d *stream.Dialer) Notifier {
	return NotifierFunc(func(ctx context.Context, reg types.StreamRegistration) (Subscription, error) {
		s, err := d.Connect(ctx, reg)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
