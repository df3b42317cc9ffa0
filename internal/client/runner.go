package client

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"impressa/internal/controller"
	"impressa/internal/types"
)

// Field is an extra labelled value shown once the session is logged in, such
// as the session log path or the dashboard address.
type Field struct {
	Label string
	Value string
	Color string
}

// Runner drives an interactive terminal session: the login form, then the
// command console, until quit, end of input or ctx cancellation.
type Runner struct {
	Controller *controller.Controller
	Terminal   *Terminal
	In         io.Reader
	Logger     *zap.Logger

	// ClientID and Password pre-fill the first login attempt.
	ClientID string
	Password string
	Fields   []Field
}

var errQuit = errors.New("quit")

// Run blocks until the session ends. End of input and ctx cancellation are a
// normal exit.
func (r *Runner) Run(ctx context.Context) error {
	if r.Logger == nil {
		r.Logger = zap.NewNop()
	}
	lines := readLines(ctx, r.In)

	r.Controller.Start()
	if err := r.login(ctx, lines); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	for _, f := range r.Fields {
		r.Terminal.Field(f.Label, f.Value, f.Color)
	}

	streamDone := r.Controller.StreamDone()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-streamDone:
			r.Terminal.Hint(ColorYellow + "notification stream closed" + ColorReset)
			streamDone = nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := r.handle(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				return err
			}
		}
	}
}

// login keeps the form interactive until a login succeeds.
func (r *Runner) login(ctx context.Context, lines <-chan string) error {
	clientID, password := r.ClientID, r.Password
	for {
		var err error
		if clientID == "" {
			r.Terminal.Prompt("Client ID")
			if clientID, err = nextLine(ctx, lines); err != nil {
				return err
			}
		}
		if password == "" {
			r.Terminal.Prompt("Password")
			if password, err = nextLine(ctx, lines); err != nil {
				return err
			}
		}

		err = r.Controller.Login(ctx, clientID, password)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.Logger.Debug("login attempt rejected", zap.String("client_id", clientID))
		clientID, password = "", ""
	}
}

func (r *Runner) handle(ctx context.Context, line string) error {
	cmd, err := ParseCommand(line)
	if err != nil {
		r.Terminal.Alert(err.Error())
		return nil
	}

	switch cmd.Kind {
	case CmdPrinters:
		_, _ = r.Controller.ListPrinters(ctx)
	case CmdPrint:
		printerID, err := r.Terminal.Select(cmd.PrinterRef)
		if err != nil {
			r.Terminal.Alert(err.Error())
			return nil
		}
		_, _ = r.Controller.SubmitJob(ctx, types.PrintJobRequest{
			PrinterID: printerID,
			FileURL:   cmd.FileURL,
			Copies:    cmd.Copies,
		})
	case CmdStatus:
		r.Terminal.Field("state", r.Controller.State().String(), ColorCyan)
		r.Terminal.RenderStatus()
	case CmdHelp:
		for _, l := range strings.Split(helpText, "\n") {
			r.Terminal.Hint(l)
		}
	case CmdQuit:
		return errQuit
	}
	return nil
}

func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func nextLine(ctx context.Context, lines <-chan string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
}
