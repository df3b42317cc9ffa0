package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"impressa/internal/api"
	"impressa/internal/controller"
	"impressa/internal/types"
)

// syncBuffer guards a bytes.Buffer shared with the controller goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type printBackend struct {
	mu   sync.Mutex
	jobs []types.PrintJobRequest
}

func (pb *printBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("password") != "right" {
			_, _ = io.WriteString(w, `{"detail":"Incorrect username or password"}`)
			return
		}
		_, _ = io.WriteString(w, `{"access_token":"T","token_type":"bearer"}`)
	})
	mux.HandleFunc("/printers/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"printers":[{"id":1,"name":"Lobby","status":"idle"},{"id":2,"name":"Lab","status":"busy"}]}`)
	})
	mux.HandleFunc("/print-job/", func(w http.ResponseWriter, r *http.Request) {
		var req types.PrintJobRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		pb.mu.Lock()
		pb.jobs = append(pb.jobs, req)
		pb.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(types.PrintJobResponse{PrintJob: &types.PrintJob{PrinterID: req.PrinterID}})
	})
	return mux
}

func newRunner(t *testing.T, input string, pb *printBackend) (*Runner, *syncBuffer) {
	t.Helper()
	srv := httptest.NewServer(pb.handler())
	t.Cleanup(srv.Close)

	apiClient, err := api.New(api.Options{BaseURL: srv.URL})
	require.NoError(t, err)

	out := &syncBuffer{}
	term := NewTerminal(out, 10)
	ctrl, err := controller.New(controller.Options{Backend: apiClient, View: term})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctrl.Close() })

	return &Runner{Controller: ctrl, Terminal: term, In: strings.NewReader(input)}, out
}

func TestRunnerSession(t *testing.T) {
	pb := &printBackend{}
	input := strings.Join([]string{
		"alice", "wrong",
		"alice", "right",
		"print #2 https://files/a.pdf 3",
		"print 9 https://files/b.pdf",
		"bogus",
		"status",
		"quit",
		"printers",
	}, "\n") + "\n"
	r, out := newRunner(t, input, pb)
	r.Fields = []Field{{Label: "logs", Value: "/tmp/session.log"}}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Run(ctx))

	text := out.String()
	assert.Equal(t, 1, strings.Count(text, "! Login failed"))
	assert.Contains(t, text, "logged in")
	assert.Contains(t, text, "/tmp/session.log")
	assert.Contains(t, text, "Print job sent to printer: 2")
	assert.Contains(t, text, "no such printer in the current list: 9")
	assert.Contains(t, text, `unknown command "bogus"`)
	assert.Contains(t, text, "authenticated")
	assert.Equal(t, 1, strings.Count(text, "Printers (2)"), "input after quit is not processed")

	pb.mu.Lock()
	defer pb.mu.Unlock()
	require.Len(t, pb.jobs, 1)
	assert.Equal(t, types.PrintJobRequest{PrinterID: "2", FileURL: "https://files/a.pdf", Copies: 3}, pb.jobs[0])
}

func TestRunnerUsesPresetCredentials(t *testing.T) {
	r, out := newRunner(t, "quit\n", &printBackend{})
	r.ClientID, r.Password = "alice", "right"

	require.NoError(t, r.Run(context.Background()))
	assert.NotContains(t, out.String(), "Client ID:")
	assert.Contains(t, out.String(), "logged in")
}

func TestRunnerEndOfInputDuringLogin(t *testing.T) {
	r, out := newRunner(t, "alice\nwrong\n", &printBackend{})

	require.NoError(t, r.Run(context.Background()))
	assert.Contains(t, out.String(), "! Login failed")
	assert.NotContains(t, out.String(), "logged in")
}

func TestRunnerStopsOnCancel(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })

	r, _ := newRunner(t, "", &printBackend{})
	r.In = pr
	r.ClientID, r.Password = "alice", "right"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner ignored cancellation")
	}
}
