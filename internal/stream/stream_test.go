package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"impressa/internal/metrics"
	"impressa/internal/types"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// newServer runs fn for every accepted socket and returns its ws:// URL.
func newServer(t *testing.T, fn func(conn *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		fn(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func closeNormally(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

func TestConnectSendsRegistration(t *testing.T) {
	got := make(chan types.StreamRegistration, 1)
	url := newServer(t, func(conn *websocket.Conn) {
		var reg types.StreamRegistration
		if err := conn.ReadJSON(&reg); err == nil {
			got <- reg
		}
		closeNormally(conn)
	})

	d := NewDialer(Config{URL: url, Register: true})
	s, err := d.Connect(context.Background(), types.StreamRegistration{ClientID: "alice", Token: "T"})
	require.NoError(t, err)
	defer s.Close()

	select {
	case reg := <-got:
		assert.Equal(t, types.StreamRegistration{ClientID: "alice", Token: "T"}, reg)
	case <-time.After(2 * time.Second):
		t.Fatal("registration frame not received")
	}
	require.NoError(t, s.Run(func(types.Notification) {}))
}

func TestRunDispatchesDecodedFrames(t *testing.T) {
	url := newServer(t, func(conn *websocket.Conn) {
		frames := []string{
			`{"status":"connected"}`,
			`not json`,
			`{"print_job":{"id":1,"printer_id":"P3","file_url":"u","copies":1}}`,
			`{"hello":"world"}`,
			`{"print_job":{"printer_id":4}}`,
		}
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte{0x01})
		closeNormally(conn)
	})

	m := metrics.New()
	d := NewDialer(Config{URL: url, Metrics: m})
	s, err := d.Connect(context.Background(), types.StreamRegistration{})
	require.NoError(t, err)
	defer s.Close()

	var got []types.Notification
	require.NoError(t, s.Run(func(n types.Notification) { got = append(got, n) }))

	require.Len(t, got, 4, "malformed and binary frames are dropped")
	assert.Equal(t, "connected", got[0].Status)
	require.NotNil(t, got[1].PrintJob)
	assert.Equal(t, types.ID("P3"), got[1].PrintJob.PrinterID)
	assert.Nil(t, got[2].PrintJob)
	assert.Equal(t, types.ID("4"), got[3].PrintJob.PrinterID)

	expected := `
# HELP impressa_stream_messages_total Frames received on the notification stream, labeled by kind.
# TYPE impressa_stream_messages_total counter
impressa_stream_messages_total{kind="ack"} 1
impressa_stream_messages_total{kind="ignored"} 3
impressa_stream_messages_total{kind="print_job"} 2
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "impressa_stream_messages_total"))
}

func TestRunKeepsJobsWithOddFields(t *testing.T) {
	url := newServer(t, func(conn *websocket.Conn) {
		frames := []string{
			`{"print_job":{"printer_id":"P3","copies":1.5}}`,
			`{"print_job":{"printer_id":"P4","client_id":42}}`,
		}
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		closeNormally(conn)
	})

	d := NewDialer(Config{URL: url})
	s, err := d.Connect(context.Background(), types.StreamRegistration{})
	require.NoError(t, err)
	defer s.Close()

	var printers []types.ID
	require.NoError(t, s.Run(func(n types.Notification) {
		require.Equal(t, metrics.KindPrintJob, Kind(n))
		printers = append(printers, n.PrintJob.PrinterID)
	}))
	assert.Equal(t, []types.ID{"P3", "P4"}, printers)
}

func TestCloseStopsRun(t *testing.T) {
	release := make(chan struct{})
	url := newServer(t, func(conn *websocket.Conn) {
		<-release
	})
	t.Cleanup(func() { close(release) })

	d := NewDialer(Config{URL: url})
	s, err := d.Connect(context.Background(), types.StreamRegistration{})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Run(func(types.Notification) {}) }()

	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "second close is a no-op")

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestConnectReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	d := NewDialer(Config{URL: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"})
	_, err := d.Connect(context.Background(), types.StreamRegistration{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no notification endpoint")
}

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		n    types.Notification
		want string
	}{
		{"job", types.Notification{PrintJob: &types.PrintJob{PrinterID: "1"}}, metrics.KindPrintJob},
		{"job without printer", types.Notification{PrintJob: &types.PrintJob{}}, metrics.KindIgnored},
		{"ack", types.Notification{Status: "connected"}, metrics.KindAck},
		{"error", types.Notification{Error: "Invalid token"}, metrics.KindError},
		{"empty", types.Notification{}, metrics.KindIgnored},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.n))
		})
	}
}
