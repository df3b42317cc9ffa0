package client

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"impressa/internal/session"
	"impressa/internal/types"
)

func TestRenderPrintersReplacesListAndSelection(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(&out, 5)

	term.RenderPrinters([]types.Printer{
		{ID: "1", Name: "Lobby", Status: "idle"},
		{ID: "2", Name: "Lab", Status: "busy"},
	})
	term.RenderPrinters([]types.Printer{
		{ID: "9", Name: "Annex", Status: "offline"},
		{ID: "P4", Name: "Office", Status: "idle"},
		{ID: "1", Name: "Lobby", Status: "idle"},
	})

	assert.Equal(t, []types.ID{"9", "P4", "1"}, term.Selection())
	require.Len(t, term.Printers(), 3)
	assert.Equal(t, "Office", term.Printers()[1].Name)
	assert.Contains(t, out.String(), "Printers (3)")
	assert.Contains(t, out.String(), "Annex")
}

func TestSelect(t *testing.T) {
	term := NewTerminal(&bytes.Buffer{}, 5)

	_, err := term.Select("1")
	require.ErrorIs(t, err, ErrNoPrinter, "nothing rendered yet")

	term.RenderPrinters([]types.Printer{{ID: "7"}, {ID: "P2"}})

	id, err := term.Select("#2")
	require.NoError(t, err)
	assert.Equal(t, types.ID("P2"), id)

	id, err = term.Select("7")
	require.NoError(t, err)
	assert.Equal(t, types.ID("7"), id)

	for _, ref := range []string{"#0", "#3", "#x", "8"} {
		_, err := term.Select(ref)
		assert.ErrorIs(t, err, ErrNoPrinter, ref)
	}
}

func TestAppendStatusKeepsNewestTail(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(&out, 3)
	at := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

	for i := 0; i < 5; i++ {
		term.AppendStatus(session.Entry{At: at, Text: fmt.Sprintf("line %d", i)})
	}
	assert.Contains(t, out.String(), "15:04:05  line 0")

	out.Reset()
	term.RenderStatus()
	rendered := out.String()
	assert.NotContains(t, rendered, "line 1")
	assert.Contains(t, rendered, "line 2")
	assert.Contains(t, rendered, "line 4")
	assert.Less(t, bytes.Index(out.Bytes(), []byte("line 2")), bytes.Index(out.Bytes(), []byte("line 4")))
}

func TestShowMainAndAlert(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(&out, 0)

	term.ShowLogin()
	assert.False(t, term.MainShown())
	assert.Contains(t, out.String(), "Log in")

	term.Alert("Login failed")
	assert.Contains(t, out.String(), "! Login failed")

	term.ShowMain()
	assert.True(t, term.MainShown())
}
