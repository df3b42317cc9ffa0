package client

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"impressa/internal/constants"
	"impressa/internal/session"
	"impressa/internal/types"
)

const (
	ColorReset  = constants.ColorReset
	ColorBold   = constants.ColorBold
	ColorDim    = constants.ColorDim
	ColorCyan   = constants.ColorCyan
	ColorGreen  = constants.ColorGreen
	ColorYellow = constants.ColorYellow
	ColorRed    = constants.ColorRed
	ColorPurple = constants.ColorPurple
)

// ErrNoPrinter is returned when a printer reference is not in the rendered
// selection.
var ErrNoPrinter = errors.New("no such printer in the current list")

// Terminal renders the session on a line-oriented terminal. Status lines are
// printed as they arrive, so the newest is always at the bottom.
type Terminal struct {
	out  io.Writer
	tail int

	mu        sync.Mutex
	printers  []types.Printer
	selection []types.ID
	status    []session.Entry
	alerts    []string
	mainShown bool
}

// NewTerminal writes to out and keeps the newest tail status lines for the
// status command.
func NewTerminal(out io.Writer, tail int) *Terminal {
	if tail <= 0 {
		tail = constants.DefaultTailSize
	}
	return &Terminal{out: out, tail: tail}
}

func (t *Terminal) ShowLogin() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.printBanner()
	t.printStep("Log in")
	t.printHint("Enter your client id and password")
}

func (t *Terminal) ShowMain() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.mainShown = true
	fmt.Fprintln(t.out)
	fmt.Fprintf(t.out, "  %s● logged in%s\n", ColorGreen, ColorReset)
	t.printHint("Type 'help' for commands")
	t.printSep()
}

// RenderPrinters replaces the printer table and the numbered selection.
func (t *Terminal) RenderPrinters(printers []types.Printer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.printers = append(t.printers[:0], printers...)
	t.selection = t.selection[:0]
	for _, p := range printers {
		t.selection = append(t.selection, p.ID)
	}

	fmt.Fprintln(t.out)
	t.printStep(fmt.Sprintf("Printers (%d)", len(printers)))
	if len(printers) == 0 {
		t.printHint("no printers available")
		return
	}
	for i, p := range printers {
		fmt.Fprintf(t.out, "  %s#%-3d%s %-8s %-24s %s%s%s\n",
			ColorDim, i+1, ColorReset, p.ID, p.Name, statusColor(p.Status), p.Status, ColorReset)
	}
}

func (t *Terminal) AppendStatus(e session.Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = append(t.status, e)
	if len(t.status) > t.tail {
		t.status = t.status[1:]
	}
	t.printStatus(e)
}

func (t *Terminal) Alert(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.alerts = append(t.alerts, msg)
	fmt.Fprintf(t.out, "  %s! %s%s\n", ColorRed, msg, ColorReset)
}

// Select resolves ref against the current selection. ref is either a
// 1-based position ("#2") or a printer id.
func (t *Terminal) Select(ref string) (types.ID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ref = strings.TrimSpace(ref)
	if n, ok := strings.CutPrefix(ref, "#"); ok {
		i, err := strconv.Atoi(n)
		if err != nil || i < 1 || i > len(t.selection) {
			return "", fmt.Errorf("%w: %s", ErrNoPrinter, ref)
		}
		return t.selection[i-1], nil
	}
	for _, id := range t.selection {
		if string(id) == ref {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoPrinter, ref)
}

// Selection returns the ids offered by the selection control, in order.
func (t *Terminal) Selection() []types.ID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]types.ID(nil), t.selection...)
}

// Printers returns the rows of the printer table, in order.
func (t *Terminal) Printers() []types.Printer {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]types.Printer(nil), t.printers...)
}

// RenderStatus reprints the newest status lines.
func (t *Terminal) RenderStatus() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.printSep()
	if len(t.status) == 0 {
		t.printHint("no status yet")
	}
	for _, e := range t.status {
		t.printStatus(e)
	}
	t.printSep()
}

func (t *Terminal) MainShown() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mainShown
}

// Prompt writes an input prompt without a newline.
func (t *Terminal) Prompt(label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "  %s%s:%s ", ColorBold, label, ColorReset)
}

// Hint writes a dimmed help line.
func (t *Terminal) Hint(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.printHint(text)
}

// Field writes a labelled value.
func (t *Terminal) Field(label, value, valueColor string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "  %s%-12s%s %s%s%s\n", ColorDim, label, ColorReset, valueColor, value, ColorReset)
}

func (t *Terminal) printBanner() {
	fmt.Fprintln(t.out)
	fmt.Fprintf(t.out, "  %s%simpressa%s %sv%s%s\n", ColorBold, ColorCyan, ColorReset, ColorBold, constants.Version, ColorReset)
	fmt.Fprintf(t.out, "  %sPrint client%s\n", ColorDim, ColorReset)
	fmt.Fprintln(t.out)
}

func (t *Terminal) printStep(text string) {
	fmt.Fprintf(t.out, "  %s%s▸%s %s\n", ColorBold, ColorCyan, ColorReset, text)
}

func (t *Terminal) printHint(text string) {
	fmt.Fprintf(t.out, "  %s%s%s\n", ColorDim, text, ColorReset)
}

func (t *Terminal) printSep() {
	fmt.Fprintf(t.out, "  %s%s%s\n", ColorDim, strings.Repeat("─", 50), ColorReset)
}

func (t *Terminal) printStatus(e session.Entry) {
	fmt.Fprintf(t.out, "  %s%s%s  %s\n", ColorDim, e.At.Format(constants.TimeFormatShort), ColorReset, e.Text)
}

func statusColor(status string) string {
	switch strings.ToLower(status) {
	case "idle", "ready", "online":
		return ColorGreen
	case "busy", "printing":
		return ColorYellow
	case "offline", "error":
		return ColorRed
	default:
		return ColorReset
	}
}
