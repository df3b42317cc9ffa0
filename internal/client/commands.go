package client

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// CommandKind identifies a console command.
type CommandKind int

const (
	CmdNone CommandKind = iota
	CmdPrinters
	CmdPrint
	CmdStatus
	CmdHelp
	CmdQuit
)

// Command is one parsed console line.
type Command struct {
	Kind CommandKind

	// Print arguments.
	PrinterRef string
	FileURL    string
	Copies     int
}

var ErrUsage = errors.New("invalid command")

const helpText = `printers                             list printers
print <printer> <file-url> [copies]  send a print job (printer: id or #n)
status                               show recent status lines
help                                 show this help
quit                                 leave the session`

// ParseCommand parses a console line. Empty lines yield CmdNone.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{Kind: CmdNone}, nil
	}

	switch strings.ToLower(fields[0]) {
	case "printers", "ls":
		return Command{Kind: CmdPrinters}, nil
	case "print", "p":
		if len(fields) < 3 || len(fields) > 4 {
			return Command{}, fmt.Errorf("%w: usage: print <printer> <file-url> [copies]", ErrUsage)
		}
		copies := 1
		if len(fields) == 4 {
			n, err := ParseCopies(fields[3])
			if err != nil {
				return Command{}, err
			}
			copies = n
		}
		return Command{Kind: CmdPrint, PrinterRef: fields[1], FileURL: fields[2], Copies: copies}, nil
	case "status":
		return Command{Kind: CmdStatus}, nil
	case "help", "?":
		return Command{Kind: CmdHelp}, nil
	case "quit", "exit", "q":
		return Command{Kind: CmdQuit}, nil
	default:
		return Command{}, fmt.Errorf("%w: unknown command %q", ErrUsage, fields[0])
	}
}

// ParseCopies accepts a whole number of at least one.
func ParseCopies(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: copies must be a whole number >= 1, got %q", ErrUsage, s)
	}
	return n, nil
}
