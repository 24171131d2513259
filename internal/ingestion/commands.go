package ingestion

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// Command is an operator request read from the control input.
type Command int

const (
	// CommandLiquidate sells the whole position at the latest price,
	// bypassing the profit floor.
	CommandLiquidate Command = iota + 1
)

func (c Command) String() string {
	if c == CommandLiquidate {
		return "liquidate"
	}
	return "unknown"
}

// ParseCommand maps one input line to a command.
func ParseCommand(line string) (Command, bool) {
	if strings.TrimSpace(line) == "q" {
		return CommandLiquidate, true
	}
	return 0, false
}

// ReadCommands reads r line by line and sends recognized commands to out until
// r is exhausted or ctx is cancelled. Unrecognized lines are ignored.
func ReadCommands(ctx context.Context, r io.Reader, out chan<- Command) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		cmd, ok := ParseCommand(scanner.Text())
		if !ok {
			continue
		}
		select {
		case out <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}
