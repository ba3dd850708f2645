package models

import (
	"strconv"
	"strings"
)

// CommandType enumerates supported manager command categories.
type CommandType string

const (
	CommandSummary CommandType = "summary"
	CommandStock   CommandType = "stock"
	CommandHistory CommandType = "history"
	CommandHelp    CommandType = "help"
	CommandUnknown CommandType = "unknown"
)

// DefaultHistoryLimit is used when /history carries no usable count.
const DefaultHistoryLimit = 4

// Command represents a parsed instruction extracted from WhatsApp text.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command instance from free-form text messages.
// The leading slash is optional.
func ParseCommand(message string) Command {
	cmd := Command{Type: CommandUnknown, Raw: message}

	tokens := strings.Fields(strings.ToLower(message))
	if len(tokens) == 0 {
		return cmd
	}

	switch head := CommandType(strings.TrimPrefix(tokens[0], "/")); head {
	case CommandSummary, CommandStock, CommandHistory, CommandHelp:
		cmd.Type = head
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}
	return cmd
}

// HistoryLimit returns the count requested by "/history n".
func (c Command) HistoryLimit() int {
	if len(c.Args) == 0 {
		return DefaultHistoryLimit
	}
	n, err := strconv.Atoi(c.Args[0])
	if err != nil || n < 1 {
		return DefaultHistoryLimit
	}
	return n
}
