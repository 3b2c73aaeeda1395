package dispatch

import "strings"

type Verb string

const (
	GetTemp    Verb = "gettemp"
	LogStart   Verb = "logstart"
	LogStop    Verb = "logstop"
	ReadFile   Verb = "readfile"
	CheckState Verb = "checkstate"
)

// Known reports whether v is one of the verbs the dispatcher accepts.
func (v Verb) Known() bool {
	switch v {
	case GetTemp, LogStart, LogStop, ReadFile, CheckState:
		return true
	}
	return false
}

// Command is a parsed command line. The first whitespace-separated token is the verb,
// the rest are positional arguments.
type Command struct {
	Verb Verb
	Args []string
	Raw  string
}

func Parse(raw string) Command {
	fields := strings.Fields(raw)
	cmd := Command{Raw: raw}
	if len(fields) == 0 {
		return cmd
	}
	cmd.Verb = Verb(fields[0])
	if len(fields) > 1 {
		cmd.Args = fields[1:]
	}
	return cmd
}

// Arg returns the i'th positional argument.
func (c Command) Arg(i int) (string, bool) {
	if i < 0 || i >= len(c.Args) {
		return "", false
	}
	return c.Args[i], true
}
