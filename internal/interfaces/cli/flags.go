package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// UsageError reports a malformed command line
type UsageError struct {
	Command string
	Msg     string
}

func (e *UsageError) Error() string {
	if e.Command == "" {
		return e.Msg
	}
	return e.Command + ": " + e.Msg
}

func usageErrorf(command, format string, args ...any) error {
	return &UsageError{Command: command, Msg: fmt.Sprintf(format, args...)}
}

// stringList is a repeatable string flag
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// intList is a repeatable integer flag
type intList []int

func (l *intList) String() string {
	parts := make([]string, len(*l))
	for i, n := range *l {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

func (l *intList) Set(v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("not an integer: %q", v)
	}
	*l = append(*l, n)
	return nil
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// parseFlags parses args and maps flag failures to UsageError.
// flag.ErrHelp is passed through so callers can exit cleanly.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return &UsageError{Command: fs.Name(), Msg: err.Error()}
	}
	return nil
}

// parseWithID accepts the id either before or after the flags:
// "update p1 -name x" and "update -name x p1" are equivalent.
// Positional arguments after the id are returned as rest.
func parseWithID(fs *flag.FlagSet, args []string) (id string, rest []string, err error) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		id, args = args[0], args[1:]
	}
	if err := parseFlags(fs, args); err != nil {
		return "", nil, err
	}
	rest = fs.Args()
	if id == "" && len(rest) > 0 {
		id, rest = rest[0], rest[1:]
	}
	if strings.TrimSpace(id) == "" {
		return "", nil, usageErrorf(fs.Name(), "an id is required")
	}
	return id, rest, nil
}

// setFlags returns the names of flags given on the command line
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// parseSlot splits "index=key" into a slot index and storage key
func parseSlot(v string) (int, string, error) {
	idx, key, ok := strings.Cut(v, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return 0, "", fmt.Errorf("slot %q must look like index=path", v)
	}
	i, err := strconv.Atoi(strings.TrimSpace(idx))
	if err != nil {
		return 0, "", fmt.Errorf("slot %q: index is not an integer", v)
	}
	return i, strings.TrimSpace(key), nil
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// parseTime reads an absolute time, or a duration from now such as "+2h"
func parseTime(v string, now time.Time, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "+") {
		d, err := time.ParseDuration(v[1:])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid offset %q: %w", v, err)
		}
		return now.Add(d), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (use RFC3339, 2006-01-02 15:04 or +2h)", v)
}
