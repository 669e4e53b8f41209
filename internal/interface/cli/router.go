// Package cli implements the classtrack command-line client: a router of
// subcommands, their handlers and the text presenters.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/classtrack/classtrack/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	// Program is the name printed in usage lines.
	Program string

	// Out receives command output.
	Out io.Writer

	// Logger for structured logging.
	Logger *slog.Logger

	// Debug enables debug logging for routing decisions.
	Debug bool
}

// ══════════════════════════════════════════════════════════════════════════════
// COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// CommandContext is what a handler gets for one invocation.
type CommandContext struct {
	// Args are the positional arguments after the command name.
	Args []string

	// Flags holds the parsed flags declared by the command.
	Flags *pflag.FlagSet

	// Out receives the command output.
	Out io.Writer
}

// String returns the value of a string flag.
func (c CommandContext) String(name string) string {
	v, _ := c.Flags.GetString(name)
	return v
}

// Changed reports whether the flag was set on the command line.
func (c CommandContext) Changed(name string) bool {
	return c.Flags.Changed(name)
}

// Arg returns positional argument i, or "".
func (c CommandContext) Arg(i int) string {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return ""
}

// CommandHandler runs one subcommand.
type CommandHandler func(ctx context.Context, cmd CommandContext) error

// Command describes a subcommand.
type Command struct {
	Name    string
	Usage   string // arguments and flags, e.g. "<id> [--name NAME]"
	Summary string

	// MinArgs and MaxArgs bound the positional arguments. MaxArgs < 0
	// means unbounded.
	MinArgs int
	MaxArgs int

	// Flags declares the command's flags, if any.
	Flags func(fs *pflag.FlagSet)

	Handle CommandHandler
}

// UsageError reports a command line that could not be parsed.
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

// ErrPanic is wrapped by the error returned for a handler that panicked.
var ErrPanic = errors.New("internal error")

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER
// ══════════════════════════════════════════════════════════════════════════════

// Router dispatches a command line to the registered handler.
type Router struct {
	config   RouterConfig
	logger   *slog.Logger
	commands map[string]Command
}

// NewRouter creates a new router.
func NewRouter(config RouterConfig) *Router {
	if config.Program == "" {
		config.Program = "classtrack"
	}
	if config.Out == nil {
		config.Out = io.Discard
	}
	return &Router{
		config:   config,
		logger:   logger.OrDefault(config.Logger).With(logger.Component("cli")),
		commands: make(map[string]Command),
	}
}

// RegisterCommand registers a subcommand, replacing one with the same name.
func (r *Router) RegisterCommand(cmd Command) {
	r.commands[cmd.Name] = cmd
	if r.config.Debug {
		r.logger.Debug("registered command", logger.Operation(cmd.Name))
	}
}

// Commands returns the registered command names in alphabetical order.
func (r *Router) Commands() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run parses args (without the program name) and runs the matching
// command. No arguments or "help" prints the usage.
func (r *Router) Run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		r.Usage(r.config.Out)
		return nil
	}

	name := args[0]
	cmd, ok := r.commands[name]
	if !ok {
		return &UsageError{Msg: fmt.Sprintf("unknown command %q, run %s help", name, r.config.Program)}
	}

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if cmd.Flags != nil {
		cmd.Flags(fs)
	}
	if err := fs.Parse(args[1:]); err != nil {
		return &UsageError{Command: name, Msg: err.Error()}
	}

	rest := fs.Args()
	if len(rest) < cmd.MinArgs || (cmd.MaxArgs >= 0 && len(rest) > cmd.MaxArgs) {
		return &UsageError{Command: name, Msg: "usage: " + r.usageLine(cmd)}
	}

	return r.execute(ctx, cmd, CommandContext{Args: rest, Flags: fs, Out: r.config.Out})
}

func (r *Router) execute(ctx context.Context, cmd Command, cmdCtx CommandContext) (err error) {
	start := time.Now()
	log := r.logger.With(logger.Operation(cmd.Name))

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("command panicked",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("%s: %w", cmd.Name, ErrPanic)
		}
	}()

	err = cmd.Handle(ctx, cmdCtx)
	if r.config.Debug {
		log.Debug("command finished", logger.Latency(time.Since(start)), slog.Bool("ok", err == nil))
	}
	return err
}

// Usage prints every command with its summary.
func (r *Router) Usage(w io.Writer) {
	fmt.Fprintf(w, "usage: %s <command> [arguments]\n\ncommands:\n", r.config.Program)
	for _, name := range r.Commands() {
		cmd := r.commands[name]
		fmt.Fprintf(w, "  %-44s %s\n", strings.TrimSpace(cmd.Name+" "+cmd.Usage), cmd.Summary)
	}
}

func (r *Router) usageLine(cmd Command) string {
	return strings.TrimSpace(r.config.Program + " " + cmd.Name + " " + cmd.Usage)
}
