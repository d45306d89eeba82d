package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"pebfutar.app/internal/logging"
	"pebfutar.app/internal/presentation"
)

// ErrQuit is returned by Parse for the quit command.
var ErrQuit = errors.New("quit")

const Help = `commands:
  <section>.<item>    select a row, e.g. 0.2
  l <section>.<item>  show the routes of a stop
  u                   refresh the current list
  s                   back to nearby stops
  r                   retry
  q                   quit
`

// Parse turns one typed line into a command addressed to flow.
func Parse(line string, flow presentation.Flow) (presentation.Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return presentation.Command{}, errors.New("empty command")
	}

	switch fields[0] {
	case "q", "quit", "exit":
		return presentation.Command{}, ErrQuit
	case "r":
		return presentation.Command{Kind: presentation.CommandRetry}, nil
	case "u":
		return presentation.Command{Kind: presentation.CommandRefresh, Flow: flow}, nil
	case "s":
		return presentation.Command{Kind: presentation.CommandRefresh, Flow: presentation.FlowStops}, nil
	case "l":
		if len(fields) != 2 {
			return presentation.Command{}, errors.New("usage: l <section>.<item>")
		}
		section, item, err := parsePosition(fields[1])
		if err != nil {
			return presentation.Command{}, err
		}
		return presentation.Command{Kind: presentation.CommandLongSelect, Flow: flow, Section: section, Item: item}, nil
	}

	if len(fields) != 1 {
		return presentation.Command{}, fmt.Errorf("unknown command %q", line)
	}
	section, item, err := parsePosition(fields[0])
	if err != nil {
		return presentation.Command{}, err
	}
	return presentation.Command{Kind: presentation.CommandSelect, Flow: flow, Section: section, Item: item}, nil
}

func parsePosition(s string) (int, int, error) {
	before, after, ok := strings.Cut(s, ".")
	if !ok {
		return 0, 0, fmt.Errorf("expected <section>.<item>, got %q", s)
	}
	section, err := strconv.Atoi(before)
	if err != nil || section < 0 {
		return 0, 0, fmt.Errorf("bad section %q", before)
	}
	item, err := strconv.Atoi(after)
	if err != nil || item < 0 {
		return 0, 0, fmt.Errorf("bad item %q", after)
	}
	return section, item, nil
}

// Executor runs fn against the controller on its loop.
type Executor interface {
	Do(ctx context.Context, fn func(*presentation.Controller)) error
}

// Console reads commands from in and reports problems to out.
type Console struct {
	exec     Executor
	renderer *Renderer
	out      io.Writer
	logger   *slog.Logger
}

func New(exec Executor, renderer *Renderer, out io.Writer, logger *slog.Logger) *Console {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Console{exec: exec, renderer: renderer, out: out, logger: logger.With(slog.String("component", "console"))}
}

// Run starts the stops flow and then executes typed commands until in is
// exhausted, the quit command, or ctx is done.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	if err := c.execute(ctx, presentation.Command{Kind: presentation.CommandRefresh, Flow: presentation.FlowStops}); err != nil {
		return err
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			if strings.TrimSpace(line) == "" {
				continue
			}
			if strings.TrimSpace(line) == "h" || strings.TrimSpace(line) == "?" {
				_, _ = io.WriteString(c.out, Help)
				continue
			}
			cmd, err := Parse(line, c.renderer.Flow())
			if errors.Is(err, ErrQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintf(c.out, "%v (h for help)\n", err)
				continue
			}
			if err := c.execute(ctx, cmd); err != nil {
				if errors.Is(err, presentation.ErrLoopStopped) {
					return err
				}
				fmt.Fprintf(c.out, "%v\n", err)
			}
		}
	}
}

func (c *Console) execute(ctx context.Context, cmd presentation.Command) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var execErr error
	if err := c.exec.Do(ctx, func(ctrl *presentation.Controller) { execErr = ctrl.Execute(cmd) }); err != nil {
		return err
	}
	if execErr != nil {
		c.logger.Debug("command rejected", slog.String("command", string(cmd.Kind)), slog.String("error", execErr.Error()))
	}
	return execErr
}
