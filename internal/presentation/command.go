package presentation

import (
	"errors"
	"fmt"
)

// CommandKind names a rider gesture.
type CommandKind string

const (
	CommandRefresh    CommandKind = "refresh"
	CommandSelect     CommandKind = "select"
	CommandLongSelect CommandKind = "long_select"
	CommandRetry      CommandKind = "retry"
)

// ErrNothingToRetry is returned by Execute when the retry slot is empty.
var ErrNothingToRetry = errors.New("nothing to retry")

// Command is a gesture from a front-end, addressed by menu position.
type Command struct {
	Kind    CommandKind `json:"type"`
	Flow    Flow        `json:"flow"`
	Section int         `json:"section"`
	Item    int         `json:"item"`
}

// Execute applies cmd. Like every Controller method it must run on the loop.
func (c *Controller) Execute(cmd Command) error {
	switch cmd.Kind {
	case CommandRefresh:
		switch cmd.Flow {
		case FlowStops:
			c.RefreshStops()
		case FlowDepartures:
			if c.currentStop == nil {
				return errors.New("no stop selected")
			}
			c.RefreshDepartures()
		default:
			return fmt.Errorf("%s cannot be refreshed", cmd.Flow)
		}
		return nil
	case CommandSelect:
		return c.Select(cmd.Flow, cmd.Section, cmd.Item)
	case CommandLongSelect:
		return c.LongSelect(cmd.Flow, cmd.Section, cmd.Item)
	case CommandRetry:
		if !c.Retry() {
			return ErrNothingToRetry
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd.Kind)
	}
}
