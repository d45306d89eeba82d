package presentation

import "fmt"

// Flow names one of the three request/render cycles.
type Flow int

const (
	FlowStops Flow = iota
	FlowDepartures
	FlowTripDetail
)

var flowNames = [...]string{"stops", "departures", "trip_detail"}

func (f Flow) String() string {
	if f < 0 || int(f) >= len(flowNames) {
		return fmt.Sprintf("flow(%d)", int(f))
	}
	return flowNames[f]
}

// ParseFlow is the inverse of Flow.String.
func ParseFlow(s string) (Flow, error) {
	for i, name := range flowNames {
		if name == s {
			return Flow(i), nil
		}
	}
	return 0, fmt.Errorf("unknown flow %q", s)
}

func (f Flow) MarshalText() ([]byte, error) {
	if f < 0 || int(f) >= len(flowNames) {
		return nil, fmt.Errorf("unknown flow %d", int(f))
	}
	return []byte(flowNames[f]), nil
}

func (f *Flow) UnmarshalText(text []byte) error {
	parsed, err := ParseFlow(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Phase is the tag of a ViewState.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLocating
	PhaseSearching
	PhaseContent
	PhaseEmpty
	PhaseError
)

var phaseNames = [...]string{"idle", "locating", "searching", "content", "empty", "error"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// ViewState is the state of one flow. It is replaced, never mutated.
type ViewState struct {
	Phase Phase `json:"phase"`
	// Items is set in PhaseContent only.
	Items []Item `json:"items,omitempty"`
	// Message and Retryable are set in PhaseError only.
	Message   string `json:"message,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func Idle() ViewState      { return ViewState{Phase: PhaseIdle} }
func Locating() ViewState  { return ViewState{Phase: PhaseLocating} }
func Searching() ViewState { return ViewState{Phase: PhaseSearching} }
func Empty() ViewState     { return ViewState{Phase: PhaseEmpty} }

// Content holds a non-empty result list.
func Content(items []Item) ViewState {
	return ViewState{Phase: PhaseContent, Items: items}
}

// Failed is the error state of a flow.
func Failed(message string, retryable bool) ViewState {
	return ViewState{Phase: PhaseError, Message: message, Retryable: retryable}
}

// InFlight reports whether a request of the flow is outstanding.
func (v ViewState) InFlight() bool {
	return v.Phase == PhaseLocating || v.Phase == PhaseSearching
}

// RetrySlot names the flow the shared retry control replays.
type RetrySlot int

const (
	RetryNone RetrySlot = iota
	RetryStops
	RetryDepartures
)

func (r RetrySlot) String() string {
	switch r {
	case RetryStops:
		return "stops"
	case RetryDepartures:
		return "departures"
	default:
		return "none"
	}
}

// Item is one display row. Payload carries the model behind the row.
type Item struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Payload  any    `json:"payload,omitempty"`
}

// Section is a titled group of rows within a flow's menu.
type Section struct {
	Title string `json:"title"`
	Items []Item `json:"items"`
}

// Status is the single status card shared by all flows.
type Status struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	// Retry is shown when the shared retry slot is set.
	Retry bool `json:"retry"`
}

// Screen is what the front-end should bring to the foreground.
type Screen int

const (
	ScreenStatus Screen = iota
	ScreenStops
	ScreenDepartures
	ScreenTripDetail
	ScreenStopDetail
)

var screenNames = [...]string{"status", "stops", "departures", "trip_detail", "stop_detail"}

func (s Screen) String() string {
	if s < 0 || int(s) >= len(screenNames) {
		return fmt.Sprintf("screen(%d)", int(s))
	}
	return screenNames[s]
}

func screenFor(f Flow) Screen {
	switch f {
	case FlowStops:
		return ScreenStops
	case FlowDepartures:
		return ScreenDepartures
	default:
		return ScreenTripDetail
	}
}
