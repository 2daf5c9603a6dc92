package export

// State is a step of one export run.
type State int

const (
	Idle State = iota
	Mounting
	AwaitingLayout
	Rasterizing
	Paginating
	Assembling
	Downloading
	// Failed is the terminal error state. The surface has been released when
	// a run reaches it.
	Failed
)

var stateNames = [...]string{
	Idle:           "idle",
	Mounting:       "mounting",
	AwaitingLayout: "awaiting_layout",
	Rasterizing:    "rasterizing",
	Paginating:     "paginating",
	Assembling:     "assembling",
	Downloading:    "downloading",
	Failed:         "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// TransitionFunc observes state changes of a run identified by key.
type TransitionFunc func(key string, from, to State)
