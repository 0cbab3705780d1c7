package asset

// Error strings surfaced in a failed view.
const (
	ErrMsgNotFound   = "Asset not found"
	ErrMsgLoadFailed = "Failed to load asset"
)

// Phase is the resolution state of one consumer.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseResolved
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseResolved:
		return "resolved"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is the full resolver state. Generation increases on every
// (re)resolution; completion events carrying an older generation are ignored.
type State struct {
	Phase      Phase
	Generation uint64
	Reference  string
	ObjectURL  string
	// Owned marks ObjectURL as created by this resolution and due for revocation.
	Owned   bool
	Error   string
	Attempt int
}

// EventKind enumerates reducer inputs.
type EventKind int

const (
	// EventStart begins a resolution of Reference under a new Generation.
	EventStart EventKind = iota
	// EventLoaded carries an object URL created from a stored blob.
	EventLoaded
	// EventMissing reports that the store had no blob for the id.
	EventMissing
	// EventFailed reports a store failure.
	EventFailed
	// EventClose tears the resolution down.
	EventClose
)

// Event is one reducer input.
type Event struct {
	Kind       EventKind
	Generation uint64
	Reference  string
	ObjectURL  string
	Attempt    int
}

// Reduce is the pure transition function of the resolver state machine.
func Reduce(s State, e Event) State {
	switch e.Kind {
	case EventStart:
		next := State{Generation: e.Generation, Reference: e.Reference, Attempt: e.Attempt}
		ref := ParseReference(e.Reference)
		switch ref.Kind {
		case KindEmpty:
			next.Phase = PhaseIdle
		case KindInternal:
			if ref.ID == "" {
				next.Phase = PhaseFailed
				next.Error = ErrMsgNotFound
				break
			}
			next.Phase = PhaseLoading
		default:
			next.Phase = PhaseResolved
			next.ObjectURL = e.Reference
		}
		return next
	case EventClose:
		return State{Phase: PhaseIdle, Generation: e.Generation}
	}

	if e.Generation != s.Generation || s.Phase != PhaseLoading {
		return s
	}
	next := s
	switch e.Kind {
	case EventLoaded:
		next.Phase = PhaseResolved
		next.ObjectURL = e.ObjectURL
		next.Owned = true
	case EventMissing:
		next.Phase = PhaseFailed
		next.Error = ErrMsgNotFound
	case EventFailed:
		next.Phase = PhaseFailed
		next.Error = ErrMsgLoadFailed
	}
	return next
}

// View is the renderable projection of a State.
type View struct {
	ObjectURL string `json:"object_url,omitempty" yaml:"object_url,omitempty"`
	IsLoading bool   `json:"is_loading" yaml:"is_loading"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
	Attempt   int    `json:"attempt" yaml:"attempt"`
	CanRetry  bool   `json:"can_retry" yaml:"can_retry"`
}

// ViewOf projects s for rendering. maxRetries bounds the retry affordance.
func ViewOf(s State, maxRetries int) View {
	v := View{Attempt: s.Attempt}
	switch s.Phase {
	case PhaseLoading:
		v.IsLoading = true
	case PhaseResolved:
		v.ObjectURL = s.ObjectURL
	case PhaseFailed:
		v.Error = s.Error
		v.CanRetry = s.Attempt < maxRetries
	}
	return v
}
