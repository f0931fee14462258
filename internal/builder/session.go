// Package builder holds the conversation state machine behind the bike
// configurator wizard. The machine owns one rider's session: the pending
// question from the studio backend, the answer capture mode, the content
// moderation gate for free-text answers, and the completion handoff that
// turns a finished conversation into a rendered image.
//
// The machine is UI-agnostic. cmd/web binds it to HTTP handlers and
// templates; tests bind it to fakes.
package builder

import (
	"github.com/google/uuid"
	"github.com/veloforge/dreamride/internal/errors"
	"log/slog"
	"sync"
)

// Phase enumerates the lifecycle of a builder conversation.
//
// Bootstrapping -> AwaitingAnswer -> Validating -> Submitting ->
// (AwaitingAnswer | Completing) -> Completed.
type Phase int

const (
	Bootstrapping Phase = iota
	AwaitingAnswer
	Validating
	Submitting
	Completing
	Completed
)

func (p Phase) String() string {
	switch p {
	case Bootstrapping:
		return "bootstrapping"
	case AwaitingAnswer:
		return "awaiting-answer"
	case Validating:
		return "validating"
	case Submitting:
		return "submitting"
	case Completing:
		return "completing"
	case Completed:
		return "completed"
	}
	return "unknown"
}

// Role tags a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in the conversation transcript. The transcript is
// append-only within a turn and never reordered.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Option is one selectable answer for the pending question. Number is an
// opaque identifier assigned by the backend and echoed back verbatim as the
// single-select answer payload. Ordering is preserved exactly as received.
type Option struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
	Value  string `json:"value"`
}

// Feedback carries the moderation verdict shown to the rider after an
// unsafe free-text answer. Picking a suggestion replaces the custom input.
type Feedback struct {
	Explanation string   `json:"explanation"`
	Suggestions []string `json:"suggestions"`
	RiskLevel   string   `json:"risk_level"`
}

// DefaultTotalSteps is assumed until the backend reports its own count. The
// backend may grow the count mid-conversation when it injects clarification
// questions.
const DefaultTotalSteps = 15

// Sentinel errors surfaced to the presentation layer. None of them are
// fatal: the rider can always retry the same action.
var (
	// ErrBusy means a network call for this session is already in flight.
	// The loading gate is the only backpressure in the machine.
	ErrBusy = errors.NewSentinel("builder: request already in flight")
	// ErrWrongPhase means the operation does not apply to the current phase.
	ErrWrongPhase = errors.NewSentinel("builder: operation not allowed in current phase")
	// ErrInvalidOption means the option number is not part of the pending question.
	ErrInvalidOption = errors.NewSentinel("builder: unknown option")
	// ErrFreeTextMode means an option was picked while the question expects free text.
	ErrFreeTextMode = errors.NewSentinel("builder: question expects free-text answer")
	// ErrOptionMode means free text was submitted while the question shows options.
	ErrOptionMode = errors.NewSentinel("builder: question expects an option pick")
	// ErrSingleSelect means a multiselect-only operation was used on a single-select question.
	ErrSingleSelect = errors.NewSentinel("builder: question is single-select")
	// ErrEmptySelection means multiselect continue was pressed with nothing selected.
	ErrEmptySelection = errors.NewSentinel("builder: no options selected")
	// ErrEmptyInput means an empty free-text answer was submitted.
	ErrEmptyInput = errors.NewSentinel("builder: empty answer")
	// ErrNoImage means no artifact has been stored for this session yet.
	ErrNoImage = errors.NewSentinel("builder: no image available")
)

// Session is the state machine for one builder conversation. All methods
// are safe for concurrent use; network calls are made outside the lock and
// their responses are discarded if the session was reset in the meantime.
type Session struct {
	mu     sync.Mutex
	chat   ChatService
	mod    ModerationService
	images ImageService
	logger *slog.Logger

	// epoch guards against stale updates: it is bumped on Reset so that a
	// response from a previous life of the session is dropped on arrival.
	epoch uint64

	id            string
	phase         Phase
	loading       bool
	messages      []Message
	questionText  string
	options       []Option
	selected      map[int]bool
	isMultiselect bool
	currentStep   int
	totalSteps    int
	customInput   string
	feedback      *Feedback
	isComplete    bool
	imageBase64   string
}

// NewSession initialises a session in the Bootstrapping phase. An empty id
// means a fresh conversation and a generated identifier.
func NewSession(id string, chat ChatService, mod ModerationService, images ImageService, logger *slog.Logger) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		chat:       chat,
		mod:        mod,
		images:     images,
		logger:     logger.With("source", "builder.Session"),
		id:         id,
		phase:      Bootstrapping,
		selected:   map[int]bool{},
		totalSteps: DefaultTotalSteps,
	}
}

// ID returns the session identifier correlating all studio calls.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// State is a point-in-time copy of the session for rendering and for the
// best-effort project snapshot.
type State struct {
	SessionID       string    `json:"session_id"`
	Phase           Phase     `json:"-"`
	Loading         bool      `json:"-"`
	Messages        []Message `json:"messages"`
	QuestionText    string    `json:"question_text"`
	Options         []Option  `json:"options"`
	SelectedOptions []Option  `json:"selected_options"`
	IsMultiselect   bool      `json:"is_multiselect"`
	CurrentStep     int       `json:"current_step"`
	TotalSteps      int       `json:"total_steps"`
	CustomInput     string    `json:"custom_input"`
	Feedback        *Feedback `json:"feedback,omitempty"`
	IsComplete      bool      `json:"is_complete"`
	ImageBase64     string    `json:"image_base64,omitempty"`
}

// FreeText reports whether the pending question is answered with free text
// instead of option picks. Exactly one of the two modes governs a question.
func (st State) FreeText() bool {
	return len(st.Options) == 0
}

// Selected reports whether the option number is part of the multiselect selection.
func (st State) Selected(number int) bool {
	for _, o := range st.SelectedOptions {
		if o.Number == number {
			return true
		}
	}
	return false
}

// State returns a copy of the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	st := State{
		SessionID:     s.id,
		Phase:         s.phase,
		Loading:       s.loading,
		Messages:      append([]Message(nil), s.messages...),
		QuestionText:  s.questionText,
		Options:       append([]Option(nil), s.options...),
		IsMultiselect: s.isMultiselect,
		CurrentStep:   s.currentStep,
		TotalSteps:    s.totalSteps,
		CustomInput:   s.customInput,
		IsComplete:    s.isComplete,
		ImageBase64:   s.imageBase64,
	}
	// Selection is reported as a sub-sequence of the options in their
	// original order, not in click order.
	for _, o := range s.options {
		if s.selected[o.Number] {
			st.SelectedOptions = append(st.SelectedOptions, o)
		}
	}
	if s.feedback != nil {
		f := *s.feedback
		st.Feedback = &f
	}
	return st
}
