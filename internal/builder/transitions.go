package builder

import (
	"context"
	"github.com/google/uuid"
	"github.com/veloforge/dreamride/internal/errors"
	"log/slog"
	"strconv"
	"strings"
)

// Bootstrap fetches the opening question with an empty user message. It is
// a no-op when the conversation has already started.
func (s *Session) Bootstrap(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != Bootstrapping {
		s.mu.Unlock()
		return nil
	}
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	s.loading = true
	epoch := s.epoch
	id := s.id
	s.mu.Unlock()

	turn, err := s.chat.CompleteChat(ctx, id, "")

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return nil
	}
	s.loading = false
	if err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, "fetch opening question")
	}
	s.applyTurnLocked(turn)
	if s.phase == Completing {
		s.mu.Unlock()
		return s.generateImage(ctx)
	}
	s.mu.Unlock()
	return nil
}

// SelectOption answers a single-select question. The pick commits the turn
// immediately; the option number is echoed to the backend as the answer
// payload while the transcript records the option text.
func (s *Session) SelectOption(ctx context.Context, number int) error {
	s.mu.Lock()
	if s.phase != AwaitingAnswer {
		s.mu.Unlock()
		return ErrWrongPhase
	}
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	if len(s.options) == 0 {
		s.mu.Unlock()
		return ErrFreeTextMode
	}
	if s.isMultiselect {
		s.mu.Unlock()
		return errors.Wrap(ErrWrongPhase, "multiselect question commits on continue")
	}
	option, ok := s.findOptionLocked(number)
	if !ok {
		s.mu.Unlock()
		return errors.Wrap(ErrInvalidOption, "select option", slog.Int("number", number))
	}
	return s.submitLocked(ctx, strconv.Itoa(option.Number), option.Text)
}

// ToggleOption flips an option's membership in the multiselect selection.
// No network call happens until ContinueMultiselect.
func (s *Session) ToggleOption(number int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != AwaitingAnswer {
		return ErrWrongPhase
	}
	if s.loading {
		return ErrBusy
	}
	if !s.isMultiselect {
		return ErrSingleSelect
	}
	if _, ok := s.findOptionLocked(number); !ok {
		return errors.Wrap(ErrInvalidOption, "toggle option", slog.Int("number", number))
	}
	if s.selected[number] {
		delete(s.selected, number)
	} else {
		s.selected[number] = true
	}
	return nil
}

// ContinueMultiselect commits a multiselect question. The synthesized
// answer is the text of every selected option, in question order, and
// nothing else.
func (s *Session) ContinueMultiselect(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != AwaitingAnswer {
		s.mu.Unlock()
		return ErrWrongPhase
	}
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	if !s.isMultiselect {
		s.mu.Unlock()
		return ErrSingleSelect
	}
	var texts []string
	for _, o := range s.options {
		if s.selected[o.Number] {
			texts = append(texts, o.Text)
		}
	}
	if len(texts) == 0 {
		s.mu.Unlock()
		return ErrEmptySelection
	}
	answer := strings.Join(texts, ", ")
	return s.submitLocked(ctx, answer, answer)
}

// SubmitCustom answers a free-text question. The input passes the
// moderation gate first: an unsafe verdict surfaces feedback and leaves the
// transcript untouched, while a moderation transport failure fails open and
// the original input is submitted as-is.
func (s *Session) SubmitCustom(ctx context.Context, input string) error {
	input = strings.TrimSpace(input)
	s.mu.Lock()
	if s.phase != AwaitingAnswer {
		s.mu.Unlock()
		return ErrWrongPhase
	}
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	if len(s.options) != 0 {
		s.mu.Unlock()
		return ErrOptionMode
	}
	if input == "" {
		s.mu.Unlock()
		return ErrEmptyInput
	}
	s.customInput = input
	s.phase = Validating
	s.loading = true
	epoch := s.epoch
	s.mu.Unlock()

	verdict, err := s.mod.ValidateMessage(ctx, input)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return nil
	}
	s.loading = false
	if err != nil {
		// Fail open: moderation is advisory, not a security boundary
		// enforced on this side of the wire.
		s.logger.LogAttrs(ctx, slog.LevelWarn, "moderation unavailable, failing open",
			errors.SlogError(err))
	} else if !verdict.IsSafe {
		s.phase = AwaitingAnswer
		s.feedback = &Feedback{
			Explanation: verdict.Explanation,
			Suggestions: append([]string(nil), verdict.Suggestions...),
			RiskLevel:   verdict.RiskLevel,
		}
		s.mu.Unlock()
		return nil
	}
	s.feedback = nil
	s.phase = AwaitingAnswer
	return s.submitLocked(ctx, input, input)
}

// ApplySuggestion replaces the custom input with a moderation suggestion so
// the rider can resubmit.
func (s *Session) ApplySuggestion(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != AwaitingAnswer || len(s.options) != 0 {
		return ErrWrongPhase
	}
	s.customInput = text
	s.feedback = nil
	return nil
}

// submitLocked sends the answer to the chat endpoint. Callers hold the lock
// and have verified phase and loading; submitLocked releases the lock.
//
// The rider's turn goes on the transcript before the call and stays there
// even when the call fails; the assistant turn is appended only once the
// response arrives.
func (s *Session) submitLocked(ctx context.Context, wireAnswer, displayAnswer string) error {
	s.phase = Submitting
	s.loading = true
	s.messages = append(s.messages, Message{Role: RoleUser, Content: displayAnswer})
	epoch := s.epoch
	id := s.id
	s.mu.Unlock()

	turn, err := s.chat.CompleteChat(ctx, id, wireAnswer)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return nil
	}
	s.loading = false
	if err != nil {
		s.phase = AwaitingAnswer
		s.mu.Unlock()
		return errors.Wrap(err, "submit answer")
	}
	s.applyTurnLocked(turn)
	if s.phase == Completing {
		// Completion hands off to image generation without user action.
		s.mu.Unlock()
		return s.generateImage(ctx)
	}
	s.mu.Unlock()
	return nil
}

// applyTurnLocked interprets a chat response: either the next question or
// the completion signal.
func (s *Session) applyTurnLocked(turn Turn) {
	if turn.AIMessage != "" {
		s.messages = append(s.messages, Message{Role: RoleAssistant, Content: turn.AIMessage})
	}
	if turn.IsComplete {
		s.questionText = ""
		s.options = nil
		s.selected = map[int]bool{}
		s.isMultiselect = false
		s.customInput = ""
		s.feedback = nil
		s.isComplete = true
		s.phase = Completing
		return
	}
	s.questionText = turn.QuestionText
	s.options = append([]Option(nil), turn.Options...)
	s.isMultiselect = turn.IsMultiselect
	if turn.CurrentStep != nil {
		s.currentStep = *turn.CurrentStep
	}
	if turn.TotalSteps != nil {
		s.totalSteps = *turn.TotalSteps
	}
	s.selected = map[int]bool{}
	s.customInput = ""
	s.feedback = nil
	s.phase = AwaitingAnswer
}

// generateImage issues the image call for a completed conversation. It is
// called automatically on completion and manually through RetryImage; a
// failure leaves the session in Completing for a manual retry.
func (s *Session) generateImage(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != Completing {
		s.mu.Unlock()
		return ErrWrongPhase
	}
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	s.loading = true
	epoch := s.epoch
	id := s.id
	s.mu.Unlock()

	imageBase64, err := s.images.GenerateImage(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return nil
	}
	s.loading = false
	if err != nil {
		return errors.Wrap(err, "generate image")
	}
	s.imageBase64 = imageBase64
	s.phase = Completed
	return nil
}

// RetryImage retries a failed image generation. No automatic retry exists.
func (s *Session) RetryImage(ctx context.Context) error {
	return s.generateImage(ctx)
}

// Image returns the stored artifact. It never triggers a new generation
// call: downloads after completion read the artifact already in memory.
func (s *Session) Image() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != Completed || s.imageBase64 == "" {
		return "", ErrNoImage
	}
	return s.imageBase64, nil
}

// Reset abandons the conversation and starts a fresh one under a new
// identifier. Responses still in flight for the old identifier are
// discarded when they arrive.
func (s *Session) Reset() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.id = uuid.NewString()
	s.phase = Bootstrapping
	s.loading = false
	s.messages = nil
	s.questionText = ""
	s.options = nil
	s.selected = map[int]bool{}
	s.isMultiselect = false
	s.currentStep = 0
	s.totalSteps = DefaultTotalSteps
	s.customInput = ""
	s.feedback = nil
	s.isComplete = false
	s.imageBase64 = ""
	return s.id
}

func (s *Session) findOptionLocked(number int) (Option, bool) {
	for _, o := range s.options {
		if o.Number == number {
			return o, true
		}
	}
	return Option{}, false
}
