package builder

import "context"

// Turn is the studio backend's reply to one conversation round trip. The
// pointer fields distinguish "absent" from zero: when the backend omits the
// progress counters the previous values stay in force.
type Turn struct {
	AIMessage     string
	QuestionText  string
	Options       []Option
	CurrentStep   *int
	TotalSteps    *int
	IsComplete    bool
	IsMultiselect bool
}

// Verdict is the moderation outcome for a free-text answer.
type Verdict struct {
	IsSafe      bool
	Suggestions []string
	Explanation string
	RiskLevel   string
}

// ChatService continues the conversation for a session. An empty
// userMessage asks for the opening question.
type ChatService interface {
	CompleteChat(ctx context.Context, sessionID, userMessage string) (Turn, error)
}

// ModerationService screens a free-text answer before it reaches the
// conversation. It is an advisory gate: a transport failure is treated as a
// pass (fail open) because enforcement happens behind the backend anyway.
type ModerationService interface {
	ValidateMessage(ctx context.Context, message string) (Verdict, error)
}

// ImageService renders the finished configuration into an image, returned
// as base64-encoded PNG data.
type ImageService interface {
	GenerateImage(ctx context.Context, sessionID string) (string, error)
}
