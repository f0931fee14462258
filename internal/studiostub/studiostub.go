// Package studiostub is a scripted implementation of the studio backend
// contract for local development and tests. It walks every session through
// the same five questions and renders either a canned placeholder image or,
// when an OpenAI key is configured, a real one.
package studiostub

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/veloforge/dreamride/internal/errors"
)

// placeholderPNG is a 1x1 transparent PNG used when no image backend is
// configured.
const placeholderPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

const maxMessageLength = 500

type question struct {
	text        string
	options     []option
	multiselect bool
}

type option struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
	Value  string `json:"value"`
}

var script = []question{
	{text: "What kind of ride are you dreaming of?", options: []option{
		{Number: 1, Text: "Cruiser", Value: "cruiser"},
		{Number: 2, Text: "Sport", Value: "sport"},
		{Number: 3, Text: "Adventure", Value: "adventure"},
	}},
	{text: "Pick an engine character.", options: []option{
		{Number: 1, Text: "Relaxed V-twin", Value: "v-twin"},
		{Number: 2, Text: "Screaming inline four", Value: "inline-four"},
	}},
	{text: "Pick a base color.", options: []option{
		{Number: 1, Text: "Matte black", Value: "matte-black"},
		{Number: 2, Text: "Pearl white", Value: "pearl-white"},
		{Number: 3, Text: "Candy red", Value: "candy-red"},
	}},
	{text: "Any extras? Pick as many as you like.", multiselect: true, options: []option{
		{Number: 1, Text: "Saddlebags", Value: "saddlebags"},
		{Number: 2, Text: "Windshield", Value: "windshield"},
		{Number: 3, Text: "Heated grips", Value: "heated-grips"},
	}},
	{text: "Describe a custom detail in your own words."},
}

// riskyWords trip the moderation check. The real backend runs an actual
// content filter; the stub only needs deterministic negatives for tests.
var riskyWords = []string{"obscene", "trademark", "gore"}

type session struct {
	step    int
	answers []string
	image   string
}

// ImageRenderer produces base64 PNG data for a finished session. The
// OpenAI-backed renderer in this package implements it; tests use the
// placeholder.
type ImageRenderer interface {
	Render(r *http.Request, answers []string) (string, error)
}

type Server struct {
	mu       sync.Mutex
	sessions map[string]*session
	logger   *slog.Logger
	renderer ImageRenderer
}

// New creates the stub with an optional renderer. A nil renderer falls
// back to the placeholder image.
func New(logger *slog.Logger, renderer ImageRenderer) *Server {
	return &Server{
		sessions: map[string]*session{},
		logger:   logger.With("source", "studiostub"),
		renderer: renderer,
	}
}

// Handler routes the studio contract endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat/complete", s.chatComplete)
	mux.HandleFunc("POST /validate-custom-message", s.validateCustomMessage)
	mux.HandleFunc("POST /image/generate", s.imageGenerate)
	mux.HandleFunc("GET /image/download/{sessionID}", s.imageDownload)
	mux.HandleFunc("POST /projects/save", s.projectSave)
	mux.HandleFunc("POST /payments/checkout-session", s.checkoutSession)
	mux.HandleFunc("GET /healthy", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

type chatCompleteRequest struct {
	SessionID   string `json:"session_id"`
	UserMessage string `json:"user_message"`
}

func (r chatCompleteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SessionID, validation.Required, validation.Length(1, 128)),
		validation.Field(&r.UserMessage, validation.Length(0, maxMessageLength)),
	)
}

type chatCompleteResponse struct {
	AIMessage     string   `json:"ai_message"`
	QuestionText  string   `json:"question_text,omitempty"`
	Options       []option `json:"options,omitempty"`
	CurrentStep   *int     `json:"current_step,omitempty"`
	TotalSteps    *int     `json:"total_steps,omitempty"`
	IsComplete    bool     `json:"is_complete"`
	IsMultiselect bool     `json:"is_multiselect"`
}

func (s *Server) chatComplete(w http.ResponseWriter, r *http.Request) {
	var req chatCompleteRequest
	if !s.decodeValid(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[req.SessionID]
	if !ok {
		sess = &session{}
		s.sessions[req.SessionID] = sess
	}
	if req.UserMessage != "" {
		sess.answers = append(sess.answers, req.UserMessage)
		sess.step++
	}

	if sess.step >= len(script) {
		s.writeJSON(w, chatCompleteResponse{
			AIMessage:  "Your dream ride is ready. Generating the render now.",
			IsComplete: true,
		})
		return
	}

	q := script[sess.step]
	step := sess.step + 1
	total := len(script)
	s.writeJSON(w, chatCompleteResponse{
		AIMessage:     q.text,
		QuestionText:  q.text,
		Options:       q.options,
		CurrentStep:   &step,
		TotalSteps:    &total,
		IsMultiselect: q.multiselect,
	})
}

type validateMessageRequest struct {
	Message string `json:"message"`
}

func (r validateMessageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Message, validation.Required, validation.Length(1, maxMessageLength)),
	)
}

type validateMessageResponse struct {
	IsSafe      bool     `json:"is_safe"`
	Suggestions []string `json:"suggestions"`
	Explanation string   `json:"explanation"`
	RiskLevel   string   `json:"risk_level"`
}

func (s *Server) validateCustomMessage(w http.ResponseWriter, r *http.Request) {
	var req validateMessageRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	lowered := strings.ToLower(req.Message)
	for _, word := range riskyWords {
		if strings.Contains(lowered, word) {
			s.writeJSON(w, validateMessageResponse{
				IsSafe:      false,
				Suggestions: []string{"a hand-painted flame motif", "a brushed aluminium finish"},
				Explanation: "The description contains content we cannot render.",
				RiskLevel:   "medium",
			})
			return
		}
	}
	s.writeJSON(w, validateMessageResponse{
		IsSafe:      true,
		Suggestions: []string{},
		RiskLevel:   "low",
	})
}

type imageGenerateRequest struct {
	SessionID string `json:"session_id"`
}

func (r imageGenerateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SessionID, validation.Required, validation.Length(1, 128)),
	)
}

func (s *Server) imageGenerate(w http.ResponseWriter, r *http.Request) {
	var req imageGenerateRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	s.mu.Lock()
	sess, ok := s.sessions[req.SessionID]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	image := placeholderPNG
	if s.renderer != nil {
		rendered, err := s.renderer.Render(r, sess.answers)
		if err != nil {
			s.logger.LogAttrs(r.Context(), slog.LevelError, "render image", errors.SlogError(err))
			http.Error(w, "image generation failed", http.StatusBadGateway)
			return
		}
		image = rendered
	}

	s.mu.Lock()
	sess.image = image
	s.mu.Unlock()
	s.writeJSON(w, map[string]string{"image_base64": image})
}

func (s *Server) imageDownload(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok || sess.image == "" {
		http.Error(w, "no image for session", http.StatusNotFound)
		return
	}
	raw, err := base64.StdEncoding.DecodeString(sess.image)
	if err != nil {
		http.Error(w, "corrupt image", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(raw)
}

func (s *Server) projectSave(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

type checkoutSessionRequest struct {
	SessionID string `json:"session_id"`
	Plan      string `json:"plan"`
}

func (r checkoutSessionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SessionID, validation.Required, validation.Length(1, 128)),
		validation.Field(&r.Plan, validation.Length(0, 64)),
	)
}

func (s *Server) checkoutSession(w http.ResponseWriter, r *http.Request) {
	var req checkoutSessionRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	s.writeJSON(w, map[string]string{
		"checkout_url": "https://pay.example.com/checkout/" + req.SessionID,
	})
}

type validatable interface {
	Validate() error
}

func (s *Server) decodeValid(w http.ResponseWriter, r *http.Request, v validatable) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	if err := v.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", errors.SlogError(err))
	}
}
