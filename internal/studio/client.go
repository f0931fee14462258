// Package studio wraps the studio backend's HTTP contract. The backend
// owns all the heavy lifting (conversation orchestration, moderation,
// image generation, payments, project records); this side only marshals
// the fixed request/response JSON shapes.
package studio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/veloforge/dreamride/internal/builder"
	"github.com/veloforge/dreamride/internal/errors"
)

// ErrStatus is returned for any non-2xx backend response.
var ErrStatus = errors.NewSentinel("studio: unexpected response status")

const defaultTimeout = 60 * time.Second

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for the studio backend at baseURL. The
// timeout is generous because chat and image calls sit on an LLM.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger.With("source", "studio.Client"),
	}
}

type chatCompleteRequest struct {
	SessionID   string `json:"session_id"`
	UserMessage string `json:"user_message"`
}

type chatCompleteResponse struct {
	AIMessage     string       `json:"ai_message"`
	QuestionText  string       `json:"question_text"`
	Options       []wireOption `json:"options"`
	CurrentStep   *int         `json:"current_step"`
	TotalSteps    *int         `json:"total_steps"`
	IsComplete    bool         `json:"is_complete"`
	IsMultiselect bool         `json:"is_multiselect"`
}

type wireOption struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
	Value  string `json:"value"`
}

// CompleteChat continues the conversation. An empty userMessage on the
// first call asks for the opening question. No retry: the builder surfaces
// failures for a manual retry.
func (c *Client) CompleteChat(ctx context.Context, sessionID, userMessage string) (builder.Turn, error) {
	var (
		turn builder.Turn
		resp chatCompleteResponse
	)
	req := chatCompleteRequest{SessionID: sessionID, UserMessage: userMessage}
	if err := c.postJSON(ctx, "/chat/complete", req, &resp); err != nil {
		return turn, errors.Wrap(err, "chat complete", slog.String("session_id", sessionID))
	}
	turn = builder.Turn{
		AIMessage:     resp.AIMessage,
		QuestionText:  resp.QuestionText,
		CurrentStep:   resp.CurrentStep,
		TotalSteps:    resp.TotalSteps,
		IsComplete:    resp.IsComplete,
		IsMultiselect: resp.IsMultiselect,
	}
	for _, o := range resp.Options {
		turn.Options = append(turn.Options, builder.Option(o))
	}
	return turn, nil
}

type validateMessageRequest struct {
	Message string `json:"message"`
}

type validateMessageResponse struct {
	IsSafe      bool     `json:"is_safe"`
	Suggestions []string `json:"suggestions"`
	Explanation string   `json:"explanation"`
	RiskLevel   string   `json:"risk_level"`
}

// ValidateMessage screens a free-text answer. Callers treat a transport
// failure as a pass, so this method only reports, never blocks.
func (c *Client) ValidateMessage(ctx context.Context, message string) (builder.Verdict, error) {
	var resp validateMessageResponse
	if err := c.postJSON(ctx, "/validate-custom-message", validateMessageRequest{Message: message}, &resp); err != nil {
		return builder.Verdict{}, errors.Wrap(err, "validate custom message")
	}
	return builder.Verdict{
		IsSafe:      resp.IsSafe,
		Suggestions: resp.Suggestions,
		Explanation: resp.Explanation,
		RiskLevel:   resp.RiskLevel,
	}, nil
}

type imageGenerateRequest struct {
	SessionID string `json:"session_id"`
}

type imageGenerateResponse struct {
	ImageBase64 string `json:"image_base64"`
}

// GenerateImage renders the finished configuration. No retry here either;
// the rider gets an explicit retry control instead.
func (c *Client) GenerateImage(ctx context.Context, sessionID string) (string, error) {
	var resp imageGenerateResponse
	if err := c.postJSON(ctx, "/image/generate", imageGenerateRequest{SessionID: sessionID}, &resp); err != nil {
		return "", errors.Wrap(err, "generate image", slog.String("session_id", sessionID))
	}
	return resp.ImageBase64, nil
}

// DownloadImage fetches the stored artifact bytes directly, bypassing
// regeneration.
func (c *Client) DownloadImage(ctx context.Context, sessionID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/image/download/%s", c.baseURL, sessionID), nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "download image", slog.String("session_id", sessionID))
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrap(ErrStatus, "download image", slog.Int("status", resp.StatusCode))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read image body")
	}
	return body, nil
}

func (c *Client) postJSON(ctx context.Context, urlPath string, in, out any) error {
	resp, err := c.post(ctx, urlPath, in)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return errors.Wrap(ErrStatus, "post", slog.String("path", urlPath), slog.Int("status", resp.StatusCode))
	}
	if out == nil {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response", slog.String("path", urlPath))
	}
	return nil
}

func (c *Client) post(ctx context.Context, urlPath string, in any) (*http.Response, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+urlPath, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request", slog.String("path", urlPath))
	}
	return resp, nil
}
