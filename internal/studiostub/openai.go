package studiostub

import (
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/veloforge/dreamride/internal/errors"
)

// OpenAIRenderer turns the collected answers into a DALL-E render.
type OpenAIRenderer struct {
	client *openai.Client
}

func NewOpenAIRenderer(apiKey string) *OpenAIRenderer {
	return &OpenAIRenderer{client: openai.NewClient(apiKey)}
}

func (r *OpenAIRenderer) Render(req *http.Request, answers []string) (string, error) {
	prompt := "A studio photograph of a custom motorcycle: " + strings.Join(answers, ", ")
	response, err := r.client.CreateImage(req.Context(), openai.ImageRequest{ //nolint:exhaustruct // this is better for readability
		Model:          openai.CreateImageModelDallE3,
		Prompt:         prompt,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
		N:              1,
	})
	if err != nil {
		return "", errors.Wrap(err, "create image")
	}
	return response.Data[0].B64JSON, nil
}
