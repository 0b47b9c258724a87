package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GeminiProvider calls Google's Gemini API with JSON output enabled.
type GeminiProvider struct {
	model       string
	temperature float32
}

func NewGeminiProvider(model string, temperature float32) *GeminiProvider {
	return &GeminiProvider{model: model, temperature: temperature}
}

func (p *GeminiProvider) Name() string  { return "gemini" }
func (p *GeminiProvider) Model() string { return p.model }

func (p *GeminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(req.APIKey))
	if err != nil {
		return "", fmt.Errorf("gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(p.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(p.temperature)

	resp, err := model.GenerateContent(ctx, genai.Text(req.User))
	if err != nil {
		return "", p.wrapError(err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		break
	}
	return sb.String(), nil
}

func (p *GeminiProvider) wrapError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return p.statusError(gerr.Code, gerr.Message)
	}
	if st, ok := status.FromError(err); ok {
		if code := httpStatusFromGRPC(st.Code()); code != 0 {
			return p.statusError(code, st.Message())
		}
	}
	return fmt.Errorf("gemini request: %w", err)
}

// statusError reports a rejected key as 401; Gemini answers it with 400.
func (p *GeminiProvider) statusError(code int, msg string) *StatusError {
	if code == http.StatusBadRequest && strings.Contains(msg, "API key not valid") {
		code = http.StatusUnauthorized
	}
	return &StatusError{Provider: p.Name(), StatusCode: code, Message: msg}
}

func httpStatusFromGRPC(c codes.Code) int {
	switch c {
	case codes.Unauthenticated, codes.PermissionDenied:
		return http.StatusUnauthorized
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.Internal:
		return http.StatusInternalServerError
	}
	return 0
}
