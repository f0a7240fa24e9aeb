package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"loginsight-backend/config"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature float64 `json:"temperature"`
}

type geminiRequestBody struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
	Index        int           `json:"index"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiInvoker struct {
	apiKey     string
	httpClient *http.Client
}

// NewGeminiInvoker builds the raw HTTP invoker. Callers normally wrap it with
// NewRetryingInvoker; NewInvoker does both from config.
func NewGeminiInvoker(cfg *config.Config) Invoker {
	return &geminiInvoker{
		apiKey: cfg.Model.APIKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// NewInvoker is the fx provider: the Gemini client behind the throttle-retry
// wrapper.
func NewInvoker(cfg *config.Config) Invoker {
	return NewRetryingInvoker(NewGeminiInvoker(cfg), cfg.Model.ThrottleMaxRetries, cfg.Model.ThrottleWait)
}

func (s *geminiInvoker) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	body := geminiRequestBody{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}},
		},
		GenerationConfig: &geminiGenerationConfig{Temperature: req.Temperature},
	}
	if req.SystemPrompt != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	respBodyBytes, err := s.callAPI(ctx, req.ModelID, bodyBytes)
	if err != nil {
		return "", err
	}

	var resp geminiResponse
	if err := json.Unmarshal(respBodyBytes, &resp); err != nil {
		log.Error().Err(err).Bytes("response_body", respBodyBytes).Msg("Failed to unmarshal model API response")
		return "", fmt.Errorf("failed to parse model response: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("received empty or invalid response structure from model")
	}

	return resp.Candidates[0].Content.Parts[0].Text, nil
}

func (s *geminiInvoker) callAPI(ctx context.Context, modelID string, bodyBytes []byte) ([]byte, error) {
	url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s", modelID, s.apiKey)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("model_id", modelID).Msg("Model HTTP request failed")
		return nil, fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()

	respBodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: status %d: %s", ErrThrottled, resp.StatusCode, string(respBodyBytes))
	}
	if resp.StatusCode != http.StatusOK {
		if IsThrottleMessage(string(respBodyBytes)) {
			return nil, fmt.Errorf("%w: status %d: %s", ErrThrottled, resp.StatusCode, string(respBodyBytes))
		}
		log.Error().Int("status_code", resp.StatusCode).Bytes("response_body", respBodyBytes).Msg("Model API returned non-OK status")
		return nil, fmt.Errorf("model API error: status code %d", resp.StatusCode)
	}

	return respBodyBytes, nil
}
