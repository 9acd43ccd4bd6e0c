package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kaminuma/lifelog-insight-service/internal/models"
)

// minPlausibleAPIKeyLength filters out keys that are set but obviously
// truncated or placeholder values.
const minPlausibleAPIKeyLength = 20

// GeminiOptions configures the direct provider adapter.
type GeminiOptions struct {
	APIKey          string
	BaseURL         string
	Temperature     float64
	MaxOutputTokens int
	HTTPClient      *http.Client
	Collector       *Collector
	AuthEvents      *AuthEvents
	Logger          *zap.Logger
}

// GeminiBackend calls the LLM provider directly with a locally held API key
// and parses the free-text reply into the canonical insight shape.
type GeminiBackend struct {
	apiKey          string
	baseURL         string
	temperature     float64
	maxOutputTokens int
	client          *http.Client
	prompts         *PromptBuilder
	collector       *Collector
	authEvents      *AuthEvents
	logger          *zap.Logger
}

func NewGeminiBackend(opts GeminiOptions) *GeminiBackend {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	if opts.MaxOutputTokens == 0 {
		opts.MaxOutputTokens = 2048
	}
	return &GeminiBackend{
		apiKey:          opts.APIKey,
		baseURL:         opts.BaseURL,
		temperature:     opts.Temperature,
		maxOutputTokens: opts.MaxOutputTokens,
		client:          client,
		prompts:         NewPromptBuilder(),
		collector:       opts.Collector,
		authEvents:      opts.AuthEvents,
		logger:          logger,
	}
}

// Request/response wire shapes for the provider's generate endpoint.
type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	ResponseFormat  string  `json:"responseFormat,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		TotalTokenCount int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

func (b *GeminiBackend) Kind() models.BackendKind {
	return models.BackendGemini
}

func (b *GeminiBackend) IsConfigured() bool {
	return len(b.apiKey) >= minPlausibleAPIKeyLength
}

func (b *GeminiBackend) ConfigurationStatus() models.BackendStatus {
	status := models.BackendStatus{
		Provider:         models.BackendGemini,
		Configured:       b.apiKey != "",
		ValidCredentials: b.IsConfigured(),
	}
	switch {
	case b.apiKey == "":
		status.ErrorMessage = "no API key configured"
	case !b.IsConfigured():
		status.ErrorMessage = "API key looks too short to be valid"
	}
	return status
}

func (b *GeminiBackend) GenerateInsight(ctx context.Context, req *models.AnalysisRequest, cfg models.AnalysisConfig) *models.InsightResult {
	started := time.Now()

	if !b.IsConfigured() {
		return b.failure(ctx, req, started, models.NewDomainError(models.ErrKindAPIKeyNotSet,
			"no API key is configured for the AI provider"))
	}

	prompt := b.prompts.Build(req, cfg)

	payload := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     b.temperature,
			MaxOutputTokens: b.maxOutputTokens,
			ResponseFormat:  "application/json",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return b.failure(ctx, req, started, models.WrapDomainError(models.ErrKindUnknown,
			"failed to build the provider request", err))
	}

	url := fmt.Sprintf("%s/generate?key=%s", b.baseURL, b.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return b.failure(ctx, req, started, models.WrapDomainError(models.ErrKindRequest,
			"failed to build the provider request", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return b.failure(ctx, req, started, ClassifyError(err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return b.failure(ctx, req, started, ClassifyError(err))
	}

	if derr := ClassifyStatus(resp.StatusCode, string(respBody)); derr != nil {
		b.notifyAuthFailure(resp.StatusCode)
		return b.failure(ctx, req, started, derr)
	}

	var decoded geminiResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return b.failure(ctx, req, started, models.WrapDomainError(models.ErrKindResponseParse,
			"the AI response could not be read, please try again", err))
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return b.failure(ctx, req, started, models.NewDomainError(models.ErrKindResponseParse,
			"the AI service returned an empty response, please try again"))
	}

	insight, err := ParseInsight(decoded.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return b.failure(ctx, req, started, ClassifyError(err))
	}

	latency := time.Since(started).Milliseconds()
	tokens := decoded.UsageMetadata.TotalTokenCount

	b.record(ctx, models.MetricEntry{
		Backend:       models.BackendGemini,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		MoodCount:     len(req.MoodRecords),
		ActivityCount: len(req.Activities),
		Success:       true,
		LatencyMs:     latency,
		ResponseSize:  len(respBody),
		TokensUsed:    tokens,
	})

	return &models.InsightResult{
		Success: true,
		Data:    insight,
		Metadata: models.ResultMetadata{
			Provider:         string(models.BackendGemini),
			ProcessingTimeMs: latency,
			TokensUsed:       tokens,
		},
	}
}

func (b *GeminiBackend) failure(ctx context.Context, req *models.AnalysisRequest, started time.Time, derr *models.DomainError) *models.InsightResult {
	latency := time.Since(started).Milliseconds()

	b.logger.Warn("direct provider call failed",
		zap.String("kind", string(derr.Kind)),
		zap.Int64("latency_ms", latency))

	b.record(ctx, models.MetricEntry{
		Backend:       models.BackendGemini,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		MoodCount:     len(req.MoodRecords),
		ActivityCount: len(req.Activities),
		Success:       false,
		LatencyMs:     latency,
		ErrorKind:     derr.Kind,
		ErrorMessage:  derr.Message,
	})

	return &models.InsightResult{
		Success:   false,
		Error:     derr.Message,
		ErrorKind: derr.Kind,
		Metadata: models.ResultMetadata{
			Provider:         string(models.BackendGemini),
			ProcessingTimeMs: latency,
		},
	}
}

func (b *GeminiBackend) record(ctx context.Context, entry models.MetricEntry) {
	if b.collector != nil {
		b.collector.Record(ctx, entry)
	}
}

func (b *GeminiBackend) notifyAuthFailure(status int) {
	if b.authEvents == nil {
		return
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		b.authEvents.Publish(AuthEvent{
			Backend:    models.BackendGemini,
			StatusCode: status,
			Timestamp:  time.Now().UTC(),
		})
	}
}
