package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kaminuma/lifelog-insight-service/internal/models"
)

const (
	maxRecommendations = 5
	maxHighlights      = 3
)

// ProxyOptions configures the authenticated proxy adapter.
type ProxyOptions struct {
	BaseURL    string
	Tokens     TokenProvider
	HTTPClient *http.Client
	Collector  *Collector
	AuthEvents *AuthEvents
	Logger     *zap.Logger
}

// ProxyBackend routes the analysis through the application's own backend,
// which holds the provider key server-side and returns structured fields.
type ProxyBackend struct {
	baseURL    string
	tokens     TokenProvider
	client     *http.Client
	collector  *Collector
	authEvents *AuthEvents
	logger     *zap.Logger
}

func NewProxyBackend(opts ProxyOptions) *ProxyBackend {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProxyBackend{
		baseURL:    opts.BaseURL,
		tokens:     opts.Tokens,
		client:     client,
		collector:  opts.Collector,
		authEvents: opts.AuthEvents,
		logger:     logger,
	}
}

// Wire shapes for the backend analysis endpoint.
type proxyRequest struct {
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	AnalysisFocus string `json:"analysis_focus"`
	DetailLevel   string `json:"detail_level"`
	ResponseStyle string `json:"response_style"`
}

type proxyResponse struct {
	Success   bool               `json:"success"`
	Error     string             `json:"error,omitempty"`
	Data      *proxyAnalysisData `json:"data"`
	UsageInfo *proxyUsageInfo    `json:"usage_info,omitempty"`
}

type proxyAnalysisData struct {
	OverallSummary   string `json:"overall_summary"`
	MoodInsights     string `json:"mood_insights"`
	ActivityInsights string `json:"activity_insights"`
	Recommendations  string `json:"recommendations"`
}

type proxyUsageInfo struct {
	TokensUsed int `json:"tokens_used"`
}

func (b *ProxyBackend) Kind() models.BackendKind {
	return models.BackendProxy
}

func (b *ProxyBackend) IsConfigured() bool {
	if b.baseURL == "" || b.tokens == nil {
		return false
	}
	_, err := b.tokens.BearerToken(context.Background())
	return err == nil
}

func (b *ProxyBackend) ConfigurationStatus() models.BackendStatus {
	status := models.BackendStatus{Provider: models.BackendProxy}
	if b.baseURL == "" {
		status.ErrorMessage = "no backend URL configured"
		return status
	}
	status.Configured = true
	if b.tokens == nil {
		status.ErrorMessage = "no token provider configured"
		return status
	}
	if _, err := b.tokens.BearerToken(context.Background()); err != nil {
		status.ErrorMessage = err.Error()
		return status
	}
	status.ValidCredentials = true
	return status
}

func (b *ProxyBackend) GenerateInsight(ctx context.Context, req *models.AnalysisRequest, cfg models.AnalysisConfig) *models.InsightResult {
	started := time.Now()
	cfg = cfg.Normalized()

	if b.baseURL == "" {
		return b.failure(ctx, req, started, models.NewDomainError(models.ErrKindRequest,
			"the analysis backend is not configured"))
	}

	token := ""
	if b.tokens != nil {
		var err error
		token, err = b.tokens.BearerToken(ctx)
		if err != nil {
			token = ""
		}
	}
	if token == "" {
		return b.failure(ctx, req, started, models.NewDomainError(models.ErrKindRequest,
			"authentication missing, please sign in again"))
	}

	payload := proxyRequest{
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		AnalysisFocus: string(cfg.Focus),
		DetailLevel:   string(cfg.DetailLevel),
		ResponseStyle: string(cfg.ResponseStyle),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return b.failure(ctx, req, started, models.WrapDomainError(models.ErrKindUnknown,
			"failed to build the analysis request", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/ai/analysis", bytes.NewReader(body))
	if err != nil {
		return b.failure(ctx, req, started, models.WrapDomainError(models.ErrKindRequest,
			"failed to build the analysis request", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

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

	var decoded proxyResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return b.failure(ctx, req, started, models.WrapDomainError(models.ErrKindResponseParse,
			"the analysis response could not be read, please try again", err))
	}
	if !decoded.Success || decoded.Data == nil {
		message := decoded.Error
		if message == "" {
			message = "the analysis backend reported a failure"
		}
		return b.failure(ctx, req, started, models.NewDomainError(models.ErrKindRequest, message))
	}

	insight := &models.Insight{
		Summary:             decoded.Data.OverallSummary,
		MoodAnalysis:        decoded.Data.MoodInsights,
		ActivityAnalysis:    decoded.Data.ActivityInsights,
		Recommendations:     splitRecommendations(decoded.Data.Recommendations),
		Highlights:          extractHighlights(decoded.Data.OverallSummary),
		MotivationalMessage: "",
		CreatedAt:           time.Now().UTC(),
	}

	latency := time.Since(started).Milliseconds()
	tokens := 0
	if decoded.UsageInfo != nil {
		tokens = decoded.UsageInfo.TokensUsed
	}

	b.record(ctx, models.MetricEntry{
		Backend:       models.BackendProxy,
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
			Provider:         string(models.BackendProxy),
			ProcessingTimeMs: latency,
			TokensUsed:       tokens,
		},
	}
}

func (b *ProxyBackend) failure(ctx context.Context, req *models.AnalysisRequest, started time.Time, derr *models.DomainError) *models.InsightResult {
	latency := time.Since(started).Milliseconds()

	b.logger.Warn("proxy backend call failed",
		zap.String("kind", string(derr.Kind)),
		zap.Int64("latency_ms", latency))

	b.record(ctx, models.MetricEntry{
		Backend:       models.BackendProxy,
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
			Provider:         string(models.BackendProxy),
			ProcessingTimeMs: latency,
		},
	}
}

func (b *ProxyBackend) record(ctx context.Context, entry models.MetricEntry) {
	if b.collector != nil {
		b.collector.Record(ctx, entry)
	}
}

func (b *ProxyBackend) notifyAuthFailure(status int) {
	if b.authEvents == nil {
		return
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		b.authEvents.Publish(AuthEvent{
			Backend:    models.BackendProxy,
			StatusCode: status,
			Timestamp:  time.Now().UTC(),
		})
	}
}

// bulletPrefixRe strips leading bullet markers and list numbering like
// "- ", "* ", "• ", "1. ", "2) ".
var bulletPrefixRe = regexp.MustCompile(`^[\s\-\*•]*(?:\d+[\.\)]\s*)?\s*`)

// splitRecommendations turns the backend's free-text recommendations field
// into discrete items: split on newlines, strip bullet/number markers, trim,
// drop empties, cap the count.
func splitRecommendations(text string) []string {
	items := []string{}
	for _, line := range strings.Split(text, "\n") {
		item := strings.TrimSpace(bulletPrefixRe.ReplaceAllString(line, ""))
		if item == "" {
			continue
		}
		items = append(items, item)
		if len(items) == maxRecommendations {
			break
		}
	}
	return items
}

// highlightKeywords mark sentences worth surfacing as highlights. This is a
// best-effort enrichment, not a contract; it is kept separate from the
// adapter control flow so it can be swapped out.
var highlightKeywords = []string{
	"improve",
	"great",
	"well",
	"progress",
	"achiev",
	"success",
	"positive",
	"better",
	"good",
	"consistent",
	"balance",
	"keep up",
}

var sentenceSplitRe = regexp.MustCompile(`[.!?]+\s+`)

// extractHighlights picks up to maxHighlights sentences from the summary
// that match a positive/actionable keyword.
func extractHighlights(summary string) []string {
	highlights := []string{}
	if strings.TrimSpace(summary) == "" {
		return highlights
	}

	sentences := sentenceSplitRe.Split(summary, -1)
	for _, sentence := range sentences {
		sentence = strings.TrimSpace(strings.TrimRight(sentence, ".!?"))
		if sentence == "" {
			continue
		}
		lower := strings.ToLower(sentence)
		for _, keyword := range highlightKeywords {
			if strings.Contains(lower, keyword) {
				highlights = append(highlights, sentence)
				break
			}
		}
		if len(highlights) == maxHighlights {
			break
		}
	}
	return highlights
}
