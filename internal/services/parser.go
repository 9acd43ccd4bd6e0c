package services

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/kaminuma/lifelog-insight-service/internal/models"
)

// fencedBlockRe matches a triple-backtick code block, optionally labeled
// json, across multiple lines. The inner content is capture group 1.
var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJSONPayload pulls the JSON-looking portion out of free-form model
// output. Tried in order, first match wins:
//  1. the inside of a fenced code block
//  2. the span from the first '{' to the last '}'
//  3. the trimmed raw text
func ExtractJSONPayload(raw string) string {
	if m := fencedBlockRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}

	first := strings.Index(raw, "{")
	last := strings.LastIndex(raw, "}")
	if first != -1 && last > first {
		return raw[first : last+1]
	}

	return strings.TrimSpace(raw)
}

// insightPayload is the six-field shape the prompt instructs the model to
// emit. CreatedAt is stamped by the parser, not the model.
type insightPayload struct {
	Summary             string   `json:"summary"`
	MoodAnalysis        string   `json:"moodAnalysis"`
	ActivityAnalysis    string   `json:"activityAnalysis"`
	Recommendations     []string `json:"recommendations"`
	Highlights          []string `json:"highlights"`
	MotivationalMessage string   `json:"motivationalMessage"`
}

// ParseInsight maps untrusted free-text model output onto the canonical
// insight shape. Parse failures surface as ResponseParseError so the caller
// can prompt a retry; they are never swallowed into an empty insight.
func ParseInsight(raw string) (*models.Insight, error) {
	payload := ExtractJSONPayload(raw)

	var parsed insightPayload
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, models.WrapDomainError(models.ErrKindResponseParse,
			"the AI response could not be read, please try again", err)
	}

	if parsed.Summary == "" {
		return nil, models.NewDomainError(models.ErrKindResponseParse,
			"the AI response was missing its summary, please try again")
	}

	if parsed.Recommendations == nil {
		parsed.Recommendations = []string{}
	}
	if parsed.Highlights == nil {
		parsed.Highlights = []string{}
	}

	return &models.Insight{
		Summary:             parsed.Summary,
		MoodAnalysis:        parsed.MoodAnalysis,
		ActivityAnalysis:    parsed.ActivityAnalysis,
		Recommendations:     parsed.Recommendations,
		Highlights:          parsed.Highlights,
		MotivationalMessage: parsed.MotivationalMessage,
		CreatedAt:           time.Now().UTC(),
	}, nil
}
