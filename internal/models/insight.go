package models

import (
	"fmt"
	"time"
)

// AnalysisPeriod frames which slice of time the analysis talks about.
type AnalysisPeriod string

const (
	PeriodWeek   AnalysisPeriod = "week"
	PeriodMonth  AnalysisPeriod = "month"
	PeriodCustom AnalysisPeriod = "custom"
)

// ComparisonOption controls whether the prompt asks the model to contrast the
// period with the one before it.
type ComparisonOption string

const (
	ComparisonNone     ComparisonOption = "none"
	ComparisonPrevious ComparisonOption = "previous_period"
)

// AnalysisFocus weights the analysis toward one dimension of the data.
type AnalysisFocus string

const (
	FocusMood     AnalysisFocus = "mood"
	FocusActivity AnalysisFocus = "activity"
	FocusWellness AnalysisFocus = "wellness"
	FocusBalanced AnalysisFocus = "balanced"
)

// DetailLevel parameterizes output length and recommendation count.
type DetailLevel string

const (
	DetailConcise  DetailLevel = "concise"
	DetailStandard DetailLevel = "standard"
	DetailDeep     DetailLevel = "detailed"
)

// ResponseStyle selects the persona/tone preamble of the prompt.
type ResponseStyle string

const (
	StyleFriendly     ResponseStyle = "friendly"
	StyleProfessional ResponseStyle = "professional"
	StyleMotivational ResponseStyle = "motivational"
)

// enumOption carries the display label and description shown to users when
// picking a configuration value.
type enumOption struct {
	Label       string
	Description string
}

var (
	periodOptions = map[AnalysisPeriod]enumOption{
		PeriodWeek:   {"Past week", "Analyze the last seven days"},
		PeriodMonth:  {"Past month", "Analyze the last thirty days"},
		PeriodCustom: {"Custom range", "Analyze an explicit date range"},
	}
	comparisonOptions = map[ComparisonOption]enumOption{
		ComparisonNone:     {"No comparison", "Look at this period on its own"},
		ComparisonPrevious: {"Compare with previous", "Contrast with the preceding period"},
	}
	focusOptions = map[AnalysisFocus]enumOption{
		FocusMood:     {"Mood focus", "Weight mood patterns most heavily"},
		FocusActivity: {"Activity focus", "Weight activity patterns most heavily"},
		FocusWellness: {"Wellness focus", "Weight overall wellness and balance"},
		FocusBalanced: {"Balanced", "Weight mood and activity equally"},
	}
	detailOptions = map[DetailLevel]enumOption{
		DetailConcise:  {"Concise", "Short summary with a few key points"},
		DetailStandard: {"Standard", "Balanced level of detail"},
		DetailDeep:     {"Detailed", "Thorough analysis with more recommendations"},
	}
	styleOptions = map[ResponseStyle]enumOption{
		StyleFriendly:     {"Friendly", "Warm, casual tone"},
		StyleProfessional: {"Professional", "Neutral, precise tone"},
		StyleMotivational: {"Motivational", "Encouraging, energetic tone"},
	}
)

func (p AnalysisPeriod) Valid() bool    { _, ok := periodOptions[p]; return ok }
func (p AnalysisPeriod) Label() string  { return periodOptions[p].Label }
func (c ComparisonOption) Valid() bool  { _, ok := comparisonOptions[c]; return ok }
func (c ComparisonOption) Label() string { return comparisonOptions[c].Label }
func (f AnalysisFocus) Valid() bool     { _, ok := focusOptions[f]; return ok }
func (f AnalysisFocus) Label() string   { return focusOptions[f].Label }
func (d DetailLevel) Valid() bool       { _, ok := detailOptions[d]; return ok }
func (d DetailLevel) Label() string     { return detailOptions[d].Label }
func (s ResponseStyle) Valid() bool     { _, ok := styleOptions[s]; return ok }
func (s ResponseStyle) Label() string   { return styleOptions[s].Label }

// AnalysisConfig is the user-selected shape of an analysis. Immutable value
// object; use Normalized to fill gaps with defaults.
type AnalysisConfig struct {
	Period        AnalysisPeriod   `json:"period"`
	Comparison    ComparisonOption `json:"comparison"`
	Focus         AnalysisFocus    `json:"focus"`
	DetailLevel   DetailLevel      `json:"detail_level"`
	ResponseStyle ResponseStyle    `json:"response_style"`
}

// DefaultAnalysisConfig returns the configuration used when the caller does
// not express a preference.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		Period:        PeriodWeek,
		Comparison:    ComparisonNone,
		Focus:         FocusBalanced,
		DetailLevel:   DetailStandard,
		ResponseStyle: StyleFriendly,
	}
}

// Normalized returns a copy with empty fields replaced by defaults.
func (c AnalysisConfig) Normalized() AnalysisConfig {
	def := DefaultAnalysisConfig()
	if c.Period == "" {
		c.Period = def.Period
	}
	if c.Comparison == "" {
		c.Comparison = def.Comparison
	}
	if c.Focus == "" {
		c.Focus = def.Focus
	}
	if c.DetailLevel == "" {
		c.DetailLevel = def.DetailLevel
	}
	if c.ResponseStyle == "" {
		c.ResponseStyle = def.ResponseStyle
	}
	return c
}

// Validate rejects values outside the closed enumerations.
func (c AnalysisConfig) Validate() error {
	if !c.Period.Valid() {
		return fmt.Errorf("invalid period %q", c.Period)
	}
	if !c.Comparison.Valid() {
		return fmt.Errorf("invalid comparison %q", c.Comparison)
	}
	if !c.Focus.Valid() {
		return fmt.Errorf("invalid focus %q", c.Focus)
	}
	if !c.DetailLevel.Valid() {
		return fmt.Errorf("invalid detail level %q", c.DetailLevel)
	}
	if !c.ResponseStyle.Valid() {
		return fmt.Errorf("invalid response style %q", c.ResponseStyle)
	}
	return nil
}

// PeriodSummary is the derived aggregate of a record set over a date range.
// Computed once per request and never mutated afterwards.
type PeriodSummary struct {
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
	DayCount        int     `json:"day_count"`
	AverageMood     float64 `json:"average_mood"`
	MoodRecordCount int     `json:"mood_record_count"`
	TotalActivities int     `json:"total_activities"`
	TopCategory     string  `json:"top_category"`
	ActivityHours   float64 `json:"activity_hours"`
}

// AnalysisRequest packages a validated date range plus records for one
// analysis call. Constructed by services.NewAnalysisRequest; treat as
// immutable for the duration of the request.
type AnalysisRequest struct {
	StartDate   string           `json:"start_date"`
	EndDate     string           `json:"end_date"`
	MoodRecords []MoodRecord     `json:"mood_records"`
	Activities  []ActivityRecord `json:"activities"`
	Summary     PeriodSummary    `json:"summary"`
}

// Insight is the canonical six-field structure every backend strategy must
// produce, regardless of provider response format.
type Insight struct {
	Summary             string    `json:"summary"`
	MoodAnalysis        string    `json:"moodAnalysis"`
	ActivityAnalysis    string    `json:"activityAnalysis"`
	Recommendations     []string  `json:"recommendations"`
	Highlights          []string  `json:"highlights"`
	MotivationalMessage string    `json:"motivationalMessage"`
	CreatedAt           time.Time `json:"createdAt"`
}

// ResultMetadata describes how an insight was produced.
type ResultMetadata struct {
	Provider         string `json:"provider"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
	TokensUsed       int    `json:"tokens_used,omitempty"`
}

// InsightResult is the union-like outcome of one analysis call.
// Success implies Data != nil; failure implies Data == nil and Error set.
type InsightResult struct {
	Success   bool           `json:"success"`
	Data      *Insight       `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	ErrorKind ErrorKind      `json:"error_kind,omitempty"`
	Metadata  ResultMetadata `json:"metadata"`
}

// BackendKind discriminates which strategy produced a result or metric.
type BackendKind string

const (
	BackendGemini BackendKind = "gemini"
	BackendProxy  BackendKind = "proxy"
)

// BackendStatus reports whether a strategy is ready to serve requests.
type BackendStatus struct {
	Configured       bool        `json:"configured"`
	ValidCredentials bool        `json:"valid_credentials"`
	Provider         BackendKind `json:"provider"`
	ErrorMessage     string      `json:"error_message,omitempty"`
}
