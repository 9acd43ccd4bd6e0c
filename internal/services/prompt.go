package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kaminuma/lifelog-insight-service/internal/models"
)

// Bounds on how much raw detail goes into a prompt so its size stays
// predictable regardless of how much the user logged.
const (
	maxMoodEntriesInPrompt = 7
	maxCategoriesInPrompt  = 5
)

// PromptBuilder renders a provider-agnostic text prompt from an analysis
// request and configuration. Pure string templating; no network or state.
type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

var personaByStyle = map[models.ResponseStyle]string{
	models.StyleFriendly:     "You are a warm, supportive life coach. Write in a friendly, conversational voice, like a close friend who wants the best for the user.",
	models.StyleProfessional: "You are a precise behavioral analyst. Write in a neutral, professional voice and base every statement on the data provided.",
	models.StyleMotivational: "You are an energetic motivational coach. Write with enthusiasm, celebrate wins, and frame setbacks as opportunities.",
}

var focusDirectives = map[models.AnalysisFocus]string{
	models.FocusMood:     "Weight mood patterns most heavily: dig into mood swings, streaks of good or bad days, and what the data suggests drives them.",
	models.FocusActivity: "Weight activity patterns most heavily: time allocation across categories, consistency, and how activities are balanced.",
	models.FocusWellness: "Weight overall wellness: rest versus effort, sustainable routines, and signs of strain or recovery in the data.",
	models.FocusBalanced: "Give mood and activity data equal weight and look for relationships between them.",
}

// detailDirective parameterizes output length and recommendation count.
type detailDirective struct {
	Length          string
	Recommendations int
}

var detailDirectives = map[models.DetailLevel]detailDirective{
	models.DetailConcise:  {"Keep each text field to 2-3 sentences.", 2},
	models.DetailStandard: {"Keep each text field to 4-6 sentences.", 3},
	models.DetailDeep:     {"Write thorough text fields of up to 10 sentences each.", 5},
}

// Build renders the full prompt. Deterministic for a given request/config.
func (b *PromptBuilder) Build(req *models.AnalysisRequest, cfg models.AnalysisConfig) string {
	cfg = cfg.Normalized()

	var sb strings.Builder

	sb.WriteString(personaByStyle[cfg.ResponseStyle])
	sb.WriteString("\n\n")

	b.writePeriodHeader(&sb, req, cfg)
	sb.WriteString("\n")

	sb.WriteString(focusDirectives[cfg.Focus])
	sb.WriteString("\n")

	detail := detailDirectives[cfg.DetailLevel]
	fmt.Fprintf(&sb, "%s Provide exactly %d recommendations.\n\n", detail.Length, detail.Recommendations)

	b.writeStats(&sb, req)
	b.writeMoodDetail(&sb, req.MoodRecords)
	b.writeActivityDetail(&sb, req.Activities)

	b.writeSchemaDirective(&sb, detail.Recommendations)

	return sb.String()
}

func (b *PromptBuilder) writePeriodHeader(sb *strings.Builder, req *models.AnalysisRequest, cfg models.AnalysisConfig) {
	fmt.Fprintf(sb, "Analyze the user's life log for the period %s to %s (%d days, framed as: %s).\n",
		req.StartDate, req.EndDate, req.Summary.DayCount, cfg.Period.Label())
	if cfg.Comparison == models.ComparisonPrevious {
		sb.WriteString("Where the data allows, contrast this period with what the immediately preceding period of the same length would typically look like and call out trends.\n")
	}
}

func (b *PromptBuilder) writeStats(sb *strings.Builder, req *models.AnalysisRequest) {
	s := req.Summary
	sb.WriteString("DATA SUMMARY:\n")
	fmt.Fprintf(sb, "- Mood records: %d (average mood %.1f on a 1-5 scale)\n", s.MoodRecordCount, s.AverageMood)
	if s.MoodRecordCount > 0 {
		low, high := moodRange(req.MoodRecords)
		fmt.Fprintf(sb, "- Mood range: %d to %d\n", low, high)
	}
	fmt.Fprintf(sb, "- Activities: %d totaling %.1f hours\n", s.TotalActivities, s.ActivityHours)
	if s.TopCategory != "" {
		fmt.Fprintf(sb, "- Most frequent activity category: %s\n", s.TopCategory)
	}
	sb.WriteString("\n")
}

func (b *PromptBuilder) writeMoodDetail(sb *strings.Builder, moods []models.MoodRecord) {
	if len(moods) == 0 {
		return
	}
	// Callers may hand records in any order; most recent means by date, not
	// by slice position.
	ordered := make([]models.MoodRecord, len(moods))
	copy(ordered, moods)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date < ordered[j].Date })

	recent := ordered
	if len(recent) > maxMoodEntriesInPrompt {
		recent = recent[len(recent)-maxMoodEntriesInPrompt:]
	}
	fmt.Fprintf(sb, "RECENT MOOD ENTRIES (most recent %d):\n", len(recent))
	for _, m := range recent {
		if m.Note != "" {
			fmt.Fprintf(sb, "- %s: mood %d (%s)\n", m.Date, m.Mood, m.Note)
		} else {
			fmt.Fprintf(sb, "- %s: mood %d\n", m.Date, m.Mood)
		}
	}
	sb.WriteString("\n")
}

func (b *PromptBuilder) writeActivityDetail(sb *strings.Builder, activities []models.ActivityRecord) {
	ranked := topCategories(activities, maxCategoriesInPrompt)
	if len(ranked) == 0 {
		return
	}
	sb.WriteString("TOP ACTIVITY CATEGORIES:\n")
	for _, c := range ranked {
		fmt.Fprintf(sb, "- %s: %d entries\n", c.Name, c.Count)
	}
	sb.WriteString("\n")
}

func (b *PromptBuilder) writeSchemaDirective(sb *strings.Builder, recommendations int) {
	fmt.Fprintf(sb, `Respond with a single JSON object and no surrounding prose, using exactly these fields:
{
  "summary": "overall summary of the period",
  "moodAnalysis": "analysis of mood patterns",
  "activityAnalysis": "analysis of activity patterns",
  "recommendations": ["%d actionable recommendations"],
  "highlights": ["up to 3 positive highlights from the period"],
  "motivationalMessage": "a closing message matching the requested tone"
}
`, recommendations)
}

func moodRange(moods []models.MoodRecord) (low, high int) {
	low, high = moods[0].Mood, moods[0].Mood
	for _, m := range moods[1:] {
		if m.Mood < low {
			low = m.Mood
		}
		if m.Mood > high {
			high = m.Mood
		}
	}
	return low, high
}
