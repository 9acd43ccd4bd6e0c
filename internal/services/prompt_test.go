package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaminuma/lifelog-insight-service/internal/models"
)

func promptFixture(t *testing.T, moodCount, activityCount int) *models.AnalysisRequest {
	t.Helper()

	var moods []models.MoodRecord
	for i := 0; i < moodCount; i++ {
		moods = append(moods, models.MoodRecord{
			Date: fmt.Sprintf("2024-01-%02d", i+1),
			Mood: (i % 5) + 1,
			Note: fmt.Sprintf("note %d", i+1),
		})
	}
	var activities []models.ActivityRecord
	for i := 0; i < activityCount; i++ {
		activities = append(activities, models.ActivityRecord{
			Date:     fmt.Sprintf("2024-01-%02d", (i%28)+1),
			Name:     fmt.Sprintf("activity %d", i+1),
			Category: fmt.Sprintf("Category%02d", i%8),
		})
	}

	req, err := NewAnalysisRequest("2024-01-01", "2024-01-28", moods, activities)
	require.NoError(t, err)
	return req
}

func TestPromptBuildDeterministic(t *testing.T) {
	b := NewPromptBuilder()
	req := promptFixture(t, 5, 10)
	cfg := models.DefaultAnalysisConfig()

	assert.Equal(t, b.Build(req, cfg), b.Build(req, cfg))
}

func TestPromptContainsSchemaDirective(t *testing.T) {
	b := NewPromptBuilder()
	req := promptFixture(t, 3, 3)

	prompt := b.Build(req, models.DefaultAnalysisConfig())

	for _, field := range []string{"summary", "moodAnalysis", "activityAnalysis", "recommendations", "highlights", "motivationalMessage"} {
		assert.Contains(t, prompt, `"`+field+`"`)
	}
	assert.Contains(t, prompt, "single JSON object")
	assert.Contains(t, prompt, "no surrounding prose")
}

func TestPromptPersonaVariesWithStyle(t *testing.T) {
	b := NewPromptBuilder()
	req := promptFixture(t, 3, 3)

	cfg := models.DefaultAnalysisConfig()
	cfg.ResponseStyle = models.StyleProfessional
	professional := b.Build(req, cfg)

	cfg.ResponseStyle = models.StyleMotivational
	motivational := b.Build(req, cfg)

	assert.NotEqual(t, professional, motivational)
	assert.Contains(t, professional, "behavioral analyst")
	assert.Contains(t, motivational, "motivational coach")
}

func TestPromptDetailLevelSetsRecommendationCount(t *testing.T) {
	b := NewPromptBuilder()
	req := promptFixture(t, 3, 3)

	cfg := models.DefaultAnalysisConfig()
	cfg.DetailLevel = models.DetailConcise
	assert.Contains(t, b.Build(req, cfg), "exactly 2 recommendations")

	cfg.DetailLevel = models.DetailDeep
	assert.Contains(t, b.Build(req, cfg), "exactly 5 recommendations")
}

func TestPromptComparisonHeader(t *testing.T) {
	b := NewPromptBuilder()
	req := promptFixture(t, 3, 3)

	cfg := models.DefaultAnalysisConfig()
	cfg.Comparison = models.ComparisonPrevious
	assert.Contains(t, b.Build(req, cfg), "preceding period")

	cfg.Comparison = models.ComparisonNone
	assert.NotContains(t, b.Build(req, cfg), "preceding period")
}

func TestPromptBoundsMoodDump(t *testing.T) {
	b := NewPromptBuilder()
	req := promptFixture(t, 20, 0)

	prompt := b.Build(req, models.DefaultAnalysisConfig())

	assert.Contains(t, prompt, "most recent 7")
	// Only the last seven entries appear.
	assert.NotContains(t, prompt, "note 13")
	assert.Contains(t, prompt, "note 14")
	assert.Contains(t, prompt, "note 20")
}

func TestPromptMoodDumpPicksNewestByDate(t *testing.T) {
	b := NewPromptBuilder()

	// The newest entry comes first in the slice; position must not matter.
	moods := []models.MoodRecord{{Date: "2024-01-08", Mood: 4, Note: "note 8"}}
	for i := 1; i <= 7; i++ {
		moods = append(moods, models.MoodRecord{
			Date: fmt.Sprintf("2024-01-%02d", i),
			Mood: 3,
			Note: fmt.Sprintf("note %d", i),
		})
	}
	req, err := NewAnalysisRequest("2024-01-01", "2024-01-08", moods, nil)
	require.NoError(t, err)

	prompt := b.Build(req, models.DefaultAnalysisConfig())

	assert.Contains(t, prompt, "(note 8)")
	assert.NotContains(t, prompt, "(note 1)", "the oldest entry drops out, not the newest")
}

func TestPromptBoundsCategoryDump(t *testing.T) {
	b := NewPromptBuilder()
	req := promptFixture(t, 1, 40) // eight distinct categories

	prompt := b.Build(req, models.DefaultAnalysisConfig())

	lines := 0
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, "- Category") {
			lines++
		}
	}
	assert.Equal(t, maxCategoriesInPrompt, lines)
}

func TestPromptEmptyConfigUsesDefaults(t *testing.T) {
	b := NewPromptBuilder()
	req := promptFixture(t, 3, 3)

	prompt := b.Build(req, models.AnalysisConfig{})
	assert.Contains(t, prompt, personaByStyle[models.StyleFriendly])
}
