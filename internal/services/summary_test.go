package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kaminuma/lifelog-insight-service/internal/models"
)

func TestSummarizeExampleScenario(t *testing.T) {
	moods := []models.MoodRecord{
		{Date: "2024-01-02", Mood: 4},
		{Date: "2024-01-05", Mood: 2},
	}

	summary := Summarize("2024-01-01", "2024-01-07", moods, nil)

	assert.Equal(t, 7, summary.DayCount)
	assert.Equal(t, 3.0, summary.AverageMood)
	assert.Equal(t, 2, summary.MoodRecordCount)
	assert.Equal(t, 0, summary.TotalActivities)
}

func TestSummarizeDayCountInclusive(t *testing.T) {
	tests := []struct {
		start, end string
		want       int
	}{
		{"2024-01-01", "2024-01-01", 1},
		{"2024-01-01", "2024-01-02", 2},
		{"2024-01-01", "2024-01-31", 31},
		{"2024-02-01", "2024-03-01", 30}, // leap year
	}
	for _, tt := range tests {
		summary := Summarize(tt.start, tt.end, []models.MoodRecord{{Date: tt.start, Mood: 3}}, nil)
		assert.Equal(t, tt.want, summary.DayCount, "%s..%s", tt.start, tt.end)
	}
}

func TestSummarizeUnparsableDatesDefaultToOneDay(t *testing.T) {
	summary := Summarize("not-a-date", "2024-01-07", nil, nil)
	assert.Equal(t, 1, summary.DayCount)
}

func TestSummarizeEmptyMoodsAverageZero(t *testing.T) {
	summary := Summarize("2024-01-01", "2024-01-07", nil, []models.ActivityRecord{
		{Date: "2024-01-01", Name: "Run", Category: "Exercise"},
	})
	assert.Equal(t, 0.0, summary.AverageMood)
	assert.Equal(t, 1, summary.TotalActivities)
}

func TestSummarizeTopCategoryAndTieBreak(t *testing.T) {
	activities := []models.ActivityRecord{
		{Date: "2024-01-01", Name: "Run", Category: "Exercise"},
		{Date: "2024-01-02", Name: "Swim", Category: "Exercise"},
		{Date: "2024-01-03", Name: "Read", Category: "Leisure"},
	}
	summary := Summarize("2024-01-01", "2024-01-07", nil, activities)
	assert.Equal(t, "Exercise", summary.TopCategory)

	// Ties break to the lexicographically smaller name.
	tied := []models.ActivityRecord{
		{Date: "2024-01-01", Name: "Read", Category: "Leisure"},
		{Date: "2024-01-02", Name: "Run", Category: "Exercise"},
	}
	summary = Summarize("2024-01-01", "2024-01-07", nil, tied)
	assert.Equal(t, "Exercise", summary.TopCategory)
}

func TestSummarizeActivityHours(t *testing.T) {
	activities := []models.ActivityRecord{
		{Date: "2024-01-01", Name: "Run", Category: "Exercise", StartTime: "07:00", EndTime: "08:30"},
		{Date: "2024-01-01", Name: "Read", Category: "Leisure", StartTime: "21:00", EndTime: "21:30"},
	}
	summary := Summarize("2024-01-01", "2024-01-01", nil, activities)
	assert.InDelta(t, 2.0, summary.ActivityHours, 0.001)
}

func TestSummarizeActivityCrossesMidnight(t *testing.T) {
	activities := []models.ActivityRecord{
		{Date: "2024-01-01", Name: "Sleep", Category: "Rest", StartTime: "23:00", EndTime: "07:00"},
	}
	summary := Summarize("2024-01-01", "2024-01-02", nil, activities)
	assert.InDelta(t, 8.0, summary.ActivityHours, 0.001)
}

func TestTopCategoriesRankingAndLimit(t *testing.T) {
	activities := []models.ActivityRecord{
		{Category: "A"}, {Category: "A"}, {Category: "A"},
		{Category: "B"}, {Category: "B"},
		{Category: "C"}, {Category: "C"},
		{Category: "D"},
		{Category: "E"},
		{Category: "F"},
	}
	ranked := topCategories(activities, 5)
	assert.Len(t, ranked, 5)
	assert.Equal(t, "A", ranked[0].Name)
	assert.Equal(t, 3, ranked[0].Count)
	// B and C tie at 2; B sorts first.
	assert.Equal(t, "B", ranked[1].Name)
	assert.Equal(t, "C", ranked[2].Name)
}
