package services

import (
	"sort"
	"time"

	"github.com/kaminuma/lifelog-insight-service/internal/models"
)

// Summarize derives the period aggregates used by prompts and metrics.
// Pure function: no side effects, deterministic for a given input.
//
// Day count is the inclusive difference between the two dates; if either date
// fails to parse the count falls back to 1. The request assembler rejects
// malformed dates, so the fallback is only reachable when Summarize is called
// directly.
func Summarize(startDate, endDate string, moods []models.MoodRecord, activities []models.ActivityRecord) models.PeriodSummary {
	summary := models.PeriodSummary{
		StartDate:       startDate,
		EndDate:         endDate,
		DayCount:        dayCount(startDate, endDate),
		MoodRecordCount: len(moods),
		TotalActivities: len(activities),
	}

	if len(moods) > 0 {
		total := 0
		for _, m := range moods {
			total += m.Mood
		}
		summary.AverageMood = float64(total) / float64(len(moods))
	}

	summary.TopCategory = topCategory(activities)

	totalMinutes := 0
	for _, a := range activities {
		totalMinutes += a.DurationMinutes()
	}
	summary.ActivityHours = float64(totalMinutes) / 60.0

	return summary
}

func dayCount(startDate, endDate string) int {
	start, err := time.Parse(models.DateLayout, startDate)
	if err != nil {
		return 1
	}
	end, err := time.Parse(models.DateLayout, endDate)
	if err != nil {
		return 1
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// topCategory returns the category with the most activity entries.
// Ties break deterministically: the lexicographically smaller name wins.
func topCategory(activities []models.ActivityRecord) string {
	counts := make(map[string]int)
	for _, a := range activities {
		if a.Category == "" {
			continue
		}
		counts[a.Category]++
	}
	if len(counts) == 0 {
		return ""
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	top := names[0]
	for _, name := range names[1:] {
		if counts[name] > counts[top] {
			top = name
		}
	}
	return top
}

// categoryCount pairs a category with its entry count for prompt rendering.
type categoryCount struct {
	Name  string
	Count int
}

// topCategories returns up to limit categories ordered by count descending,
// name ascending on ties.
func topCategories(activities []models.ActivityRecord, limit int) []categoryCount {
	counts := make(map[string]int)
	for _, a := range activities {
		if a.Category == "" {
			continue
		}
		counts[a.Category]++
	}

	ranked := make([]categoryCount, 0, len(counts))
	for name, count := range counts {
		ranked = append(ranked, categoryCount{Name: name, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Name < ranked[j].Name
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
