package services

import (
	"time"

	"github.com/kaminuma/lifelog-insight-service/internal/models"
)

// NewAnalysisRequest validates and packages a date range plus records into an
// immutable analysis request. Construction fails rather than coercing bad
// input: malformed dates and inverted ranges are request errors, an empty
// record set is an insufficient-data error.
func NewAnalysisRequest(startDate, endDate string, moods []models.MoodRecord, activities []models.ActivityRecord) (*models.AnalysisRequest, error) {
	start, err := time.Parse(models.DateLayout, startDate)
	if err != nil {
		return nil, models.NewDomainError(models.ErrKindRequest, "start date must be a valid date in YYYY-MM-DD form")
	}
	end, err := time.Parse(models.DateLayout, endDate)
	if err != nil {
		return nil, models.NewDomainError(models.ErrKindRequest, "end date must be a valid date in YYYY-MM-DD form")
	}
	if end.Before(start) {
		return nil, models.NewDomainError(models.ErrKindRequest, "end date must not be before start date")
	}
	if len(moods) == 0 && len(activities) == 0 {
		return nil, models.NewDomainError(models.ErrKindInsufficientData, "no mood or activity records in the selected period")
	}

	return &models.AnalysisRequest{
		StartDate:   startDate,
		EndDate:     endDate,
		MoodRecords: moods,
		Activities:  activities,
		Summary:     Summarize(startDate, endDate, moods, activities),
	}, nil
}
