package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaminuma/lifelog-insight-service/internal/models"
)

func TestNewAnalysisRequestValid(t *testing.T) {
	moods := []models.MoodRecord{{Date: "2024-01-02", Mood: 4}}

	req, err := NewAnalysisRequest("2024-01-01", "2024-01-07", moods, nil)
	require.NoError(t, err)

	assert.Equal(t, "2024-01-01", req.StartDate)
	assert.Equal(t, "2024-01-07", req.EndDate)
	assert.Equal(t, 7, req.Summary.DayCount)
	assert.Len(t, req.MoodRecords, 1)
}

func TestNewAnalysisRequestRejectsEmptyData(t *testing.T) {
	_, err := NewAnalysisRequest("2024-01-01", "2024-01-07", nil, nil)
	require.Error(t, err)
	assert.Equal(t, models.ErrKindInsufficientData, models.KindOf(err))
}

func TestNewAnalysisRequestRejectsMalformedDates(t *testing.T) {
	moods := []models.MoodRecord{{Date: "2024-01-02", Mood: 4}}

	_, err := NewAnalysisRequest("01/01/2024", "2024-01-07", moods, nil)
	require.Error(t, err)
	assert.Equal(t, models.ErrKindRequest, models.KindOf(err))

	_, err = NewAnalysisRequest("2024-01-01", "garbage", moods, nil)
	require.Error(t, err)
	assert.Equal(t, models.ErrKindRequest, models.KindOf(err))
}

func TestNewAnalysisRequestRejectsInvertedRange(t *testing.T) {
	moods := []models.MoodRecord{{Date: "2024-01-02", Mood: 4}}

	_, err := NewAnalysisRequest("2024-01-07", "2024-01-01", moods, nil)
	require.Error(t, err)
	assert.Equal(t, models.ErrKindRequest, models.KindOf(err))
}

func TestNewAnalysisRequestSameDayAllowed(t *testing.T) {
	activities := []models.ActivityRecord{{Date: "2024-01-01", Name: "Run"}}

	req, err := NewAnalysisRequest("2024-01-01", "2024-01-01", nil, activities)
	require.NoError(t, err)
	assert.Equal(t, 1, req.Summary.DayCount)
}
