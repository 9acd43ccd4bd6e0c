package models

import "time"

// DateLayout is the calendar date format used across the API and prompts.
const DateLayout = "2006-01-02"

// clockLayout is the wall-clock format used for activity start/end times.
const clockLayout = "15:04"

// MoodRecord is a single mood entry from the tracker.
type MoodRecord struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Mood int    `json:"mood" validate:"required,min=1,max=5"`
	Note string `json:"note,omitempty" validate:"max=500"`
}

// ActivityRecord is a single logged activity with an optional time span.
type ActivityRecord struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Name      string `json:"name" validate:"required,max=100"`
	Category  string `json:"category" validate:"max=50"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
}

// DurationMinutes returns the activity length in minutes. An end time that is
// numerically before the start time is treated as crossing midnight. Returns
// 0 when either time is missing or unparsable.
func (a ActivityRecord) DurationMinutes() int {
	if a.StartTime == "" || a.EndTime == "" {
		return 0
	}
	start, err := time.Parse(clockLayout, a.StartTime)
	if err != nil {
		return 0
	}
	end, err := time.Parse(clockLayout, a.EndTime)
	if err != nil {
		return 0
	}

	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()
	if endMin < startMin {
		// crosses midnight
		return (24*60 - startMin) + endMin
	}
	return endMin - startMin
}
