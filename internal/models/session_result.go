package models

import "strings"

// Session names as stored in the telemetry table
const (
	SessionRace       = "Race"
	SessionQualifying = "Qualifying"
)

// SessionResult represents one driver's row from a stored session result
type SessionResult struct {
	Year            int      `json:"year" validate:"required,gte=1950"`
	GrandPrix       string   `json:"grand_prix" validate:"required"`
	Session         string   `json:"session" validate:"required,session"`
	DriverAbbr      string   `json:"driver_abbr" validate:"required"`
	DriverName      string   `json:"driver_name"`
	Team            string   `json:"team"`
	Position        *int     `json:"position,omitempty"`
	RaceTimeSeconds *float64 `json:"race_time_seconds,omitempty"`
	Status          string   `json:"status,omitempty"`
	Points          float64  `json:"points,omitempty"`
	Q1Seconds       *float64 `json:"q1_seconds,omitempty"`
	Q2Seconds       *float64 `json:"q2_seconds,omitempty"`
	Q3Seconds       *float64 `json:"q3_seconds,omitempty"`
}

// BestQualifyingTime returns the fastest available qualifying lap,
// preferring Q3 over Q2 over Q1. Nil when the driver set no time.
func (r *SessionResult) BestQualifyingTime() *float64 {
	if r.Q3Seconds != nil {
		return r.Q3Seconds
	}
	if r.Q2Seconds != nil {
		return r.Q2Seconds
	}
	return r.Q1Seconds
}

// IsClassifiedFinish reports whether the race status counts as a classified
// finish. Lapped cars ("+1 Lap", "+2 Laps") are classified; DNF statuses
// such as "Retired", "Accident" or "Engine" are not.
func (r *SessionResult) IsClassifiedFinish() bool {
	if r.Status == "Finished" {
		return true
	}
	return strings.HasPrefix(r.Status, "+") && strings.Contains(r.Status, "Lap")
}

// QualifyingResult is a driver's qualifying outcome used for inference
type QualifyingResult struct {
	Year               int      `json:"year" validate:"required"`
	GrandPrix          string   `json:"grand_prix" validate:"required"`
	DriverAbbr         string   `json:"driver_abbr" validate:"required"`
	DriverName         string   `json:"driver_name"`
	Team               string   `json:"team"`
	QualifyingPosition *int     `json:"qualifying_position,omitempty"`
	QualifyingTime     *float64 `json:"qualifying_time,omitempty"`
}

// HistoricalRow is a merged race+qualifying row used for training. Rows only
// exist after the loader has validated both times, so they are non-pointer.
type HistoricalRow struct {
	Year               int     `json:"year"`
	GrandPrix          string  `json:"grand_prix"`
	DriverAbbr         string  `json:"driver_abbr"`
	DriverName         string  `json:"driver_name"`
	Team               string  `json:"team"`
	FinishPosition     *int    `json:"finish_position,omitempty"`
	RaceTimeSeconds    float64 `json:"race_time_seconds"`
	QualifyingPosition *int    `json:"qualifying_position,omitempty"`
	QualifyingTime     float64 `json:"qualifying_time"`
}
