package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yourusername/race-forecast/internal/database"
	"github.com/yourusername/race-forecast/internal/models"
)

const sessionResultsDataType = "session_results"

// PostgresTelemetryRepository implements TelemetryRepository for PostgreSQL.
// Session results live in the telemetry_data table as one JSONB payload per
// event and session, one entry per driver.
type PostgresTelemetryRepository struct {
	db *database.DB
}

// NewPostgresTelemetryRepository creates a new telemetry repository
func NewPostgresTelemetryRepository(db *database.DB) TelemetryRepository {
	return &PostgresTelemetryRepository{db: db}
}

// sessionPayload is the stored JSONB document for one session
type sessionPayload struct {
	Results []driverResult `json:"results"`
}

// driverResult is one driver's entry inside a session payload
type driverResult struct {
	Abbreviation string   `json:"Abbreviation"`
	FullName     string   `json:"FullName"`
	TeamName     string   `json:"TeamName"`
	Position     *int     `json:"Position"`
	TimeSeconds  *float64 `json:"Time_seconds"`
	Status       string   `json:"Status"`
	Points       float64  `json:"Points"`
	Q1Seconds    *float64 `json:"Q1_seconds"`
	Q2Seconds    *float64 `json:"Q2_seconds"`
	Q3Seconds    *float64 `json:"Q3_seconds"`
}

// GetSessionResults returns all driver rows for a session type across a span of seasons
func (r *PostgresTelemetryRepository) GetSessionResults(ctx context.Context, startYear, endYear int, session string) ([]models.SessionResult, error) {
	query := `
		SELECT year, grand_prix, session, payload
		FROM telemetry_data
		WHERE data_type = $1 AND session = $2 AND year >= $3 AND year <= $4
		ORDER BY year ASC, round ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, sessionResultsDataType, session, startYear, endYear)
	if err != nil {
		return nil, fmt.Errorf("failed to query session results: %w", err)
	}
	defer rows.Close()

	var results []models.SessionResult
	for rows.Next() {
		var (
			year      int
			grandPrix string
			sess      string
			payload   []byte
		)
		if err := rows.Scan(&year, &grandPrix, &sess, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan telemetry row: %w", err)
		}

		flattened, err := flattenPayload(year, grandPrix, sess, payload)
		if err != nil {
			return nil, err
		}
		results = append(results, flattened...)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session results: %w", err)
	}

	return results, nil
}

// GetEventSessionResults returns driver rows for one event and session
func (r *PostgresTelemetryRepository) GetEventSessionResults(ctx context.Context, year int, grandPrix, session string) ([]models.SessionResult, error) {
	query := `
		SELECT payload
		FROM telemetry_data
		WHERE data_type = $1 AND year = $2 AND grand_prix = $3 AND session = $4
		LIMIT 1
	`

	var payload []byte
	err := r.db.GetPool().QueryRow(ctx, query, sessionResultsDataType, year, grandPrix, session).Scan(&payload)
	if err != nil {
		if isNoRows(err) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query event session results: %w", err)
	}

	return flattenPayload(year, grandPrix, session, payload)
}

// ListEvents returns the grand prix names of a season in round order
func (r *PostgresTelemetryRepository) ListEvents(ctx context.Context, year int) ([]string, error) {
	query := `
		SELECT grand_prix
		FROM telemetry_data
		WHERE data_type = $1 AND year = $2 AND session = $3
		GROUP BY grand_prix, round
		ORDER BY round ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, sessionResultsDataType, year, models.SessionRace)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []string
	for rows.Next() {
		var grandPrix string
		if err := rows.Scan(&grandPrix); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, grandPrix)
	}

	return events, rows.Err()
}

// UpsertSessionResults stores the full result payload for one session
func (r *PostgresTelemetryRepository) UpsertSessionResults(ctx context.Context, year, round int, grandPrix, session string, results []models.SessionResult) error {
	payload := sessionPayload{Results: make([]driverResult, 0, len(results))}
	for _, res := range results {
		payload.Results = append(payload.Results, driverResult{
			Abbreviation: res.DriverAbbr,
			FullName:     res.DriverName,
			TeamName:     res.Team,
			Position:     res.Position,
			TimeSeconds:  res.RaceTimeSeconds,
			Status:       res.Status,
			Points:       res.Points,
			Q1Seconds:    res.Q1Seconds,
			Q2Seconds:    res.Q2Seconds,
			Q3Seconds:    res.Q3Seconds,
		})
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal session payload: %w", err)
	}

	query := `
		INSERT INTO telemetry_data (year, round, grand_prix, session, data_type, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (year, grand_prix, session, data_type)
		DO UPDATE SET round = EXCLUDED.round, payload = EXCLUDED.payload, updated_at = NOW()
	`

	_, err = r.db.GetPool().Exec(ctx, query, year, round, grandPrix, session, sessionResultsDataType, data)
	if err != nil {
		return fmt.Errorf("failed to upsert session results: %w", err)
	}

	return nil
}

// flattenPayload expands a stored session payload into per-driver rows
func flattenPayload(year int, grandPrix, session string, payload []byte) ([]models.SessionResult, error) {
	var doc sessionPayload
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse session payload for %d %s %s: %w", year, grandPrix, session, err)
	}

	results := make([]models.SessionResult, 0, len(doc.Results))
	for _, entry := range doc.Results {
		results = append(results, models.SessionResult{
			Year:            year,
			GrandPrix:       grandPrix,
			Session:         session,
			DriverAbbr:      entry.Abbreviation,
			DriverName:      entry.FullName,
			Team:            entry.TeamName,
			Position:        entry.Position,
			RaceTimeSeconds: entry.TimeSeconds,
			Status:          entry.Status,
			Points:          entry.Points,
			Q1Seconds:       entry.Q1Seconds,
			Q2Seconds:       entry.Q2Seconds,
			Q3Seconds:       entry.Q3Seconds,
		})
	}

	return results, nil
}
