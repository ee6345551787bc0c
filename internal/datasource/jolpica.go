package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/yourusername/race-forecast/internal/models"
)

// JolpicaClient implements SessionSource against an Ergast-compatible
// timing API.
type JolpicaClient struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	enabled    bool
	logger     *log.Logger
}

// Wire format of the Ergast-compatible API. Every numeric field arrives as
// a string.
type ergastResponse struct {
	MRData struct {
		RaceTable struct {
			Races []ergastRace `json:"Races"`
		} `json:"RaceTable"`
	} `json:"MRData"`
}

type ergastRace struct {
	Round             string              `json:"round"`
	RaceName          string              `json:"raceName"`
	Date              string              `json:"date"`
	Results           []ergastRaceResult  `json:"Results"`
	QualifyingResults []ergastQualiResult `json:"QualifyingResults"`
}

type ergastDriver struct {
	Code       string `json:"code"`
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
}

type ergastConstructor struct {
	Name string `json:"name"`
}

type ergastRaceResult struct {
	Position    string            `json:"position"`
	Points      string            `json:"points"`
	Status      string            `json:"status"`
	Driver      ergastDriver      `json:"Driver"`
	Constructor ergastConstructor `json:"Constructor"`
	Time        *struct {
		Millis string `json:"millis"`
	} `json:"Time"`
}

type ergastQualiResult struct {
	Position    string            `json:"position"`
	Driver      ergastDriver      `json:"Driver"`
	Constructor ergastConstructor `json:"Constructor"`
	Q1          string            `json:"Q1"`
	Q2          string            `json:"Q2"`
	Q3          string            `json:"Q3"`
}

// NewJolpicaClient creates a client for an Ergast-compatible results API
func NewJolpicaClient(httpClient *RateLimitedHTTPClient, baseURL string, enabled bool, logger *log.Logger) *JolpicaClient {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &JolpicaClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		enabled:    enabled,
		logger:     logger,
	}
}

// Name returns the data source name
func (c *JolpicaClient) Name() string {
	return "jolpica"
}

// IsEnabled returns whether this data source is enabled
func (c *JolpicaClient) IsEnabled() bool {
	return c.enabled
}

// FetchRaceResults retrieves the race classification for one round
func (c *JolpicaClient) FetchRaceResults(ctx context.Context, year, round int) (*EventSession, error) {
	race, err := c.fetchRound(ctx, fmt.Sprintf("%s/%d/%d/results.json", c.baseURL, year, round))
	if err != nil {
		return nil, err
	}

	session := &EventSession{
		Year:      year,
		Round:     round,
		GrandPrix: race.RaceName,
		Session:   models.SessionRace,
		Results:   make([]models.SessionResult, 0, len(race.Results)),
	}
	for i := range race.Results {
		session.Results = append(session.Results, c.convertRaceResult(year, race, &race.Results[i]))
	}
	return session, nil
}

// FetchQualifyingResults retrieves the qualifying classification for one round
func (c *JolpicaClient) FetchQualifyingResults(ctx context.Context, year, round int) (*EventSession, error) {
	race, err := c.fetchRound(ctx, fmt.Sprintf("%s/%d/%d/qualifying.json", c.baseURL, year, round))
	if err != nil {
		return nil, err
	}

	session := &EventSession{
		Year:      year,
		Round:     round,
		GrandPrix: race.RaceName,
		Session:   models.SessionQualifying,
		Results:   make([]models.SessionResult, 0, len(race.QualifyingResults)),
	}
	for i := range race.QualifyingResults {
		session.Results = append(session.Results, c.convertQualiResult(year, race, &race.QualifyingResults[i]))
	}
	return session, nil
}

// FetchSeasonSchedule retrieves the round list of a season
func (c *JolpicaClient) FetchSeasonSchedule(ctx context.Context, year int) ([]ScheduleEntry, error) {
	races, err := c.fetch(ctx, fmt.Sprintf("%s/%d.json", c.baseURL, year))
	if err != nil {
		return nil, err
	}

	schedule := make([]ScheduleEntry, 0, len(races))
	for _, race := range races {
		round, err := strconv.Atoi(race.Round)
		if err != nil {
			c.logger.Printf("Skipping round with unparseable number %q", race.Round)
			continue
		}
		schedule = append(schedule, ScheduleEntry{
			Round:     round,
			GrandPrix: race.RaceName,
			Date:      race.Date,
		})
	}
	return schedule, nil
}

// fetchRound fetches one round and expects exactly one race in the response
func (c *JolpicaClient) fetchRound(ctx context.Context, url string) (*ergastRace, error) {
	races, err := c.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if len(races) == 0 {
		return nil, NewDataSourceError(c.Name(), ErrCodeNotFound, "no data for round", ErrNotFound)
	}
	return &races[0], nil
}

func (c *JolpicaClient) fetch(ctx context.Context, url string) ([]ergastRace, error) {
	if !c.enabled {
		return nil, NewDataSourceError(c.Name(), ErrCodeNetworkError, "source disabled", ErrSourceDisabled)
	}

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, NewDataSourceError(c.Name(), ErrCodeNetworkError, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, NewDataSourceError(c.Name(), ErrCodeNotFound, "not found", ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewDataSourceError(c.Name(), ErrCodeRateLimitExceeded, "rate limit exceeded", ErrRateLimitExceeded)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, NewDataSourceError(c.Name(), ErrCodeServerError, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	var parsed ergastResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, NewDataSourceError(c.Name(), ErrCodeInvalidData, "failed to parse response", err)
	}

	return parsed.MRData.RaceTable.Races, nil
}

func (c *JolpicaClient) convertRaceResult(year int, race *ergastRace, r *ergastRaceResult) models.SessionResult {
	result := models.SessionResult{
		Year:       year,
		GrandPrix:  race.RaceName,
		Session:    models.SessionRace,
		DriverAbbr: driverAbbr(r.Driver),
		DriverName: r.Driver.GivenName + " " + r.Driver.FamilyName,
		Team:       r.Constructor.Name,
		Status:     r.Status,
	}
	if pos, err := strconv.Atoi(r.Position); err == nil {
		result.Position = &pos
	}
	if pts, err := strconv.ParseFloat(r.Points, 64); err == nil {
		result.Points = pts
	}
	if r.Time != nil {
		if millis, err := strconv.ParseInt(r.Time.Millis, 10, 64); err == nil {
			seconds := float64(millis) / 1000.0
			result.RaceTimeSeconds = &seconds
		}
	}
	return result
}

func (c *JolpicaClient) convertQualiResult(year int, race *ergastRace, r *ergastQualiResult) models.SessionResult {
	result := models.SessionResult{
		Year:       year,
		GrandPrix:  race.RaceName,
		Session:    models.SessionQualifying,
		DriverAbbr: driverAbbr(r.Driver),
		DriverName: r.Driver.GivenName + " " + r.Driver.FamilyName,
		Team:       r.Constructor.Name,
	}
	if pos, err := strconv.Atoi(r.Position); err == nil {
		result.Position = &pos
	}
	result.Q1Seconds = parseLapTime(r.Q1)
	result.Q2Seconds = parseLapTime(r.Q2)
	result.Q3Seconds = parseLapTime(r.Q3)
	return result
}

// driverAbbr prefers the timing code, falling back to the first three
// letters of the family name
func driverAbbr(d ergastDriver) string {
	if d.Code != "" {
		return d.Code
	}
	name := strings.ToUpper(strings.ReplaceAll(d.FamilyName, " ", ""))
	if len(name) > 3 {
		name = name[:3]
	}
	return name
}

// parseLapTime converts "M:SS.mmm" (or plain "SS.mmm") into seconds.
// Returns nil for empty or unparseable laps.
func parseLapTime(lap string) *float64 {
	if lap == "" {
		return nil
	}

	var minutes float64
	rest := lap
	if idx := strings.Index(lap, ":"); idx >= 0 {
		m, err := strconv.ParseFloat(lap[:idx], 64)
		if err != nil {
			return nil
		}
		minutes = m
		rest = lap[idx+1:]
	}

	seconds, err := strconv.ParseFloat(rest, 64)
	if err != nil {
		return nil
	}

	total := minutes*60 + seconds
	return &total
}
