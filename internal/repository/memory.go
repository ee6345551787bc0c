package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/yourusername/race-forecast/internal/models"
)

// In-memory repository implementations backing tests and local dry runs.
// They honor the same contracts as the Postgres implementations, including
// upsert-key semantics and ErrNotFound.

type telemetryKey struct {
	Year      int
	GrandPrix string
	Session   string
}

// MemoryTelemetryRepository is an in-memory TelemetryRepository
type MemoryTelemetryRepository struct {
	mu       sync.RWMutex
	sessions map[telemetryKey][]models.SessionResult
	rounds   map[telemetryKey]int

	// Err, when set, is returned by every read operation
	Err error
}

// NewMemoryTelemetryRepository creates an empty in-memory telemetry repository
func NewMemoryTelemetryRepository() *MemoryTelemetryRepository {
	return &MemoryTelemetryRepository{
		sessions: make(map[telemetryKey][]models.SessionResult),
		rounds:   make(map[telemetryKey]int),
	}
}

// GetSessionResults returns all driver rows for a session type across a span of seasons
func (r *MemoryTelemetryRepository) GetSessionResults(ctx context.Context, startYear, endYear int, session string) ([]models.SessionResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.Err != nil {
		return nil, r.Err
	}

	type entry struct {
		key     telemetryKey
		round   int
		results []models.SessionResult
	}
	var entries []entry
	for key, results := range r.sessions {
		if key.Session != session || key.Year < startYear || key.Year > endYear {
			continue
		}
		entries = append(entries, entry{key: key, round: r.rounds[key], results: results})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].key.Year != entries[j].key.Year {
			return entries[i].key.Year < entries[j].key.Year
		}
		return entries[i].round < entries[j].round
	})

	var out []models.SessionResult
	for _, e := range entries {
		out = append(out, e.results...)
	}
	return out, nil
}

// GetEventSessionResults returns driver rows for one event and session
func (r *MemoryTelemetryRepository) GetEventSessionResults(ctx context.Context, year int, grandPrix, session string) ([]models.SessionResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.Err != nil {
		return nil, r.Err
	}

	results, ok := r.sessions[telemetryKey{Year: year, GrandPrix: grandPrix, Session: session}]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := make([]models.SessionResult, len(results))
	copy(out, results)
	return out, nil
}

// ListEvents returns the grand prix names of a season in round order
func (r *MemoryTelemetryRepository) ListEvents(ctx context.Context, year int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.Err != nil {
		return nil, r.Err
	}

	type event struct {
		name  string
		round int
	}
	var events []event
	for key := range r.sessions {
		if key.Year != year || key.Session != models.SessionRace {
			continue
		}
		events = append(events, event{name: key.GrandPrix, round: r.rounds[key]})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].round < events[j].round })

	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e.name)
	}
	return names, nil
}

// UpsertSessionResults stores the full result payload for one session
func (r *MemoryTelemetryRepository) UpsertSessionResults(ctx context.Context, year, round int, grandPrix, session string, results []models.SessionResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := telemetryKey{Year: year, GrandPrix: grandPrix, Session: session}
	stored := make([]models.SessionResult, len(results))
	copy(stored, results)
	r.sessions[key] = stored
	r.rounds[key] = round
	return nil
}

// MemoryPredictionRepository is an in-memory PredictionRepository
type MemoryPredictionRepository struct {
	mu   sync.RWMutex
	sets map[string]*models.PredictionSet

	// Err, when set, is returned by every operation
	Err error
}

// NewMemoryPredictionRepository creates an empty in-memory prediction repository
func NewMemoryPredictionRepository() *MemoryPredictionRepository {
	return &MemoryPredictionRepository{sets: make(map[string]*models.PredictionSet)}
}

func predictionKey(year int, grandPrix, session, modelVersion string) string {
	return fmt.Sprintf("%d:%s:%s:%s", year, grandPrix, session, modelVersion)
}

// Upsert inserts or replaces the set keyed on (year, grand_prix, session, model_version)
func (r *MemoryPredictionRepository) Upsert(ctx context.Context, set *models.PredictionSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return r.Err
	}

	if set.ID == uuid.Nil {
		set.ID = uuid.New()
	}
	stored := *set
	r.sets[set.Key()] = &stored
	return nil
}

// Get retrieves one prediction set by its upsert key
func (r *MemoryPredictionRepository) Get(ctx context.Context, year int, grandPrix, session, modelVersion string) (*models.PredictionSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.Err != nil {
		return nil, r.Err
	}

	set, ok := r.sets[predictionKey(year, grandPrix, session, modelVersion)]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := *set
	return &out, nil
}

// GetByYear retrieves all prediction sets for a season and model version
func (r *MemoryPredictionRepository) GetByYear(ctx context.Context, year int, modelVersion string) ([]*models.PredictionSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.Err != nil {
		return nil, r.Err
	}

	var sets []*models.PredictionSet
	for _, set := range r.sets {
		if set.Year == year && set.ModelVersion == modelVersion {
			out := *set
			sets = append(sets, &out)
		}
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].GrandPrix < sets[j].GrandPrix })
	return sets, nil
}

// Delete removes one prediction set by its upsert key
func (r *MemoryPredictionRepository) Delete(ctx context.Context, year int, grandPrix, session, modelVersion string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return r.Err
	}

	key := predictionKey(year, grandPrix, session, modelVersion)
	if _, ok := r.sets[key]; !ok {
		return models.ErrNotFound
	}
	delete(r.sets, key)
	return nil
}

// Count returns the number of stored sets
func (r *MemoryPredictionRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sets)
}

// MemoryModelRepository is an in-memory ModelRepository
type MemoryModelRepository struct {
	mu        sync.RWMutex
	artifacts map[uuid.UUID]*models.ModelArtifact

	// Err, when set, is returned by every operation
	Err error
}

// NewMemoryModelRepository creates an empty in-memory model repository
func NewMemoryModelRepository() *MemoryModelRepository {
	return &MemoryModelRepository{artifacts: make(map[uuid.UUID]*models.ModelArtifact)}
}

// Create inserts a new model artifact
func (r *MemoryModelRepository) Create(ctx context.Context, artifact *models.ModelArtifact) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return r.Err
	}

	if artifact.ID == uuid.Nil {
		artifact.ID = uuid.New()
	}
	if _, ok := r.artifacts[artifact.ID]; ok {
		return models.ErrDuplicateKey
	}
	stored := *artifact
	r.artifacts[artifact.ID] = &stored
	return nil
}

// GetByID retrieves an artifact by ID
func (r *MemoryModelRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ModelArtifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.Err != nil {
		return nil, r.Err
	}

	artifact, ok := r.artifacts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := *artifact
	return &out, nil
}

// GetByVersion retrieves a specific artifact version
func (r *MemoryModelRepository) GetByVersion(ctx context.Context, name, version string) (*models.ModelArtifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.Err != nil {
		return nil, r.Err
	}

	var latest *models.ModelArtifact
	for _, artifact := range r.artifacts {
		if artifact.Name != name || artifact.Version != version {
			continue
		}
		if latest == nil || artifact.TrainedAt.After(latest.TrainedAt) {
			latest = artifact
		}
	}
	if latest == nil {
		return nil, models.ErrNotFound
	}
	out := *latest
	return &out, nil
}

// GetActive retrieves the currently active artifact for a model name
func (r *MemoryModelRepository) GetActive(ctx context.Context, name string) (*models.ModelArtifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.Err != nil {
		return nil, r.Err
	}

	var latest *models.ModelArtifact
	for _, artifact := range r.artifacts {
		if artifact.Name != name || !artifact.Active {
			continue
		}
		if latest == nil || artifact.TrainedAt.After(latest.TrainedAt) {
			latest = artifact
		}
	}
	if latest == nil {
		return nil, models.ErrNotFound
	}
	out := *latest
	return &out, nil
}

// SetActive activates an artifact and deactivates other versions
func (r *MemoryModelRepository) SetActive(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return r.Err
	}

	target, ok := r.artifacts[id]
	if !ok {
		return models.ErrNotFound
	}
	for _, artifact := range r.artifacts {
		if artifact.Name == target.Name {
			artifact.Active = artifact.ID == id
		}
	}
	return nil
}
