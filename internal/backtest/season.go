package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/race-forecast/internal/metrics"
	"github.com/yourusername/race-forecast/internal/models"
)

// SeasonReport aggregates event evaluations across one season. The season
// MAE is the unweighted mean of per-event MAEs, so small and large fields
// count equally.
type SeasonReport struct {
	Year              int               `json:"year"`
	Evaluated         int               `json:"evaluated"`
	Skipped           int               `json:"skipped"`
	SkippedEvents     map[string]string `json:"skipped_events,omitempty"`
	MeanMAE           float64           `json:"mean_mae"`
	MeanPositionError float64           `json:"mean_position_error"`
	WinnerAccuracy    float64           `json:"winner_accuracy"`
	PodiumAccuracy    float64           `json:"podium_accuracy"`
	ToleranceAccuracy float64           `json:"tolerance_accuracy"`
	Events            []*EventReport    `json:"events"`
}

// RunSeason evaluates every event of a season with race data available.
// Events are evaluated concurrently; results come back in round order.
func (e *Evaluator) RunSeason(ctx context.Context, year int) (*SeasonReport, error) {
	start := time.Now()

	events, err := e.loader.ListEvents(ctx, year)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("no events for season %d: %w", year, models.ErrDataUnavailable)
	}

	workers := e.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(events) {
		workers = len(events)
	}

	type job struct {
		order     int
		grandPrix string
	}
	type outcome struct {
		order     int
		grandPrix string
		report    *EventReport
		err       error
	}

	jobs := make(chan job)
	outcomes := make(chan outcome, len(events))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				report, err := e.EvaluateEvent(ctx, year, j.grandPrix)
				outcomes <- outcome{order: j.order, grandPrix: j.grandPrix, report: report, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, grandPrix := range events {
			select {
			case jobs <- job{order: i, grandPrix: grandPrix}:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(outcomes)

	collected := make([]outcome, 0, len(events))
	for o := range outcomes {
		collected = append(collected, o)
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i].order < collected[j].order })

	report := &SeasonReport{Year: year, SkippedEvents: make(map[string]string)}
	var maeSum, posErrSum, podiumSum, toleranceSum float64
	var winners int

	for _, o := range collected {
		if o.err != nil {
			// Events without usable data are skipped, hard failures abort
			if errors.Is(o.err, models.ErrDataUnavailable) || errors.Is(o.err, models.ErrInsufficientData) {
				report.Skipped++
				report.SkippedEvents[o.grandPrix] = o.err.Error()
				continue
			}
			return nil, fmt.Errorf("evaluating %d %s: %w", year, o.grandPrix, o.err)
		}

		report.Events = append(report.Events, o.report)
		maeSum += o.report.MAE
		posErrSum += o.report.MeanPositionError
		podiumSum += o.report.PodiumAccuracy
		toleranceSum += o.report.ToleranceAccuracy
		if o.report.WinnerCorrect {
			winners++
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report.Evaluated = len(report.Events)
	if report.Evaluated == 0 {
		return nil, fmt.Errorf("season %d has no evaluable events: %w", year, models.ErrInsufficientData)
	}

	// The mean stays exact; rounding is presentation-only in the reporter
	n := float64(report.Evaluated)
	report.MeanMAE = maeSum / n
	report.MeanPositionError = posErrSum / n
	report.WinnerAccuracy = round4(float64(winners) / n)
	report.PodiumAccuracy = round4(podiumSum / n)
	report.ToleranceAccuracy = round4(toleranceSum / n)

	metrics.RecordSeasonBacktest(time.Since(start).Seconds(), report.MeanMAE, report.PodiumAccuracy)
	if e.log != nil {
		e.log.LogSeasonBacktest(year, report.Evaluated, report.Skipped, report.MeanMAE, report.PodiumAccuracy)
	}

	return report, nil
}

func round4(v float64) float64 {
	r, _ := decimal.NewFromFloat(v).Round(4).Float64()
	return r
}
