package backtest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// GenerateConsoleReport formats a season report for terminal output
func GenerateConsoleReport(report *SeasonReport) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Season Backtest %d\n", report.Year))
	builder.WriteString("==================\n")
	builder.WriteString(fmt.Sprintf("Events Evaluated: %d (skipped %d)\n", report.Evaluated, report.Skipped))
	builder.WriteString(fmt.Sprintf("Mean MAE: %.2fs\n", report.MeanMAE))
	builder.WriteString(fmt.Sprintf("Winner Accuracy: %.1f%%\n", report.WinnerAccuracy*100))
	builder.WriteString(fmt.Sprintf("Podium Accuracy: %.1f%%\n", report.PodiumAccuracy*100))
	builder.WriteString(fmt.Sprintf("Position Accuracy (within tolerance): %.1f%%\n", report.ToleranceAccuracy*100))
	builder.WriteString("\n")

	for _, event := range report.Events {
		winner := " "
		if event.WinnerCorrect {
			winner = "*"
		}
		builder.WriteString(fmt.Sprintf("%s %-30s mae=%6.2fs podium=%d/3 drivers=%d\n",
			winner, event.GrandPrix, event.MAE, event.PodiumHits, event.Drivers))
	}

	if len(report.SkippedEvents) > 0 {
		builder.WriteString("\nSkipped:\n")
		for _, event := range sortedKeys(report.SkippedEvents) {
			builder.WriteString(fmt.Sprintf("  %s: %s\n", event, report.SkippedEvents[event]))
		}
	}

	return builder.String()
}

// GenerateCSVExport exports per-event metrics for spreadsheets
func GenerateCSVExport(report *SeasonReport, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}

	var builder strings.Builder
	builder.WriteString("grand_prix,drivers,mae,winner_correct,podium_hits,podium_accuracy,tolerance_accuracy\n")
	for _, event := range report.Events {
		builder.WriteString(fmt.Sprintf("%s,%d,%.2f,%t,%d,%.4f,%.4f\n",
			event.GrandPrix, event.Drivers, event.MAE, event.WinnerCorrect,
			event.PodiumHits, event.PodiumAccuracy, event.ToleranceAccuracy))
	}
	builder.WriteString(fmt.Sprintf("season_mean,%d,%.2f,,,%.4f,%.4f\n",
		report.Evaluated, report.MeanMAE, report.PodiumAccuracy, report.ToleranceAccuracy))

	return os.WriteFile(outputPath, []byte(builder.String()), 0o644)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
