package eventlog

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sanas2211/Realtime-human-intension/internal/models"
)

// Summarize computes per-label statistics over the trend's series
func Summarize(trend *Trend) map[models.Label]models.SeriesSummary {
	summaries := make(map[models.Label]models.SeriesSummary, len(trend.Series))
	for label, values := range trend.Series {
		if len(values) == 0 {
			summaries[label] = models.SeriesSummary{}
			continue
		}

		summary := models.SeriesSummary{
			Max:  floats.Max(values),
			Last: values[len(values)-1],
		}
		if len(values) == 1 {
			summary.Mean = values[0]
		} else {
			summary.Mean, summary.StdDev = stat.MeanStdDev(values, nil)
		}
		summaries[label] = summary
	}
	return summaries
}

// Snapshot packages a trend for the viewer
func Snapshot(trend *Trend, now time.Time) models.TrendSnapshot {
	return models.TrendSnapshot{
		GeneratedAt:  now,
		Rows:         trend.Rows,
		Skipped:      trend.Skipped,
		Series:       trend.Series,
		Summaries:    Summarize(trend),
		LatestAlerts: trend.LatestAlerts,
	}
}
