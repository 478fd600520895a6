package progress

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/fitsphere/backend/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

const (
	DimensionBodyWeight = "body_weight"
	DimensionChestSize  = "chest_size"
	DimensionWaistSize  = "waist_size"
	DimensionBicepsSize = "biceps_size"
	DimensionThighSize  = "thigh_size"
	DimensionAll        = "all"

	Range1M = "1m"
	Range3M = "3m"
	Range6M = "6m"
	Range1Y = "1y"

	displayDateFormat = "02 Jan 2006"
)

// Dimensions lists the single-metric chart dimensions.
var Dimensions = []string{
	DimensionBodyWeight,
	DimensionChestSize,
	DimensionWaistSize,
	DimensionBicepsSize,
	DimensionThighSize,
}

// EstimateBodyFat derives a body-fat percentage from the waist to
// chest circumference ratio. Explicitly non-medical: the result is
// clamped to [5, 35] and rounded to 1 decimal; missing or zero
// inputs yield 0 instead of an error.
func EstimateBodyFat(m Measurement) float64 {
	if m.WaistSize == nil || m.ChestSize == nil {
		return 0
	}
	waist, chest := *m.WaistSize, *m.ChestSize
	if waist == 0 || chest == 0 {
		return 0
	}

	ratio := waist / chest
	bodyFat := ratio*100 - 30
	if bodyFat < 5 {
		bodyFat = 5
	}
	if bodyFat > 35 {
		bodyFat = 35
	}

	return math.Round(bodyFat*10) / 10
}

// EstimateMuscleGain compares the weight change against the body-fat
// change between two snapshots. The thresholds are a heuristic with
// no claimed accuracy, kept for compatibility with the dashboards:
// weight up with flat/dropping fat counts the full weight delta,
// weight down with a big fat drop counts a fraction of the fat delta.
func EstimateMuscleGain(latest, oldest *Measurement) Stat {
	stat := Stat{Unit: "kg"}
	if latest == nil || oldest == nil {
		return stat
	}

	weightChange := metricValue(latest.BodyWeight) - metricValue(oldest.BodyWeight)
	bodyFatChange := EstimateBodyFat(*latest) - EstimateBodyFat(*oldest)

	var gain float64
	switch {
	case weightChange > 0 && bodyFatChange <= 0:
		gain = weightChange
	case weightChange < 0 && bodyFatChange < -2:
		gain = math.Abs(bodyFatChange) * 0.3
	}

	gain = math.Round(gain*10) / 10
	stat.Value = gain
	stat.Change = gain
	return stat
}

// FilterRange keeps measurements dated on or after now minus the
// symbolic window (1m|3m|6m|1y). The cutoff itself is included.
func FilterRange(measurements []Measurement, window string, now time.Time) ([]Measurement, error) {
	var cutoff time.Time
	switch window {
	case Range1M:
		cutoff = now.AddDate(0, -1, 0)
	case Range3M:
		cutoff = now.AddDate(0, -3, 0)
	case Range6M:
		cutoff = now.AddDate(0, -6, 0)
	case Range1Y:
		cutoff = now.AddDate(-1, 0, 0)
	default:
		return nil, fmt.Errorf("unknown time range: %s", window)
	}

	filtered := make([]Measurement, 0, len(measurements))
	for _, m := range measurements {
		if !m.CreatedAt.Before(cutoff) {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

// SeriesPoint is one chart-ready sample of a single dimension.
type SeriesPoint struct {
	Date         string    `json:"date"`
	OriginalDate time.Time `json:"originalDate"`
	Value        float64   `json:"value"`
}

// MultiSeriesPoint projects all dimensions of one measurement in
// parallel, nulls preserved so the chart layer can decide not to
// connect across gaps.
type MultiSeriesPoint struct {
	Date         string              `json:"date"`
	OriginalDate time.Time           `json:"originalDate"`
	Values       map[string]*float64 `json:"values"`
}

// ExtractSeries projects the measurements onto one dimension,
// dropping records where that dimension was not recorded.
func ExtractSeries(measurements []Measurement, dimension string) ([]SeriesPoint, error) {
	valid := false
	for _, d := range Dimensions {
		if d == dimension {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("unknown dimension: %s", dimension)
	}

	points := make([]SeriesPoint, 0, len(measurements))
	for _, m := range measurements {
		value := m.Metric(dimension)
		if value == nil {
			continue
		}
		points = append(points, SeriesPoint{
			Date:         m.CreatedAt.Format(displayDateFormat),
			OriginalDate: m.CreatedAt,
			Value:        *value,
		})
	}
	return points, nil
}

// ExtractAllSeries projects every dimension in parallel, keeping nulls.
func ExtractAllSeries(measurements []Measurement) []MultiSeriesPoint {
	points := make([]MultiSeriesPoint, 0, len(measurements))
	for _, m := range measurements {
		values := make(map[string]*float64, len(Dimensions))
		for _, d := range Dimensions {
			values[d] = m.Metric(d)
		}
		points = append(points, MultiSeriesPoint{
			Date:         m.CreatedAt.Format(displayDateFormat),
			OriginalDate: m.CreatedAt,
			Values:       values,
		})
	}
	return points
}

// ProgressDelta derives the progress stat of an oldest-first series:
// fewer than two points means no progress, otherwise the change is
// last minus first and the value its magnitude.
func ProgressDelta(points []SeriesPoint, unit string) Stat {
	stat := Stat{Unit: unit}
	if len(points) < 2 {
		return stat
	}
	stat.Change = points[len(points)-1].Value - points[0].Value
	stat.Value = math.Abs(stat.Change)
	return stat
}

// Stats is the full per-metric rollup of one client's window.
type Stats struct {
	BodyWeight Stat `json:"bodyWeight"`
	ChestSize  Stat `json:"chestSize"`
	WaistSize  Stat `json:"waistSize"`
	BicepsSize Stat `json:"bicepsSize"`
	ThighSize  Stat `json:"thighSize"`
	BodyFat    Stat `json:"bodyFat"`
	MuscleGain Stat `json:"muscleGain"`

	Measurements int `json:"measurements"`
}

type Analyzer struct {
	repo progressRepo
}

func NewAnalyzer(repo progressRepo) *Analyzer {
	return &Analyzer{
		repo: repo,
	}
}

// ClientStats recomputes all derived statistics of the client's
// measurement window. Nothing here is cached or persisted: the data
// volumes (tens of measurements per client) make recompute-on-read
// the simpler tradeoff.
func (a *Analyzer) ClientStats(
	ctx context.Context,
	clientID int,
	window string,
	now time.Time,
) (_ *Stats, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.progress.clientStats")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("client.id", clientID))
	span.SetAttributes(attribute.String("range", window))

	measurements, err := a.repo.ListAll(ctx, clientID)
	if err != nil {
		return nil, err
	}

	filtered, err := FilterRange(measurements, window, now)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		BodyWeight:   Stat{Unit: "kg"},
		ChestSize:    Stat{Unit: "cm"},
		WaistSize:    Stat{Unit: "cm"},
		BicepsSize:   Stat{Unit: "cm"},
		ThighSize:    Stat{Unit: "cm"},
		BodyFat:      Stat{Unit: "%"},
		MuscleGain:   Stat{Unit: "kg"},
		Measurements: len(filtered),
	}
	if len(filtered) == 0 {
		return stats, nil
	}

	stats.BodyWeight = a.metricStat(filtered, DimensionBodyWeight, "kg")
	stats.ChestSize = a.metricStat(filtered, DimensionChestSize, "cm")
	stats.WaistSize = a.metricStat(filtered, DimensionWaistSize, "cm")
	stats.BicepsSize = a.metricStat(filtered, DimensionBicepsSize, "cm")
	stats.ThighSize = a.metricStat(filtered, DimensionThighSize, "cm")

	oldest, latest := &filtered[0], &filtered[len(filtered)-1]
	bodyFatLatest := EstimateBodyFat(*latest)
	stats.BodyFat = Stat{
		Value:  bodyFatLatest,
		Change: bodyFatLatest - EstimateBodyFat(*oldest),
		Unit:   "%",
	}
	stats.MuscleGain = EstimateMuscleGain(latest, oldest)

	return stats, nil
}

// metricStat: current value of the dimension and its delta across
// the window, skipping records where the dimension is missing.
func (a *Analyzer) metricStat(measurements []Measurement, dimension, unit string) Stat {
	points, err := ExtractSeries(measurements, dimension)
	if err != nil || len(points) == 0 {
		return Stat{Unit: unit}
	}

	stat := ProgressDelta(points, unit)
	stat.Value = points[len(points)-1].Value
	return stat
}

// ClientSeries returns the chart-ready series of one dimension over
// the client's window.
func (a *Analyzer) ClientSeries(
	ctx context.Context,
	clientID int,
	dimension, window string,
	now time.Time,
) (_ []SeriesPoint, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.progress.clientSeries")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("dimension", dimension))

	measurements, err := a.repo.ListAll(ctx, clientID)
	if err != nil {
		return nil, err
	}

	filtered, err := FilterRange(measurements, window, now)
	if err != nil {
		return nil, err
	}

	return ExtractSeries(filtered, dimension)
}

// ClientAllSeries is ClientSeries for every dimension in parallel.
func (a *Analyzer) ClientAllSeries(
	ctx context.Context,
	clientID int,
	window string,
	now time.Time,
) (_ []MultiSeriesPoint, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.progress.clientAllSeries")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	measurements, err := a.repo.ListAll(ctx, clientID)
	if err != nil {
		return nil, err
	}

	filtered, err := FilterRange(measurements, window, now)
	if err != nil {
		return nil, err
	}

	return ExtractAllSeries(filtered), nil
}

func metricValue(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
