package workouts

import (
	"context"

	"github.com/fitsphere/backend/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// VolumeReport is the training-volume rollup of one workout:
// sets × reps × kilos summed over all prescriptions. Recomputed on
// every read, never persisted.
type VolumeReport struct {
	WorkoutID      int                `json:"workoutId"`
	TotalVolume    float64            `json:"totalVolume"`
	PerMuscleGroup map[string]float64 `json:"perMuscleGroup"`
	ExercisesCount int                `json:"exercisesCount"`
}

type Analyzer struct {
	repo workoutsRepo
}

func NewAnalyzer(repo workoutsRepo) *Analyzer {
	return &Analyzer{
		repo: repo,
	}
}

func (a *Analyzer) WorkoutVolume(ctx context.Context, workoutID int) (_ *VolumeReport, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.workouts.volume")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", workoutID))

	prescriptions, err := a.repo.ListExercises(ctx, workoutID)
	if err != nil {
		return nil, err
	}

	report := &VolumeReport{
		WorkoutID:      workoutID,
		PerMuscleGroup: make(map[string]float64),
		ExercisesCount: len(prescriptions),
	}

	for _, p := range prescriptions {
		volume := float64(p.Sets) * float64(p.Reps) * p.Kilos
		report.TotalVolume += volume
		report.PerMuscleGroup[p.MuscleGroup] += volume
	}

	return report, nil
}
