package workouts

import (
	"errors"
	"time"
)

var (
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrWorkoutNotFound  = errors.New("workout not found")
)

// Exercise is a trainer-authored catalog entry, referenced by
// workouts through workout_exercises rows.
type Exercise struct {
	ID          int       `json:"id"`
	TrainerID   int       `json:"trainerId"`
	Name        string    `json:"name"`
	MuscleGroup string    `json:"muscleGroup"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Workout is authored by a trainer and optionally assigned to a
// client (ClientID nil = not assigned yet).
type Workout struct {
	ID          int       `json:"id"`
	TrainerID   int       `json:"trainerId"`
	ClientID    *int      `json:"clientId,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// WorkoutExercise is one workout_exercises row: an exercise slotted
// into a workout with its prescription.
type WorkoutExercise struct {
	ID         int     `json:"id"`
	WorkoutID  int     `json:"workoutId"`
	ExerciseID int     `json:"exerciseId"`
	Sets       int     `json:"sets"`
	Reps       int     `json:"reps"`
	Kilos      float64 `json:"kilos"`
	Position   int     `json:"position"`
}

// WorkoutExerciseDetail joins the prescription with its catalog entry.
type WorkoutExerciseDetail struct {
	WorkoutExercise
	ExerciseName string `json:"exerciseName"`
	MuscleGroup  string `json:"muscleGroup"`
}
