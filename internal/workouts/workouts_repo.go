package workouts

import (
	"context"
	"errors"
	"fmt"

	"github.com/fitsphere/backend/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

type WorkoutsRepo struct {
	db *pgxpool.Pool
}

func NewWorkoutsRepo(db *pgxpool.Pool) *WorkoutsRepo {
	return &WorkoutsRepo{
		db: db,
	}
}

func (r *WorkoutsRepo) Add(ctx context.Context, workout Workout) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("trainer.id", workout.TrainerID))

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO workouts (trainer_id, client_id, name, description, created_at)
			VALUES ($1, $2, $3, $4, $5)
		RETURNING id;`,
		workout.TrainerID, workout.ClientID, workout.Name, workout.Description, workout.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	if err := rows.Scan(&workout.ID); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	return &workout, nil
}

func (r *WorkoutsRepo) Get(ctx context.Context, id int) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, trainer_id, client_id, name, description, created_at
			FROM workouts WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	workouts, err := r.rows2workouts(rows)
	if err != nil {
		return nil, err
	}

	if len(workouts) != 1 {
		return nil, ErrWorkoutNotFound
	}

	return &workouts[0], nil
}

// ListForTrainer returns workouts authored by the trainer, newest first.
func (r *WorkoutsRepo) ListForTrainer(ctx context.Context, trainerID int) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.listForTrainer")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return r.list(ctx, `trainer_id = $1`, trainerID)
}

// ListForClient returns workouts assigned to the client, newest first.
func (r *WorkoutsRepo) ListForClient(ctx context.Context, clientID int) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.listForClient")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return r.list(ctx, `client_id = $1`, clientID)
}

func (r *WorkoutsRepo) list(ctx context.Context, where string, arg any) ([]Workout, error) {
	rows, err := r.db.Query(
		ctx,
		fmt.Sprintf(`
			SELECT id, trainer_id, client_id, name, description, created_at
			FROM workouts
			WHERE %s
			ORDER BY created_at DESC;`, where),
		arg,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return r.rows2workouts(rows)
}

func (r *WorkoutsRepo) Delete(ctx context.Context, trainerID, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(
		ctx,
		`DELETE FROM workout_exercises WHERE workout_id = $1;`,
		id,
	); err != nil {
		return fmt.Errorf("delete workout exercises: %w", err)
	}

	tag, err := tx.Exec(
		ctx,
		`DELETE FROM workouts WHERE id = $1 AND trainer_id = $2;`,
		id, trainerID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		err = ErrWorkoutNotFound
		return err
	}

	return tx.Commit(ctx)
}

// Assign sets the workout's client; clientID nil unassigns it.
func (r *WorkoutsRepo) Assign(ctx context.Context, trainerID, workoutID int, clientID *int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.assign")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", workoutID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workouts SET client_id = $1 WHERE id = $2 AND trainer_id = $3;`,
		clientID, workoutID, trainerID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

func (r *WorkoutsRepo) AddExercise(ctx context.Context, we WorkoutExercise) (_ *WorkoutExercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.addExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", we.WorkoutID))
	span.SetAttributes(attribute.Int("exercise.id", we.ExerciseID))

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO workout_exercises (workout_id, exercise_id, sets, reps, kilos, position)
			VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id;`,
		we.WorkoutID, we.ExerciseID, we.Sets, we.Reps, we.Kilos, we.Position,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	if err := rows.Scan(&we.ID); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	return &we, nil
}

func (r *WorkoutsRepo) RemoveExercise(ctx context.Context, workoutID, workoutExerciseID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.removeExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM workout_exercises WHERE id = $1 AND workout_id = $2;`,
		workoutExerciseID, workoutID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExerciseNotFound
	}
	return nil
}

// ListExercises returns the workout's prescriptions joined with
// their catalog entries, ordered by position.
func (r *WorkoutsRepo) ListExercises(ctx context.Context, workoutID int) (_ []WorkoutExerciseDetail, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.listExercises")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", workoutID))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT we.id, we.workout_id, we.exercise_id, we.sets, we.reps, we.kilos, we.position,
				e.name, e.muscle_group
			FROM workout_exercises we
			JOIN exercises e ON e.id = we.exercise_id
			WHERE we.workout_id = $1
			ORDER BY we.position ASC;`,
		workoutID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	var details []WorkoutExerciseDetail
	for rows.Next() {
		var d WorkoutExerciseDetail
		if err := rows.Scan(
			&d.ID, &d.WorkoutID, &d.ExerciseID, &d.Sets, &d.Reps, &d.Kilos, &d.Position,
			&d.ExerciseName, &d.MuscleGroup,
		); err != nil {
			return nil, err
		}
		details = append(details, d)
	}

	if details == nil {
		details = make([]WorkoutExerciseDetail, 0)
	}

	return details, nil
}

func (r *WorkoutsRepo) rows2workouts(rows pgx.Rows) ([]Workout, error) {
	var workouts []Workout
	for rows.Next() {
		var w Workout
		if err := rows.Scan(&w.ID, &w.TrainerID, &w.ClientID, &w.Name, &w.Description, &w.CreatedAt); err != nil {
			return nil, err
		}
		workouts = append(workouts, w)
	}

	if workouts == nil {
		workouts = make([]Workout, 0)
	}

	return workouts, nil
}
