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

type ExercisesRepo struct {
	db *pgxpool.Pool
}

func NewExercisesRepo(db *pgxpool.Pool) *ExercisesRepo {
	return &ExercisesRepo{
		db: db,
	}
}

func (r *ExercisesRepo) Add(ctx context.Context, exercise Exercise) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise.muscleGroup", exercise.MuscleGroup))

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO exercises (trainer_id, name, muscle_group, description, created_at)
			VALUES ($1, $2, $3, $4, $5)
		RETURNING id;`,
		exercise.TrainerID, exercise.Name, exercise.MuscleGroup, exercise.Description, exercise.CreatedAt,
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

	if err := rows.Scan(&exercise.ID); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	return &exercise, nil
}

func (r *ExercisesRepo) Get(ctx context.Context, id int) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, trainer_id, name, muscle_group, description, created_at
			FROM exercises WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	exercises, err := r.rows2exercises(rows)
	if err != nil {
		return nil, err
	}

	if len(exercises) != 1 {
		return nil, ErrExerciseNotFound
	}

	return &exercises[0], nil
}

// List returns the trainer's exercise catalog, newest first.
func (r *ExercisesRepo) List(ctx context.Context, trainerID int) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("trainer.id", trainerID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, trainer_id, name, muscle_group, description, created_at
			FROM exercises
			WHERE trainer_id = $1
			ORDER BY created_at DESC;`,
		trainerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return r.rows2exercises(rows)
}

func (r *ExercisesRepo) Update(ctx context.Context, exercise *Exercise) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(
		ctx,
		`UPDATE exercises
			SET name = $1, muscle_group = $2, description = $3
			WHERE id = $4 AND trainer_id = $5;`,
		exercise.Name, exercise.MuscleGroup, exercise.Description, exercise.ID, exercise.TrainerID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExerciseNotFound
	}
	return nil
}

// Delete fails with a FK violation when the exercise is still
// referenced by a workout; the handler maps that to a conflict.
func (r *ExercisesRepo) Delete(ctx context.Context, trainerID, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM exercises WHERE id = $1 AND trainer_id = $2;`,
		id, trainerID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExerciseNotFound
	}
	return nil
}

func (r *ExercisesRepo) rows2exercises(rows pgx.Rows) ([]Exercise, error) {
	var exercises []Exercise
	for rows.Next() {
		var e Exercise
		if err := rows.Scan(&e.ID, &e.TrainerID, &e.Name, &e.MuscleGroup, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		exercises = append(exercises, e)
	}

	if exercises == nil {
		exercises = make([]Exercise, 0)
	}

	return exercises, nil
}
