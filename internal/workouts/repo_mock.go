package workouts

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	_ exercisesRepo = (*exercisesRepoMock)(nil)
	_ workoutsRepo  = (*workoutsRepoMock)(nil)
)

type exercisesRepoMock struct {
	Exercises map[int]*Exercise
	mutex     sync.Mutex
	nextID    int

	// set of exercise ids referenced by workout_exercises rows, used
	// to surface the FK violation the real schema would raise
	Referenced map[int]bool
}

func newExercisesRepoMock() *exercisesRepoMock {
	return &exercisesRepoMock{
		Exercises:  make(map[int]*Exercise),
		Referenced: make(map[int]bool),
		nextID:     1,
	}
}

func (r *exercisesRepoMock) Add(_ context.Context, exercise Exercise) (*Exercise, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	exercise.ID = r.nextID
	r.nextID++
	r.Exercises[exercise.ID] = &exercise
	return &exercise, nil
}

func (r *exercisesRepoMock) Get(_ context.Context, id int) (*Exercise, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	exercise, ok := r.Exercises[id]
	if !ok {
		return nil, ErrExerciseNotFound
	}
	return exercise, nil
}

func (r *exercisesRepoMock) List(_ context.Context, trainerID int) ([]Exercise, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	exercises := make([]Exercise, 0)
	for _, e := range r.Exercises {
		if e.TrainerID == trainerID {
			exercises = append(exercises, *e)
		}
	}
	return exercises, nil
}

func (r *exercisesRepoMock) Update(_ context.Context, exercise *Exercise) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, ok := r.Exercises[exercise.ID]
	if !ok || existing.TrainerID != exercise.TrainerID {
		return ErrExerciseNotFound
	}
	existing.Name = exercise.Name
	existing.MuscleGroup = exercise.MuscleGroup
	existing.Description = exercise.Description
	return nil
}

func (r *exercisesRepoMock) Delete(_ context.Context, trainerID, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, ok := r.Exercises[id]
	if !ok || existing.TrainerID != trainerID {
		return ErrExerciseNotFound
	}
	if r.Referenced[id] {
		return &pgconn.PgError{Code: "23503"}
	}
	delete(r.Exercises, id)
	return nil
}

type workoutsRepoMock struct {
	Workouts  map[int]*Workout
	Exercises map[int]*WorkoutExerciseDetail
	mutex     sync.Mutex

	nextWorkoutID  int
	nextExerciseID int
}

func newWorkoutsRepoMock() *workoutsRepoMock {
	return &workoutsRepoMock{
		Workouts:       make(map[int]*Workout),
		Exercises:      make(map[int]*WorkoutExerciseDetail),
		nextWorkoutID:  1,
		nextExerciseID: 1,
	}
}

func (r *workoutsRepoMock) Add(_ context.Context, workout Workout) (*Workout, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	workout.ID = r.nextWorkoutID
	r.nextWorkoutID++
	r.Workouts[workout.ID] = &workout
	return &workout, nil
}

func (r *workoutsRepoMock) Get(_ context.Context, id int) (*Workout, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	workout, ok := r.Workouts[id]
	if !ok {
		return nil, ErrWorkoutNotFound
	}
	return workout, nil
}

func (r *workoutsRepoMock) ListForTrainer(_ context.Context, trainerID int) ([]Workout, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	workouts := make([]Workout, 0)
	for _, w := range r.Workouts {
		if w.TrainerID == trainerID {
			workouts = append(workouts, *w)
		}
	}
	return workouts, nil
}

func (r *workoutsRepoMock) ListForClient(_ context.Context, clientID int) ([]Workout, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	workouts := make([]Workout, 0)
	for _, w := range r.Workouts {
		if w.ClientID != nil && *w.ClientID == clientID {
			workouts = append(workouts, *w)
		}
	}
	return workouts, nil
}

func (r *workoutsRepoMock) Delete(_ context.Context, trainerID, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, ok := r.Workouts[id]
	if !ok || existing.TrainerID != trainerID {
		return ErrWorkoutNotFound
	}
	delete(r.Workouts, id)
	for weID, we := range r.Exercises {
		if we.WorkoutID == id {
			delete(r.Exercises, weID)
		}
	}
	return nil
}

func (r *workoutsRepoMock) Assign(_ context.Context, trainerID, workoutID int, clientID *int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, ok := r.Workouts[workoutID]
	if !ok || existing.TrainerID != trainerID {
		return ErrWorkoutNotFound
	}
	existing.ClientID = clientID
	return nil
}

func (r *workoutsRepoMock) AddExercise(_ context.Context, we WorkoutExercise) (*WorkoutExercise, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	we.ID = r.nextExerciseID
	r.nextExerciseID++
	r.Exercises[we.ID] = &WorkoutExerciseDetail{WorkoutExercise: we}
	return &we, nil
}

func (r *workoutsRepoMock) RemoveExercise(_ context.Context, workoutID, workoutExerciseID int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	we, ok := r.Exercises[workoutExerciseID]
	if !ok || we.WorkoutID != workoutID {
		return ErrExerciseNotFound
	}
	delete(r.Exercises, workoutExerciseID)
	return nil
}

func (r *workoutsRepoMock) ListExercises(_ context.Context, workoutID int) ([]WorkoutExerciseDetail, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	details := make([]WorkoutExerciseDetail, 0)
	for _, we := range r.Exercises {
		if we.WorkoutID == workoutID {
			details = append(details, *we)
		}
	}
	return details, nil
}
