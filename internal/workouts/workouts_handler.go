package workouts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fitsphere/backend/internal/auth"
	"github.com/fitsphere/backend/internal/telemetry/metrics"
	"github.com/fitsphere/backend/internal/telemetry/tracing"
	"github.com/fitsphere/backend/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type workoutsRepo interface {
	Add(ctx context.Context, workout Workout) (*Workout, error)
	Get(ctx context.Context, id int) (*Workout, error)
	ListForTrainer(ctx context.Context, trainerID int) ([]Workout, error)
	ListForClient(ctx context.Context, clientID int) ([]Workout, error)
	Delete(ctx context.Context, trainerID, id int) error
	Assign(ctx context.Context, trainerID, workoutID int, clientID *int) error
	AddExercise(ctx context.Context, we WorkoutExercise) (*WorkoutExercise, error)
	RemoveExercise(ctx context.Context, workoutID, workoutExerciseID int) error
	ListExercises(ctx context.Context, workoutID int) ([]WorkoutExerciseDetail, error)
}

// clientsDirectory guards assignment: a workout can only go to a
// client currently linked to the trainer. Implemented by the
// accounts repo.
type clientsDirectory interface {
	IsLinked(ctx context.Context, trainerID, clientID int) (bool, error)
}

type workoutRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type workoutExerciseRequest struct {
	ExerciseID int     `json:"exerciseId"`
	Sets       int     `json:"sets"`
	Reps       int     `json:"reps"`
	Kilos      float64 `json:"kilos"`
	Position   int     `json:"position"`
}

type WorkoutsResponse struct {
	Workouts []Workout `json:"workouts"`
	Total    int       `json:"total"`
}

type WorkoutDetailsResponse struct {
	Workout   Workout                 `json:"workout"`
	Exercises []WorkoutExerciseDetail `json:"exercises"`
	Volume    *VolumeReport           `json:"volume"`
}

type WorkoutsHandler struct {
	repo     workoutsRepo
	clients  clientsDirectory
	analyzer *Analyzer
	metrics  *metrics.Manager
}

func NewWorkoutsHandler(
	repo workoutsRepo,
	clients clientsDirectory,
	metrics *metrics.Manager,
) *WorkoutsHandler {
	return &WorkoutsHandler{
		repo:     repo,
		clients:  clients,
		analyzer: NewAnalyzer(repo),
		metrics:  metrics,
	}
}

func (handler *WorkoutsHandler) SetupRoutes(mainRouter *mux.Router) {
	workoutsRouter := mainRouter.PathPrefix("/workouts").Subrouter()
	workoutsRouter.
		HandleFunc("", handler.handleAdd).
		Methods("POST", "OPTIONS").Name("new-workout")
	workoutsRouter.
		HandleFunc("", handler.handleList).
		Methods("GET").Name("workouts")
	workoutsRouter.
		HandleFunc("/{id}", handler.handleDetails).
		Methods("GET").Name("workout-details")
	workoutsRouter.
		HandleFunc("/{id}", handler.handleDelete).
		Methods("DELETE", "OPTIONS").Name("delete-workout")
	workoutsRouter.
		HandleFunc("/{id}/exercises", handler.handleAddExercise).
		Methods("POST", "OPTIONS").Name("new-workout-exercise")
	workoutsRouter.
		HandleFunc("/{id}/exercises/{weId}", handler.handleRemoveExercise).
		Methods("DELETE", "OPTIONS").Name("remove-workout-exercise")
	workoutsRouter.
		HandleFunc("/{id}/assign/{clientId}", handler.handleAssign).
		Methods("POST", "OPTIONS").Name("assign-workout")
	workoutsRouter.
		HandleFunc("/{id}/assign", handler.handleUnassign).
		Methods("DELETE", "OPTIONS").Name("unassign-workout")
}

func (handler *WorkoutsHandler) handleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutsHandler.add")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok || session.Role != auth.RoleTrainer {
		http.Error(w, "no can do", http.StatusForbidden)
		return
	}

	var workoutReq workoutRequest
	if err := json.NewDecoder(r.Body).Decode(&workoutReq); err != nil {
		log.Tracef("new workout, unmarshal json params: %s", err)
		http.Error(w, "add workout failed", http.StatusBadRequest)
		return
	}

	if workoutReq.Name == "" {
		http.Error(w, "error, workout name empty", http.StatusBadRequest)
		return
	}

	addedWorkout, err := handler.repo.Add(ctx, Workout{
		TrainerID:   session.UserID,
		Name:        workoutReq.Name,
		Description: workoutReq.Description,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		log.Errorf("failed to add new workout [%s]: %s", workoutReq.Name, err)
		http.Error(w, "error, failed to add new workout", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterWorkoutsCreated.Inc()

	workoutJson, err := json.Marshal(addedWorkout)
	if err != nil {
		log.Errorf("failed to marshal new workout: %s", err)
		http.Error(w, "error, failed to add new workout", http.StatusInternalServerError)
		return
	}

	log.Debugf("new workout added: %d [%s]", addedWorkout.ID, addedWorkout.Name)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, workoutJson, http.StatusCreated)
}

// handleList serves both roles: trainers get the workouts they
// authored, clients the ones assigned to them.
func (handler *WorkoutsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutsHandler.list")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var workouts []Workout
	var err error
	if session.Role == auth.RoleTrainer {
		workouts, err = handler.repo.ListForTrainer(ctx, session.UserID)
	} else {
		workouts, err = handler.repo.ListForClient(ctx, session.UserID)
	}
	if err != nil {
		log.Errorf("list workouts for user %d: %s", session.UserID, err)
		http.Error(w, "failed to get workouts", http.StatusInternalServerError)
		return
	}

	workoutsJson, err := json.Marshal(WorkoutsResponse{
		Workouts: workouts,
		Total:    len(workouts),
	})
	if err != nil {
		log.Errorf("marshal workouts error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, workoutsJson)
}

func (handler *WorkoutsHandler) handleDetails(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutsHandler.details")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	id, err := idParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	workout, err := handler.getAccessibleWorkout(ctx, session, id)
	if err != nil {
		writeWorkoutAccessError(w, id, err)
		return
	}

	exercises, err := handler.repo.ListExercises(ctx, id)
	if err != nil {
		log.Errorf("list exercises for workout %d: %s", id, err)
		http.Error(w, "failed to get workout", http.StatusInternalServerError)
		return
	}

	volume, err := handler.analyzer.WorkoutVolume(ctx, id)
	if err != nil {
		log.Errorf("workout %d volume: %s", id, err)
		http.Error(w, "failed to get workout", http.StatusInternalServerError)
		return
	}

	detailsJson, err := json.Marshal(WorkoutDetailsResponse{
		Workout:   *workout,
		Exercises: exercises,
		Volume:    volume,
	})
	if err != nil {
		log.Errorf("marshal workout details error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, detailsJson)
}

func (handler *WorkoutsHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutsHandler.delete")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok || session.Role != auth.RoleTrainer {
		http.Error(w, "no can do", http.StatusForbidden)
		return
	}

	id, err := idParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, session.UserID, id); err != nil {
		if errors.Is(err, ErrWorkoutNotFound) {
			http.Error(w, "error, workout not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete workout %d: %s", id, err)
		http.Error(w, "error, workout not deleted, internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("deleted:%d", id))
}

func (handler *WorkoutsHandler) handleAddExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutsHandler.addExercise")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok || session.Role != auth.RoleTrainer {
		http.Error(w, "no can do", http.StatusForbidden)
		return
	}

	workoutID, err := idParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := handler.getOwnedWorkout(ctx, session.UserID, workoutID); err != nil {
		writeWorkoutAccessError(w, workoutID, err)
		return
	}

	var weReq workoutExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&weReq); err != nil {
		log.Tracef("new workout exercise, unmarshal json params: %s", err)
		http.Error(w, "add workout exercise failed", http.StatusBadRequest)
		return
	}

	if weReq.ExerciseID <= 0 || weReq.Sets <= 0 || weReq.Reps <= 0 {
		http.Error(w, "error, exercise id, sets and reps must be positive", http.StatusBadRequest)
		return
	}
	if weReq.Kilos < 0 {
		http.Error(w, "error, kilos negative", http.StatusBadRequest)
		return
	}

	addedWe, err := handler.repo.AddExercise(ctx, WorkoutExercise{
		WorkoutID:  workoutID,
		ExerciseID: weReq.ExerciseID,
		Sets:       weReq.Sets,
		Reps:       weReq.Reps,
		Kilos:      weReq.Kilos,
		Position:   weReq.Position,
	})
	if err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			http.Error(w, "error, exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("add exercise %d to workout %d: %s", weReq.ExerciseID, workoutID, err)
		http.Error(w, "add workout exercise failed", http.StatusInternalServerError)
		return
	}

	weJson, err := json.Marshal(addedWe)
	if err != nil {
		log.Errorf("marshal workout exercise error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, weJson, http.StatusCreated)
}

func (handler *WorkoutsHandler) handleRemoveExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutsHandler.removeExercise")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok || session.Role != auth.RoleTrainer {
		http.Error(w, "no can do", http.StatusForbidden)
		return
	}

	workoutID, err := idParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	weID, err := strconv.Atoi(mux.Vars(r)["weId"])
	if err != nil {
		http.Error(w, "error, workout exercise id NaN", http.StatusBadRequest)
		return
	}

	if _, err := handler.getOwnedWorkout(ctx, session.UserID, workoutID); err != nil {
		writeWorkoutAccessError(w, workoutID, err)
		return
	}

	if err := handler.repo.RemoveExercise(ctx, workoutID, weID); err != nil {
		if errors.Is(err, ErrExerciseNotFound) {
			http.Error(w, "error, workout exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("remove exercise %d from workout %d: %s", weID, workoutID, err)
		http.Error(w, "remove workout exercise failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("removed:%d", weID))
}

func (handler *WorkoutsHandler) handleAssign(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutsHandler.assign")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok || session.Role != auth.RoleTrainer {
		http.Error(w, "no can do", http.StatusForbidden)
		return
	}

	workoutID, err := idParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	clientID, err := strconv.Atoi(mux.Vars(r)["clientId"])
	if err != nil {
		http.Error(w, "error, client id NaN", http.StatusBadRequest)
		return
	}

	linked, err := handler.clients.IsLinked(ctx, session.UserID, clientID)
	if err != nil {
		log.Errorf("assign workout, link check trainer %d client %d: %s", session.UserID, clientID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !linked {
		http.Error(w, "error, client not linked to trainer", http.StatusForbidden)
		return
	}

	if err := handler.repo.Assign(ctx, session.UserID, workoutID, &clientID); err != nil {
		if errors.Is(err, ErrWorkoutNotFound) {
			http.Error(w, "error, workout not found", http.StatusNotFound)
			return
		}
		log.Errorf("assign workout %d to client %d: %s", workoutID, clientID, err)
		http.Error(w, "assign workout failed", http.StatusInternalServerError)
		return
	}

	log.Tracef("workout %d assigned to client %d", workoutID, clientID)
	pkg.WriteTextResponseOK(w, fmt.Sprintf("assigned:%d", clientID))
}

func (handler *WorkoutsHandler) handleUnassign(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutsHandler.unassign")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok || session.Role != auth.RoleTrainer {
		http.Error(w, "no can do", http.StatusForbidden)
		return
	}

	workoutID, err := idParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.Assign(ctx, session.UserID, workoutID, nil); err != nil {
		if errors.Is(err, ErrWorkoutNotFound) {
			http.Error(w, "error, workout not found", http.StatusNotFound)
			return
		}
		log.Errorf("unassign workout %d: %s", workoutID, err)
		http.Error(w, "unassign workout failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("unassigned:%d", workoutID))
}

// getOwnedWorkout fetches the workout only when authored by the trainer.
func (handler *WorkoutsHandler) getOwnedWorkout(ctx context.Context, trainerID, workoutID int) (*Workout, error) {
	workout, err := handler.repo.Get(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	if workout.TrainerID != trainerID {
		return nil, errWorkoutForbidden
	}
	return workout, nil
}

// getAccessibleWorkout allows the authoring trainer and the assigned client.
func (handler *WorkoutsHandler) getAccessibleWorkout(ctx context.Context, session *auth.Session, workoutID int) (*Workout, error) {
	workout, err := handler.repo.Get(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	if session.Role == auth.RoleTrainer && workout.TrainerID == session.UserID {
		return workout, nil
	}
	if session.Role == auth.RoleClient && workout.ClientID != nil && *workout.ClientID == session.UserID {
		return workout, nil
	}
	return nil, errWorkoutForbidden
}

var errWorkoutForbidden = errors.New("workout access forbidden")

func writeWorkoutAccessError(w http.ResponseWriter, workoutID int, err error) {
	switch {
	case errors.Is(err, ErrWorkoutNotFound):
		http.Error(w, "error, workout not found", http.StatusNotFound)
	case errors.Is(err, errWorkoutForbidden):
		http.Error(w, "no can do", http.StatusForbidden)
	default:
		log.Errorf("get workout %d: %s", workoutID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
