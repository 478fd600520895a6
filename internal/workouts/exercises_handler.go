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
	"github.com/fitsphere/backend/internal/telemetry/tracing"
	"github.com/fitsphere/backend/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type exercisesRepo interface {
	Add(ctx context.Context, exercise Exercise) (*Exercise, error)
	Get(ctx context.Context, id int) (*Exercise, error)
	List(ctx context.Context, trainerID int) ([]Exercise, error)
	Update(ctx context.Context, exercise *Exercise) error
	Delete(ctx context.Context, trainerID, id int) error
}

type exerciseRequest struct {
	Name        string `json:"name"`
	MuscleGroup string `json:"muscleGroup"`
	Description string `json:"description"`
}

type ExercisesResponse struct {
	Exercises []Exercise `json:"exercises"`
	Total     int        `json:"total"`
}

type ExercisesHandler struct {
	repo exercisesRepo
}

func NewExercisesHandler(repo exercisesRepo) *ExercisesHandler {
	return &ExercisesHandler{
		repo: repo,
	}
}

func (handler *ExercisesHandler) SetupRoutes(mainRouter *mux.Router) {
	exRouter := mainRouter.PathPrefix("/exercises").Subrouter()
	exRouter.
		HandleFunc("", handler.handleAdd).
		Methods("POST", "OPTIONS").Name("new-exercise")
	exRouter.
		HandleFunc("", handler.handleList).
		Methods("GET").Name("exercises")
	exRouter.
		HandleFunc("/{id}", handler.handleUpdate).
		Methods("PUT", "OPTIONS").Name("update-exercise")
	exRouter.
		HandleFunc("/{id}", handler.handleDelete).
		Methods("DELETE", "OPTIONS").Name("delete-exercise")
}

func (handler *ExercisesHandler) handleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "exercisesHandler.add")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok || session.Role != auth.RoleTrainer {
		http.Error(w, "no can do", http.StatusForbidden)
		return
	}

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var exReq exerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&exReq); err != nil {
		log.Tracef("new exercise, unmarshal json params: %s", err)
		http.Error(w, "add exercise failed", http.StatusBadRequest)
		return
	}

	if exReq.Name == "" || exReq.MuscleGroup == "" {
		http.Error(w, "error, exercise name or muscle group empty", http.StatusBadRequest)
		return
	}

	addedExercise, err := handler.repo.Add(ctx, Exercise{
		TrainerID:   session.UserID,
		Name:        exReq.Name,
		MuscleGroup: exReq.MuscleGroup,
		Description: exReq.Description,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		log.Errorf("failed to add new exercise [%s] [%s]: %s", exReq.MuscleGroup, exReq.Name, err)
		http.Error(w, "error, failed to add new exercise", http.StatusInternalServerError)
		return
	}

	addedExJson, err := json.Marshal(addedExercise)
	if err != nil {
		log.Errorf("failed to marshal new exercise: %s", err)
		http.Error(w, "error, failed to add new exercise", http.StatusInternalServerError)
		return
	}

	log.Debugf("new exercise added: %d [%s]", addedExercise.ID, addedExercise.Name)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedExJson, http.StatusCreated)
}

func (handler *ExercisesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "exercisesHandler.list")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok || session.Role != auth.RoleTrainer {
		http.Error(w, "no can do", http.StatusForbidden)
		return
	}

	exercises, err := handler.repo.List(ctx, session.UserID)
	if err != nil {
		log.Errorf("list exercises for trainer %d: %s", session.UserID, err)
		http.Error(w, "failed to get exercises", http.StatusInternalServerError)
		return
	}

	exercisesJson, err := json.Marshal(ExercisesResponse{
		Exercises: exercises,
		Total:     len(exercises),
	})
	if err != nil {
		log.Errorf("marshal exercises error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, exercisesJson)
}

func (handler *ExercisesHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "exercisesHandler.update")
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

	var exReq exerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&exReq); err != nil {
		log.Tracef("update exercise, unmarshal json params: %s", err)
		http.Error(w, "update exercise failed", http.StatusBadRequest)
		return
	}

	if exReq.Name == "" || exReq.MuscleGroup == "" {
		http.Error(w, "error, exercise name or muscle group empty", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Update(ctx, &Exercise{
		ID:          id,
		TrainerID:   session.UserID,
		Name:        exReq.Name,
		MuscleGroup: exReq.MuscleGroup,
		Description: exReq.Description,
	}); err != nil {
		if errors.Is(err, ErrExerciseNotFound) {
			http.Error(w, "error, exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("update exercise %d: %s", id, err)
		http.Error(w, "update exercise failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("updated:%d", id))
}

func (handler *ExercisesHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "exercisesHandler.delete")
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
		if errors.Is(err, ErrExerciseNotFound) {
			http.Error(w, "error, exercise not found", http.StatusNotFound)
			return
		}
		if pkg.IsForeignKeyViolationError(err) {
			// still referenced by a workout
			http.Error(w, "error, exercise used by a workout", http.StatusConflict)
			return
		}
		log.Errorf("delete exercise %d: %s", id, err)
		http.Error(w, "error, exercise not deleted, internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("deleted:%d", id))
}

func idParam(r *http.Request) (int, error) {
	idStr := mux.Vars(r)["id"]
	if idStr == "" {
		return 0, errors.New("error, id empty")
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, errors.New("error, id NaN")
	}
	return id, nil
}
