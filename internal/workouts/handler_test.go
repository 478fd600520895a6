package workouts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fitsphere/backend/internal/auth"
	"github.com/fitsphere/backend/internal/telemetry/metrics"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type linksStub struct {
	linked map[[2]int]bool
}

func (s *linksStub) IsLinked(_ context.Context, trainerID, clientID int) (bool, error) {
	return s.linked[[2]int{trainerID, clientID}], nil
}

type workoutsTestSetup struct {
	exercises *exercisesRepoMock
	workouts  *workoutsRepoMock
	links     *linksStub
	router    *mux.Router
}

func newWorkoutsTestSetup() *workoutsTestSetup {
	exercises := newExercisesRepoMock()
	workouts := newWorkoutsRepoMock()
	links := &linksStub{linked: make(map[[2]int]bool)}

	router := mux.NewRouter()
	NewExercisesHandler(exercises).SetupRoutes(router)
	NewWorkoutsHandler(workouts, links, metrics.NewTestManager()).SetupRoutes(router)

	return &workoutsTestSetup{
		exercises: exercises,
		workouts:  workouts,
		links:     links,
		router:    router,
	}
}

func (s *workoutsTestSetup) do(req *http.Request, userID int, role string) *httptest.ResponseRecorder {
	req = req.WithContext(auth.ContextWithSession(req.Context(), &auth.Session{
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now(),
	}))
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func TestExercisesHandler_AddAndList(t *testing.T) {
	s := newWorkoutsTestSetup()

	body := `{"name": "bench press", "muscleGroup": "chest", "description": "barbell, flat bench"}`
	req, err := http.NewRequest("POST", "/exercises", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := s.do(req, 1, auth.RoleTrainer)
	require.Equal(t, http.StatusCreated, rr.Code)

	var added Exercise
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &added))
	assert.Equal(t, "bench press", added.Name)
	assert.Equal(t, 1, added.TrainerID)
	assert.True(t, added.ID > 0)

	listReq, err := http.NewRequest("GET", "/exercises", nil)
	require.NoError(t, err)
	listRr := s.do(listReq, 1, auth.RoleTrainer)
	require.Equal(t, http.StatusOK, listRr.Code)

	var resp ExercisesResponse
	require.NoError(t, json.Unmarshal(listRr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)

	// a different trainer sees an empty catalog
	otherRr := s.do(mustReq(t, "GET", "/exercises", ""), 2, auth.RoleTrainer)
	require.Equal(t, http.StatusOK, otherRr.Code)
	require.NoError(t, json.Unmarshal(otherRr.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Total)
}

func TestExercisesHandler_Add_ClientForbidden(t *testing.T) {
	s := newWorkoutsTestSetup()

	req := mustReq(t, "POST", "/exercises", `{"name": "squat", "muscleGroup": "legs"}`)
	rr := s.do(req, 7, auth.RoleClient)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, s.exercises.Exercises)
}

func TestExercisesHandler_Delete_ReferencedConflict(t *testing.T) {
	s := newWorkoutsTestSetup()

	exercise, err := s.exercises.Add(context.Background(), Exercise{TrainerID: 1, Name: "deadlift", MuscleGroup: "back"})
	require.NoError(t, err)
	s.exercises.Referenced[exercise.ID] = true

	rr := s.do(mustReq(t, "DELETE", fmt.Sprintf("/exercises/%d", exercise.ID), ""), 1, auth.RoleTrainer)
	assert.Equal(t, http.StatusConflict, rr.Code)

	// still present
	_, err = s.exercises.Get(context.Background(), exercise.ID)
	assert.NoError(t, err)
}

func TestWorkoutsHandler_AddAndDetails(t *testing.T) {
	s := newWorkoutsTestSetup()

	rr := s.do(mustReq(t, "POST", "/workouts", `{"name": "pull day", "description": "week A"}`), 1, auth.RoleTrainer)
	require.Equal(t, http.StatusCreated, rr.Code)

	var workout Workout
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &workout))
	require.True(t, workout.ID > 0)

	weBody := `{"exerciseId": 1, "sets": 4, "reps": 8, "kilos": 60, "position": 1}`
	weRr := s.do(mustReq(t, "POST", fmt.Sprintf("/workouts/%d/exercises", workout.ID), weBody), 1, auth.RoleTrainer)
	require.Equal(t, http.StatusCreated, weRr.Code)

	detailsRr := s.do(mustReq(t, "GET", fmt.Sprintf("/workouts/%d", workout.ID), ""), 1, auth.RoleTrainer)
	require.Equal(t, http.StatusOK, detailsRr.Code)

	var details WorkoutDetailsResponse
	require.NoError(t, json.Unmarshal(detailsRr.Body.Bytes(), &details))
	assert.Equal(t, workout.ID, details.Workout.ID)
	require.Len(t, details.Exercises, 1)
	assert.Equal(t, 4, details.Exercises[0].Sets)
	require.NotNil(t, details.Volume)
	assert.InDelta(t, 4*8*60, details.Volume.TotalVolume, 0.001)
}

func TestWorkoutsHandler_AddExercise_InvalidPrescription(t *testing.T) {
	s := newWorkoutsTestSetup()

	workout, err := s.workouts.Add(context.Background(), Workout{TrainerID: 1, Name: "legs"})
	require.NoError(t, err)

	for name, body := range map[string]string{
		"zero sets":      `{"exerciseId": 1, "sets": 0, "reps": 8, "kilos": 60}`,
		"zero reps":      `{"exerciseId": 1, "sets": 3, "reps": 0, "kilos": 60}`,
		"negative kilos": `{"exerciseId": 1, "sets": 3, "reps": 8, "kilos": -5}`,
	} {
		t.Run(name, func(t *testing.T) {
			rr := s.do(mustReq(t, "POST", fmt.Sprintf("/workouts/%d/exercises", workout.ID), body), 1, auth.RoleTrainer)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestWorkoutsHandler_AssignAndClientList(t *testing.T) {
	s := newWorkoutsTestSetup()
	s.links.linked[[2]int{1, 7}] = true

	workout, err := s.workouts.Add(context.Background(), Workout{TrainerID: 1, Name: "full body"})
	require.NoError(t, err)

	rr := s.do(mustReq(t, "POST", fmt.Sprintf("/workouts/%d/assign/7", workout.ID), ""), 1, auth.RoleTrainer)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "assigned:7", rr.Body.String())

	// assigned client sees the workout
	listRr := s.do(mustReq(t, "GET", "/workouts", ""), 7, auth.RoleClient)
	require.Equal(t, http.StatusOK, listRr.Code)
	var resp WorkoutsResponse
	require.NoError(t, json.Unmarshal(listRr.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	require.NotNil(t, resp.Workouts[0].ClientID)
	assert.Equal(t, 7, *resp.Workouts[0].ClientID)

	// and can open its details
	detailsRr := s.do(mustReq(t, "GET", fmt.Sprintf("/workouts/%d", workout.ID), ""), 7, auth.RoleClient)
	assert.Equal(t, http.StatusOK, detailsRr.Code)

	// another client cannot
	otherRr := s.do(mustReq(t, "GET", fmt.Sprintf("/workouts/%d", workout.ID), ""), 8, auth.RoleClient)
	assert.Equal(t, http.StatusForbidden, otherRr.Code)
}

func TestWorkoutsHandler_Assign_NotLinked(t *testing.T) {
	s := newWorkoutsTestSetup()

	workout, err := s.workouts.Add(context.Background(), Workout{TrainerID: 1, Name: "full body"})
	require.NoError(t, err)

	rr := s.do(mustReq(t, "POST", fmt.Sprintf("/workouts/%d/assign/7", workout.ID), ""), 1, auth.RoleTrainer)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Nil(t, s.workouts.Workouts[workout.ID].ClientID)
}

func TestWorkoutsHandler_Unassign(t *testing.T) {
	s := newWorkoutsTestSetup()
	clientID := 7

	workout, err := s.workouts.Add(context.Background(), Workout{
		TrainerID: 1,
		ClientID:  &clientID,
		Name:      "full body",
	})
	require.NoError(t, err)

	rr := s.do(mustReq(t, "DELETE", fmt.Sprintf("/workouts/%d/assign", workout.ID), ""), 1, auth.RoleTrainer)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Nil(t, s.workouts.Workouts[workout.ID].ClientID)
}

func TestWorkoutsHandler_Delete_OtherTrainer(t *testing.T) {
	s := newWorkoutsTestSetup()

	workout, err := s.workouts.Add(context.Background(), Workout{TrainerID: 1, Name: "full body"})
	require.NoError(t, err)

	rr := s.do(mustReq(t, "DELETE", fmt.Sprintf("/workouts/%d", workout.ID), ""), 2, auth.RoleTrainer)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, s.workouts.Workouts, workout.ID)
}

func mustReq(t *testing.T, method, path, body string) *http.Request {
	t.Helper()
	var req *http.Request
	var err error
	if body != "" {
		req, err = http.NewRequest(method, path, strings.NewReader(body))
	} else {
		req, err = http.NewRequest(method, path, nil)
	}
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}
