package test

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fitsphere/backend/internal/workouts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestWorkouts_FullFlow() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registerUser(ctx, t, "coach.wout@fitsphere.io", "woutpass12", "trainer", "Wout")
	trainerToken := doLogin(ctx, t, "coach.wout@fitsphere.io", "woutpass12")

	client := registerUser(ctx, t, "client.wout@fitsphere.io", "woutpass12", "client", "Wanda")
	clientToken := doLogin(ctx, t, "client.wout@fitsphere.io", "woutpass12")

	linkResp := doRequest(ctx, t, "POST", fmt.Sprintf("/accounts/clients/%d", client.ID), trainerToken, nil)
	linkResp.Body.Close()
	require.Equal(t, http.StatusCreated, linkResp.StatusCode)

	// exercise catalog
	exResp := doRequest(ctx, t, "POST", "/exercises", trainerToken, map[string]any{
		"name":        "bench press",
		"muscleGroup": "chest",
		"description": "barbell, flat bench",
	})
	require.Equal(t, http.StatusCreated, exResp.StatusCode)
	exercise := decodeBody[workouts.Exercise](t, exResp)

	// workout with one prescription
	wResp := doRequest(ctx, t, "POST", "/workouts", trainerToken, map[string]any{
		"name":        "push day",
		"description": "week 1",
	})
	require.Equal(t, http.StatusCreated, wResp.StatusCode)
	workout := decodeBody[workouts.Workout](t, wResp)

	weResp := doRequest(ctx, t, "POST", fmt.Sprintf("/workouts/%d/exercises", workout.ID), trainerToken, map[string]any{
		"exerciseId": exercise.ID,
		"sets":       4,
		"reps":       8,
		"kilos":      60.0,
		"position":   1,
	})
	weResp.Body.Close()
	require.Equal(t, http.StatusCreated, weResp.StatusCode)

	// unknown exercise in a prescription is refused
	badWeResp := doRequest(ctx, t, "POST", fmt.Sprintf("/workouts/%d/exercises", workout.ID), trainerToken, map[string]any{
		"exerciseId": 25342523,
		"sets":       3,
		"reps":       10,
	})
	badWeResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, badWeResp.StatusCode)

	// the catalog exercise is now referenced and cannot be deleted
	delExResp := doRequest(ctx, t, "DELETE", fmt.Sprintf("/exercises/%d", exercise.ID), trainerToken, nil)
	delExResp.Body.Close()
	assert.Equal(t, http.StatusConflict, delExResp.StatusCode)

	// assign to the linked client
	assignResp := doRequest(ctx, t, "POST", fmt.Sprintf("/workouts/%d/assign/%d", workout.ID, client.ID), trainerToken, nil)
	assignResp.Body.Close()
	require.Equal(t, http.StatusOK, assignResp.StatusCode)

	// the client sees the workout, with volume: 4 * 8 * 60 = 1920
	listResp := doRequest(ctx, t, "GET", "/workouts", clientToken, nil)
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	clientWorkouts := decodeBody[workouts.WorkoutsResponse](t, listResp)
	require.Equal(t, 1, clientWorkouts.Total)

	detailsResp := doRequest(ctx, t, "GET", fmt.Sprintf("/workouts/%d", workout.ID), clientToken, nil)
	require.Equal(t, http.StatusOK, detailsResp.StatusCode)
	details := decodeBody[workouts.WorkoutDetailsResponse](t, detailsResp)
	require.Len(t, details.Exercises, 1)
	assert.Equal(t, "bench press", details.Exercises[0].ExerciseName)
	require.NotNil(t, details.Volume)
	assert.Equal(t, 1920.0, details.Volume.TotalVolume)
	assert.Equal(t, 1920.0, details.Volume.PerMuscleGroup["chest"])

	// clients cannot create workouts
	clientAddResp := doRequest(ctx, t, "POST", "/workouts", clientToken, map[string]any{"name": "nope"})
	clientAddResp.Body.Close()
	assert.Equal(t, http.StatusForbidden, clientAddResp.StatusCode)
}

func (s *IntegrationTestSuite) TestWorkouts_AssignNotLinked() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registerUser(ctx, t, "coach.nolink@fitsphere.io", "nolinkpass1", "trainer", "Nole")
	trainerToken := doLogin(ctx, t, "coach.nolink@fitsphere.io", "nolinkpass1")
	stranger := registerUser(ctx, t, "client.nolink@fitsphere.io", "nolinkpass1", "client", "Stana")

	wResp := doRequest(ctx, t, "POST", "/workouts", trainerToken, map[string]any{"name": "leg day"})
	require.Equal(t, http.StatusCreated, wResp.StatusCode)
	workout := decodeBody[workouts.Workout](t, wResp)

	assignResp := doRequest(ctx, t, "POST", fmt.Sprintf("/workouts/%d/assign/%d", workout.ID, stranger.ID), trainerToken, nil)
	defer assignResp.Body.Close()
	assert.Equal(t, http.StatusForbidden, assignResp.StatusCode)
}
