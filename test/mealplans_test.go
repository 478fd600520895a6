package test

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fitsphere/backend/internal/mealplans"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestMealPlans_FullFlow() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registerUser(ctx, t, "coach.meal@fitsphere.io", "mealpass12", "trainer", "Mila")
	trainerToken := doLogin(ctx, t, "coach.meal@fitsphere.io", "mealpass12")

	client := registerUser(ctx, t, "client.meal@fitsphere.io", "mealpass12", "client", "Marta")
	clientToken := doLogin(ctx, t, "client.meal@fitsphere.io", "mealpass12")

	linkResp := doRequest(ctx, t, "POST", fmt.Sprintf("/accounts/clients/%d", client.ID), trainerToken, nil)
	linkResp.Body.Close()
	require.Equal(t, http.StatusCreated, linkResp.StatusCode)

	breakfastResp := doRequest(ctx, t, "POST", "/menus", trainerToken, map[string]any{
		"name":         "oats and whey",
		"calories":     450,
		"proteinGrams": 35.0,
		"carbsGrams":   55.0,
		"fatGrams":     9.0,
	})
	require.Equal(t, http.StatusCreated, breakfastResp.StatusCode)
	breakfast := decodeBody[mealplans.Menu](t, breakfastResp)

	lunchResp := doRequest(ctx, t, "POST", "/menus", trainerToken, map[string]any{
		"name":         "rice and chicken",
		"calories":     700,
		"proteinGrams": 50.0,
		"carbsGrams":   80.0,
		"fatGrams":     14.0,
	})
	require.Equal(t, http.StatusCreated, lunchResp.StatusCode)
	lunch := decodeBody[mealplans.Menu](t, lunchResp)

	planResp := doRequest(ctx, t, "POST", "/mealplans", trainerToken, map[string]any{
		"name":        "lean bulk",
		"description": "week 1",
	})
	require.Equal(t, http.StatusCreated, planResp.StatusCode)
	plan := decodeBody[mealplans.MenuPlan](t, planResp)

	for _, item := range []map[string]any{
		{"menuId": breakfast.ID, "day": 1, "slot": "breakfast"},
		{"menuId": lunch.ID, "day": 1, "slot": "lunch"},
		{"menuId": lunch.ID, "day": 2, "slot": "lunch"},
	} {
		itemResp := doRequest(ctx, t, "POST", fmt.Sprintf("/mealplans/%d/items", plan.ID), trainerToken, item)
		itemResp.Body.Close()
		require.Equal(t, http.StatusCreated, itemResp.StatusCode)
	}

	// day outside 1..7 is refused
	badItemResp := doRequest(ctx, t, "POST", fmt.Sprintf("/mealplans/%d/items", plan.ID), trainerToken, map[string]any{
		"menuId": breakfast.ID, "day": 8, "slot": "dinner",
	})
	badItemResp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, badItemResp.StatusCode)

	// referenced menu cannot be deleted
	delMenuResp := doRequest(ctx, t, "DELETE", fmt.Sprintf("/menus/%d", lunch.ID), trainerToken, nil)
	delMenuResp.Body.Close()
	assert.Equal(t, http.StatusConflict, delMenuResp.StatusCode)

	assignResp := doRequest(ctx, t, "POST", fmt.Sprintf("/mealplans/%d/assign/%d", plan.ID, client.ID), trainerToken, nil)
	assignResp.Body.Close()
	require.Equal(t, http.StatusOK, assignResp.StatusCode)

	// client opens the plan: totals 1850 kcal over 2 days
	detailsResp := doRequest(ctx, t, "GET", fmt.Sprintf("/mealplans/%d", plan.ID), clientToken, nil)
	require.Equal(t, http.StatusOK, detailsResp.StatusCode)
	details := decodeBody[mealplans.PlanDetailsResponse](t, detailsResp)
	require.Len(t, details.Items, 3)
	require.NotNil(t, details.Nutrition)
	assert.Equal(t, 1850, details.Nutrition.Totals.Calories)
	assert.Equal(t, 3, details.Nutrition.Totals.Meals)
	assert.Equal(t, 1150, details.Nutrition.PerDay[1].Calories)
	assert.Equal(t, 700, details.Nutrition.PerDay[2].Calories)

	// deleting the plan removes its items with it
	delPlanResp := doRequest(ctx, t, "DELETE", fmt.Sprintf("/mealplans/%d", plan.ID), trainerToken, nil)
	delPlanResp.Body.Close()
	require.Equal(t, http.StatusOK, delPlanResp.StatusCode)

	goneResp := doRequest(ctx, t, "GET", fmt.Sprintf("/mealplans/%d", plan.ID), trainerToken, nil)
	goneResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, goneResp.StatusCode)

	// with no plan items left the menu can go too
	delMenuResp = doRequest(ctx, t, "DELETE", fmt.Sprintf("/menus/%d", lunch.ID), trainerToken, nil)
	delMenuResp.Body.Close()
	assert.Equal(t, http.StatusOK, delMenuResp.StatusCode)
}
