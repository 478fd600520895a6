package test

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fitsphere/backend/internal/progress"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestProgress_MeasurementsAndStats() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registerUser(ctx, t, "coach.prog@fitsphere.io", "progpass12", "trainer", "Pavle")
	trainerToken := doLogin(ctx, t, "coach.prog@fitsphere.io", "progpass12")

	client := registerUser(ctx, t, "client.prog@fitsphere.io", "progpass12", "client", "Petra")
	clientToken := doLogin(ctx, t, "client.prog@fitsphere.io", "progpass12")

	linkResp := doRequest(ctx, t, "POST", fmt.Sprintf("/accounts/clients/%d", client.ID), trainerToken, nil)
	linkResp.Body.Close()
	require.Equal(t, http.StatusCreated, linkResp.StatusCode)

	// a measurement with no metrics at all is refused
	emptyResp := doRequest(ctx, t, "POST", "/progress/measurements", clientToken, map[string]any{
		"notes": "forgot the tape",
	})
	emptyResp.Body.Close()
	require.Equal(t, http.StatusBadRequest, emptyResp.StatusCode)

	// weight only is fine, metrics are independently optional
	weightOnlyResp := doRequest(ctx, t, "POST", "/progress/measurements", clientToken, map[string]any{
		"bodyWeight": 80.0,
		"notes":      "morning, fasted",
	})
	require.Equal(t, http.StatusCreated, weightOnlyResp.StatusCode)
	first := decodeBody[progress.Measurement](t, weightOnlyResp)
	require.NotNil(t, first.BodyWeight)
	assert.Nil(t, first.ChestSize)

	fullResp := doRequest(ctx, t, "POST", "/progress/measurements", clientToken, map[string]any{
		"bodyWeight": 82.0,
		"chestSize":  110.0,
		"waistSize":  84.0,
	})
	require.Equal(t, http.StatusCreated, fullResp.StatusCode)

	pageResp := doRequest(ctx, t, "GET", "/progress/measurements/page/1/size/10", clientToken, nil)
	require.Equal(t, http.StatusOK, pageResp.StatusCode)
	page := decodeBody[progress.MeasurementsResponse](t, pageResp)
	require.Equal(t, 2, page.Total)
	// newest first
	require.NotNil(t, page.Measurements[0].ChestSize)

	statsResp := doRequest(ctx, t, "GET", "/progress/stats/1m", clientToken, nil)
	require.Equal(t, http.StatusOK, statsResp.StatusCode)
	stats := decodeBody[progress.Stats](t, statsResp)
	assert.Equal(t, 2, stats.Measurements)
	assert.Equal(t, 82.0, stats.BodyWeight.Value)
	assert.Equal(t, 2.0, stats.BodyWeight.Change)

	seriesResp := doRequest(ctx, t, "GET", "/progress/series/body_weight/1m", clientToken, nil)
	require.Equal(t, http.StatusOK, seriesResp.StatusCode)
	series := decodeBody[progress.SeriesResponse](t, seriesResp)
	require.Len(t, series.Points, 2)
	assert.Equal(t, 80.0, series.Points[0].Value)
	assert.Equal(t, 82.0, series.Points[1].Value)

	// the chest series skips the first measurement, the all-series keeps it as null
	chestResp := doRequest(ctx, t, "GET", "/progress/series/chest_size/1m", clientToken, nil)
	require.Equal(t, http.StatusOK, chestResp.StatusCode)
	chestSeries := decodeBody[progress.SeriesResponse](t, chestResp)
	require.Len(t, chestSeries.Points, 1)

	allResp := doRequest(ctx, t, "GET", "/progress/series/all/1m", clientToken, nil)
	require.Equal(t, http.StatusOK, allResp.StatusCode)
	allSeries := decodeBody[progress.AllSeriesResponse](t, allResp)
	require.Len(t, allSeries.Points, 2)
	assert.Nil(t, allSeries.Points[0].Values[progress.DimensionChestSize])

	// the linked trainer reads the same stats through the client routes
	trainerStatsResp := doRequest(ctx, t, "GET", fmt.Sprintf("/progress/clients/%d/stats/1m", client.ID), trainerToken, nil)
	require.Equal(t, http.StatusOK, trainerStatsResp.StatusCode)
	trainerStats := decodeBody[progress.Stats](t, trainerStatsResp)
	assert.Equal(t, stats.BodyWeight, trainerStats.BodyWeight)

	// unknown range is a bad request
	badRangeResp := doRequest(ctx, t, "GET", "/progress/stats/2w", clientToken, nil)
	badRangeResp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, badRangeResp.StatusCode)
}

func (s *IntegrationTestSuite) TestProgress_UnlinkedTrainerDenied() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registerUser(ctx, t, "coach.denied@fitsphere.io", "deniedpass1", "trainer", "Dragan")
	trainerToken := doLogin(ctx, t, "coach.denied@fitsphere.io", "deniedpass1")
	stranger := registerUser(ctx, t, "client.denied@fitsphere.io", "deniedpass1", "client", "Dara")

	resp := doRequest(ctx, t, "GET", fmt.Sprintf("/progress/clients/%d/history", stranger.ID), trainerToken, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
