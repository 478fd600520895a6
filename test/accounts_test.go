package test

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fitsphere/backend/internal/accounts"
	"github.com/fitsphere/backend/internal/subscriptions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestAccounts_RegisterAndLinkClients() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	trainer := registerUser(ctx, t, "coach.ana@fitsphere.io", "anapass123", "trainer", "Ana")
	assert.Equal(t, "trainer", trainer.Role)
	token := doLogin(ctx, t, "coach.ana@fitsphere.io", "anapass123")

	meResp := doRequest(ctx, t, "GET", "/accounts/me", token, nil)
	require.Equal(t, http.StatusOK, meResp.StatusCode)
	me := decodeBody[accounts.User](t, meResp)
	assert.Equal(t, trainer.ID, me.ID)
	assert.Equal(t, "coach.ana@fitsphere.io", me.Email)

	// duplicate email is refused
	dupResp := doRequest(ctx, t, "POST", "/a/register", "", registerRequest{
		Email:    "coach.ana@fitsphere.io",
		Password: "whatever123",
		Role:     "client",
		Name:     "Impostor",
	})
	defer dupResp.Body.Close()
	assert.Equal(t, http.StatusConflict, dupResp.StatusCode)

	client := registerUser(ctx, t, "client.iva@fitsphere.io", "ivapass123", "client", "Iva")

	linkResp := doRequest(ctx, t, "POST", fmt.Sprintf("/accounts/clients/%d", client.ID), token, nil)
	defer linkResp.Body.Close()
	require.Equal(t, http.StatusCreated, linkResp.StatusCode)

	listResp := doRequest(ctx, t, "GET", "/accounts/clients", token, nil)
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	clients := decodeBody[accounts.ClientsResponse](t, listResp)
	require.Equal(t, 1, clients.Total)
	assert.Equal(t, client.ID, clients.Clients[0].ID)

	// linking twice is a conflict
	relinkResp := doRequest(ctx, t, "POST", fmt.Sprintf("/accounts/clients/%d", client.ID), token, nil)
	defer relinkResp.Body.Close()
	assert.Equal(t, http.StatusConflict, relinkResp.StatusCode)

	unlinkResp := doRequest(ctx, t, "DELETE", fmt.Sprintf("/accounts/clients/%d", client.ID), token, nil)
	defer unlinkResp.Body.Close()
	require.Equal(t, http.StatusOK, unlinkResp.StatusCode)

	listResp = doRequest(ctx, t, "GET", "/accounts/clients", token, nil)
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	clients = decodeBody[accounts.ClientsResponse](t, listResp)
	assert.Zero(t, clients.Total)
}

func (s *IntegrationTestSuite) TestAccounts_TrialClientsLimit() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registerUser(ctx, t, "coach.trial@fitsphere.io", "trialpass1", "trainer", "Trial Coach")
	token := doLogin(ctx, t, "coach.trial@fitsphere.io", "trialpass1")

	// trainers without a subscription get the trial allowance of 3 clients
	var clientIDs []int
	for i := 1; i <= 4; i++ {
		client := registerUser(ctx, t,
			fmt.Sprintf("trial.client%d@fitsphere.io", i),
			"clientpass1", "client", fmt.Sprintf("Client %d", i))
		clientIDs = append(clientIDs, client.ID)
	}

	for _, clientID := range clientIDs[:3] {
		resp := doRequest(ctx, t, "POST", fmt.Sprintf("/accounts/clients/%d", clientID), token, nil)
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	overResp := doRequest(ctx, t, "POST", fmt.Sprintf("/accounts/clients/%d", clientIDs[3]), token, nil)
	defer overResp.Body.Close()
	require.Equal(t, http.StatusConflict, overResp.StatusCode)

	// upgrading to a paid tier lifts the limit
	tiersResp := doRequest(ctx, t, "GET", "/subscriptions/tiers", token, nil)
	require.Equal(t, http.StatusOK, tiersResp.StatusCode)
	tiers := decodeBody[subscriptions.TiersResponse](t, tiersResp)
	require.Equal(t, 3, tiers.Total)

	var proTierID int
	for _, tier := range tiers.Tiers {
		if tier.Name == "pro" {
			proTierID = tier.ID
		}
	}
	require.True(t, proTierID > 0)

	assignResp := doRequest(ctx, t, "POST", fmt.Sprintf("/subscriptions/tiers/%d/assign", proTierID), token, nil)
	defer assignResp.Body.Close()
	require.Equal(t, http.StatusOK, assignResp.StatusCode)

	retryResp := doRequest(ctx, t, "POST", fmt.Sprintf("/accounts/clients/%d", clientIDs[3]), token, nil)
	defer retryResp.Body.Close()
	assert.Equal(t, http.StatusCreated, retryResp.StatusCode)

	myTierResp := doRequest(ctx, t, "GET", "/subscriptions/tiers/mine", token, nil)
	require.Equal(t, http.StatusOK, myTierResp.StatusCode)
	myTier := decodeBody[subscriptions.Tier](t, myTierResp)
	assert.Equal(t, "pro", myTier.Name)
	assert.Equal(t, 25, myTier.MaxClients)
}
