package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestLogin() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registerUser(ctx, t, "login.trainer@fitsphere.io", "trainerpass1", "trainer", "Mika")

	cases := map[string]struct {
		email              string
		password           string
		expectedStatusCode int
		assertFunc         func(resp *http.Response)
	}{
		"good creds": {
			email:              "login.trainer@fitsphere.io",
			password:           "trainerpass1",
			expectedStatusCode: http.StatusOK,
			assertFunc: func(resp *http.Response) {
				respBytes, err := io.ReadAll(resp.Body)
				require.NoError(t, err)

				var loginResp loginResponse
				require.NoError(t, json.Unmarshal(respBytes, &loginResp))
				assert.NotEmpty(t, loginResp.Token)
				assert.Equal(t, "trainer", loginResp.Role)
			},
		},
		"good creds, then logout": {
			email:              "login.trainer@fitsphere.io",
			password:           "trainerpass1",
			expectedStatusCode: http.StatusOK,
			assertFunc: func(resp *http.Response) {
				respBytes, err := io.ReadAll(resp.Body)
				require.NoError(t, err)

				var loginResp loginResponse
				require.NoError(t, json.Unmarshal(respBytes, &loginResp))
				require.NotEmpty(t, loginResp.Token)

				req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/a/logout", serverEndpoint), nil)
				require.NoError(t, err)
				req.Header.Set("User-Agent", "test-agent")
				req.Header.Set("X-FITSPHERE-TOKEN", loginResp.Token)

				logoutResp, err := s.httpClient.Do(req)
				require.NoError(t, err)
				defer logoutResp.Body.Close()
				assert.Equal(t, http.StatusOK, logoutResp.StatusCode)
			},
		},
		"bad password": {
			email:              "login.trainer@fitsphere.io",
			password:           "bad-password",
			expectedStatusCode: http.StatusBadRequest,
			assertFunc: func(resp *http.Response) {
				respBytes, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Equal(t, "error, wrong credentials", strings.TrimSpace(string(respBytes)))
			},
		},
		"unknown email": {
			email:              "who.dis@fitsphere.io",
			password:           "trainerpass1",
			expectedStatusCode: http.StatusBadRequest,
			assertFunc:         func(resp *http.Response) {},
		},
	}

	for name, tc := range cases {
		s.Run(name, func() {
			loginReqJson, err := json.Marshal(map[string]string{
				"email":    tc.email,
				"password": tc.password,
			})
			require.NoError(t, err)

			req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/a/login", serverEndpoint), bytes.NewBuffer(loginReqJson))
			require.NoError(t, err)
			req.Header.Set("User-Agent", "test-agent")
			req.Header.Set("Content-Type", "application/json")

			resp, err := s.httpClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, tc.expectedStatusCode, resp.StatusCode)
			tc.assertFunc(resp)
		})
	}
}

func (s *IntegrationTestSuite) TestProtectedRoutesRequireToken() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resp := doRequest(ctx, t, "GET", "/accounts/me", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// tier catalog is public (pricing page)
	tiersResp := doRequest(ctx, t, "GET", "/subscriptions/tiers", "", nil)
	defer tiersResp.Body.Close()
	assert.Equal(t, http.StatusOK, tiersResp.StatusCode)
}
