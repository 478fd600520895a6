//go:build integration_test || all_tests

package progress

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fitsphere/backend/internal/db"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRepoSetup(t *testing.T) (*Repo, int, func()) {
	t.Helper()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	t.Logf("using postres host: %s", host)

	dbPool, err := db.NewDBPool(timeoutCtx, db.NewDBPoolParams{
		DBHost:         host,
		DBPort:         "5432",
		DBName:         "fitsphere",
		TracingEnabled: false,
	})
	require.NoError(t, err)

	// measurements hang off a client account
	var clientID int
	err = dbPool.QueryRow(
		timeoutCtx,
		`INSERT INTO users (email, role, name, password_hash, created_at)
			VALUES ($1, 'client', $2, 'test-hash', NOW()) RETURNING id;`,
		gofakeit.Email(), gofakeit.Name(),
	).Scan(&clientID)
	require.NoError(t, err)

	return NewRepo(dbPool), clientID, func() {
		dbPool.Close()
	}
}

func TestRepo_AddAndGet(t *testing.T) {
	ctx := context.Background()
	repo, clientID, shutdown := testRepoSetup(t)
	defer shutdown()

	weight := 81.5
	chest := 110.0
	added, err := repo.Add(ctx, Measurement{
		ClientID:   clientID,
		BodyWeight: &weight,
		ChestSize:  &chest,
		Notes:      "morning, fasted",
		CreatedAt:  time.Now(),
	})
	require.NoError(t, err)
	require.NotNil(t, added)
	assert.True(t, added.ID > 0)

	fetched, err := repo.Get(ctx, added.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.BodyWeight)
	assert.Equal(t, weight, *fetched.BodyWeight)
	assert.Nil(t, fetched.WaistSize)
	assert.Equal(t, "morning, fasted", fetched.Notes)

	_, err = repo.Get(ctx, 25342523)
	assert.ErrorIs(t, err, ErrMeasurementNotFound)
}

func TestRepo_ListOrderingAndCount(t *testing.T) {
	ctx := context.Background()
	repo, clientID, shutdown := testRepoSetup(t)
	defer shutdown()

	now := time.Now()
	weights := []float64{80, 81, 82}
	for i, w := range weights {
		weight := w
		_, err := repo.Add(ctx, Measurement{
			ClientID:   clientID,
			BodyWeight: &weight,
			CreatedAt:  now.AddDate(0, 0, i-len(weights)),
		})
		require.NoError(t, err)
	}

	count, err := repo.Count(ctx, clientID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// ListAll is oldest first
	all, err := repo.ListAll(ctx, clientID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 80.0, *all[0].BodyWeight)
	assert.Equal(t, 82.0, *all[2].BodyWeight)

	// pages are newest first
	page, err := repo.List(ctx, ListParams{ClientID: clientID, Page: 1, Size: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 82.0, *page[0].BodyWeight)

	page, err = repo.List(ctx, ListParams{ClientID: clientID, Page: 2, Size: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, 80.0, *page[0].BodyWeight)
}

func TestRepo_ListEmpty(t *testing.T) {
	ctx := context.Background()
	repo, clientID, shutdown := testRepoSetup(t)
	defer shutdown()

	all, err := repo.ListAll(ctx, clientID)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}
