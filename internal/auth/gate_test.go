package auth

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"kestrel/backend/internal/apperr"
	"kestrel/backend/internal/database"
	"kestrel/backend/internal/models"
)

func setupGate(t *testing.T) (*gorm.DB, *Gate) {
	t.Helper()

	db, err := database.OpenMemory()
	require.NoError(t, err)

	return db, NewGate(db)
}

func userCount(t *testing.T, db *gorm.DB, subject string) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(&models.User{}).Where("subject_id = ?", subject).Count(&n).Error)

	return n
}

func TestResolveUserProvisionsWithDefaults(t *testing.T) {
	db, gate := setupGate(t)
	ctx := context.Background()

	user, err := gate.ResolveUser(ctx, Claims{Subject: "auth0|999"})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "auth0|999", user.SubjectID)
	assert.Equal(t, DefaultUsername, user.Username)
	assert.Equal(t, DefaultEmail, user.Email)

	again, err := gate.ResolveUser(ctx, Claims{Subject: "auth0|999", Nickname: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, DefaultUsername, again.Username)

	assert.Equal(t, int64(1), userCount(t, db, "auth0|999"))
}

func TestResolveUserUsesHints(t *testing.T) {
	_, gate := setupGate(t)

	user, err := gate.ResolveUser(context.Background(), Claims{Subject: "auth0|1", Nickname: "kes", Email: "kes@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "kes", user.Username)
	assert.Equal(t, "kes@example.com", user.Email)
}

func TestResolveUserRequiresSubject(t *testing.T) {
	_, gate := setupGate(t)

	_, err := gate.ResolveUser(context.Background(), Claims{Subject: " "})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestProvisionLosingRaceReturnsWinner(t *testing.T) {
	db, gate := setupGate(t)
	ctx := context.Background()

	winner := models.User{SubjectID: "auth0|race", Username: "first", Email: "first@example.com"}
	require.NoError(t, db.Create(&winner).Error)

	// simulates a request that missed the lookup before the winner committed
	user, err := gate.provision(ctx, Claims{Subject: "auth0|race", Nickname: "second"})
	require.NoError(t, err)
	assert.Equal(t, winner.ID, user.ID)
	assert.Equal(t, "first", user.Username)
	assert.Equal(t, int64(1), userCount(t, db, "auth0|race"))
}

func TestResolveUserConcurrent(t *testing.T) {
	db, gate := setupGate(t)

	const workers = 8

	ids := make([]uint, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user, err := gate.ResolveUser(context.Background(), Claims{Subject: "auth0|same"})
			if assert.NoError(t, err) {
				ids[i] = user.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	assert.Equal(t, int64(1), userCount(t, db, "auth0|same"))
}

func TestGetUser(t *testing.T) {
	_, gate := setupGate(t)
	ctx := context.Background()

	user, err := gate.ResolveUser(ctx, Claims{Subject: "auth0|2"})
	require.NoError(t, err)

	got, err := gate.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "auth0|2", got.SubjectID)

	_, err = gate.GetUser(ctx, 404)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
