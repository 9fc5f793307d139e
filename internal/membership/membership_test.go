package membership

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

type fixture struct {
	db   *gorm.DB
	svc  *Service
	user models.User
	game models.Game
}

func setup(t *testing.T) fixture {
	t.Helper()

	db, err := database.OpenMemory()
	require.NoError(t, err)

	user := models.User{SubjectID: "auth0|1", Username: "alice", Email: "alice@example.com"}
	require.NoError(t, db.Create(&user).Error)

	game := models.Game{Title: "Hades"}
	require.NoError(t, db.Create(&game).Error)

	return fixture{db: db, svc: NewService(db), user: user, game: game}
}

func rows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)

	return n
}

func TestAddIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.Add(ctx, Owned, f.user.ID, f.game.ID)
	require.NoError(t, err)
	assert.Equal(t, Result{Present: true, Changed: true}, res)

	res, err = f.svc.Add(ctx, Owned, f.user.ID, f.game.ID)
	require.NoError(t, err)
	assert.Equal(t, Result{Present: true, Changed: false}, res)

	assert.Equal(t, int64(1), rows(t, f.db, &models.OwnedGame{}))
	assert.Zero(t, rows(t, f.db, &models.NowPlayingGame{}), "relations are independent")
}

func TestRemove(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.Remove(ctx, NowPlaying, f.user.ID, f.game.ID)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)

	_, err = f.svc.Add(ctx, NowPlaying, f.user.ID, f.game.ID)
	require.NoError(t, err)

	res, err = f.svc.Remove(ctx, NowPlaying, f.user.ID, f.game.ID)
	require.NoError(t, err)
	assert.Equal(t, Result{Present: false, Changed: true}, res)
	assert.Zero(t, rows(t, f.db, &models.NowPlayingGame{}))
}

func TestToggle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.Toggle(ctx, Owned, f.user.ID, f.game.ID)
	require.NoError(t, err)
	assert.True(t, res.Present)

	res, err = f.svc.Toggle(ctx, Owned, f.user.ID, f.game.ID)
	require.NoError(t, err)
	assert.False(t, res.Present)
	assert.True(t, res.Changed)
}

func TestMissingGame(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Add(ctx, Owned, f.user.ID, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Remove(ctx, Owned, f.user.ID, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Toggle(ctx, NowPlaying, f.user.ID, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Status(ctx, f.user.ID, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Zero(t, rows(t, f.db, &models.OwnedGame{}))
}

func TestUnknownRelation(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Add(context.Background(), Relation("wishlist"), f.user.ID, f.game.ID)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.List(context.Background(), Relation("wishlist"), f.user.ID)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Add(ctx, NowPlaying, f.user.ID, f.game.ID)
	require.NoError(t, err)

	st, err := f.svc.Status(ctx, f.user.ID, f.game.ID)
	require.NoError(t, err)
	assert.Equal(t, Status{GameID: f.game.ID, Owned: false, NowPlaying: true}, st)

	st, err = f.svc.StatusIfExists(ctx, f.user.ID, f.game.ID)
	require.NoError(t, err)
	assert.True(t, st.NowPlaying)
}

func TestList(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	second := models.Game{Title: "Celeste"}
	require.NoError(t, f.db.Create(&second).Error)

	_, err := f.svc.Add(ctx, Owned, f.user.ID, f.game.ID)
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, Owned, f.user.ID, second.ID)
	require.NoError(t, err)

	games, err := f.svc.List(ctx, Owned, f.user.ID)
	require.NoError(t, err)
	require.Len(t, games, 2)

	titles := []string{games[0].Title, games[1].Title}
	assert.ElementsMatch(t, []string{"Hades", "Celeste"}, titles)

	games, err = f.svc.List(ctx, NowPlaying, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestConcurrentAdd(t *testing.T) {
	f := setup(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Add(context.Background(), Owned, f.user.ID, f.game.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), rows(t, f.db, &models.OwnedGame{}))
}
