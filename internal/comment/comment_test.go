package comment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"kestrel/backend/internal/apperr"
	"kestrel/backend/internal/database"
	"kestrel/backend/internal/hub"
	"kestrel/backend/internal/models"
)

type recorder struct {
	mu     sync.Mutex
	events map[uint][]hub.Event
}

func (r *recorder) Publish(gameID uint, event hub.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.events == nil {
		r.events = map[uint][]hub.Event{}
	}

	r.events[gameID] = append(r.events[gameID], event)
}

func setup(t *testing.T) (*gorm.DB, models.User, models.Game) {
	t.Helper()

	db, err := database.OpenMemory()
	require.NoError(t, err)

	user := models.User{SubjectID: "auth0|1", Username: "alice", Email: "alice@example.com"}
	require.NoError(t, db.Create(&user).Error)

	game := models.Game{Title: "Outer Wilds"}
	require.NoError(t, db.Create(&game).Error)

	return db, user, game
}

func TestAdd(t *testing.T) {
	db, user, game := setup(t)
	rec := &recorder{}
	svc := NewService(db, rec)

	v, err := svc.Add(context.Background(), game.ID, user.ID, "  great game  ")
	require.NoError(t, err)
	assert.NotZero(t, v.ID)
	assert.Equal(t, "great game", v.Content)
	assert.False(t, v.CreatedAt.IsZero())
	assert.Equal(t, Author{ID: user.ID, Username: "alice"}, v.Author)

	require.Len(t, rec.events[game.ID], 1)
	assert.Equal(t, hub.EventCommentCreated, rec.events[game.ID][0].Type)
}

func TestAddValidation(t *testing.T) {
	db, user, game := setup(t)
	rec := &recorder{}
	svc := NewService(db, rec)

	for _, content := range []string{"", "   \n"} {
		_, err := svc.Add(context.Background(), game.ID, user.ID, content)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	}

	assert.Empty(t, rec.events)
}

func TestAddMissingGame(t *testing.T) {
	db, user, _ := setup(t)
	svc := NewService(db, nil)

	_, err := svc.Add(context.Background(), 999, user.ID, "hi")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	var n int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestListForGameOrdering(t *testing.T) {
	db, user, game := setup(t)
	svc := NewService(db, nil)
	ctx := context.Background()

	same := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for _, content := range []string{"C1", "C2", "C3"} {
		require.NoError(t, db.Create(&models.Comment{GameID: game.ID, UserID: user.ID, Content: content, CreatedAt: same}).Error)
	}

	views, err := svc.ListForGame(ctx, game.ID)
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, "C1", views[0].Content)
	assert.Equal(t, "C2", views[1].Content)
	assert.Equal(t, "C3", views[2].Content)
	assert.Equal(t, "alice", views[2].Author.Username)
}

func TestListForGameEmpty(t *testing.T) {
	db, _, game := setup(t)

	views, err := NewService(db, nil).ListForGame(context.Background(), game.ID)
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}
