package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kestrel/backend/internal/apperr"
	"kestrel/backend/internal/igdb"
)

type fakeUpstream struct {
	fakeLookup
	games    map[int64]igdb.Game
	searched []string
}

func (f *fakeUpstream) SearchGames(_ context.Context, query string, _ int) ([]igdb.Game, error) {
	f.searched = append(f.searched, query)

	out := []igdb.Game{}
	for _, g := range f.games {
		out = append(out, g)
	}

	return out, nil
}

func (f *fakeUpstream) GameDetails(_ context.Context, id int64) (*igdb.Game, error) {
	g, ok := f.games[id]
	if !ok {
		return nil, apperr.NotFound("igdb game", id)
	}

	return &g, nil
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		fakeLookup: fakeLookup{franchises: []string{"The Witcher"}, developerIDs: []int64{10}},
		games: map[int64]igdb.Game{
			1942: {
				ID:      1942,
				Name:    "The Witcher 3: Wild Hunt",
				Summary: "Geralt.",
				Cover:   &igdb.Cover{ID: 1, ImageID: "co1wyy"},
				InvolvedCompanies: []igdb.InvolvedCompany{
					{ID: 10, Company: igdb.Company{ID: 908, Name: "CD Projekt RED"}},
				},
				Franchises: []int64{452},
				Genres:     []igdb.Genre{{ID: 12, Name: "Role-playing (RPG)"}},
			},
		},
	}
}

func TestSearchShortQuery(t *testing.T) {
	up := newFakeUpstream()
	ext := NewExternal(up, nil)

	for _, q := range []string{"", "ab", "  ab  ", "zé"} {
		got, err := ext.Search(context.Background(), q)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NotNil(t, got)
	}

	assert.Empty(t, up.searched, "short queries never reach IGDB")
}

func TestSearchReshapes(t *testing.T) {
	up := newFakeUpstream()
	got, err := NewExternal(up, nil).Search(context.Background(), "witcher")
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, int64(1942), got[0].ID)
	assert.Equal(t, "https://images.igdb.com/igdb/image/upload/t_cover_big/co1wyy.jpg", got[0].CoverURL)
	assert.Equal(t, []string{"witcher"}, up.searched)
	assert.Zero(t, up.calls, "search does not resolve franchises")
}

func TestExternalWithoutUpstream(t *testing.T) {
	ext := NewExternal(nil, nil)

	_, err := ext.Search(context.Background(), "witcher")
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)

	_, err = ext.Details(context.Background(), 1942)
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	assert.Contains(t, err.Error(), errNotConfigured.Error())

	// the cause records where it was created
	assert.Contains(t, fmt.Sprintf("%+v", errNotConfigured), "external.go")
}

func TestImport(t *testing.T) {
	db := setupTestDB(t)
	ext := NewExternal(newFakeUpstream(), NewRepository(db))
	ctx := context.Background()

	game, err := ext.Import(ctx, 1942)
	require.NoError(t, err)
	assert.Equal(t, "The Witcher 3: Wild Hunt", game.Title)
	assert.Equal(t, "The Witcher", game.Franchise)
	assert.Equal(t, "CD Projekt RED", game.Studio)
	require.Len(t, game.Genres, 1)
	assert.Equal(t, "Role-playing (RPG)", game.Genres[0].Name)

	_, err = ext.Import(ctx, 1942)
	ce, ok := apperr.AsConflict(err)
	require.True(t, ok)
	assert.Equal(t, game.ID, ce.ExistingID)

	_, err = ext.Import(ctx, 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestImportUpstreamFailure(t *testing.T) {
	ext := NewExternal(&failingUpstream{}, NewRepository(setupTestDB(t)))

	_, err := ext.Import(context.Background(), 1942)
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
}

type failingUpstream struct{ fakeLookup }

func (failingUpstream) SearchGames(context.Context, string, int) ([]igdb.Game, error) {
	return nil, apperr.Upstream(errors.New("503"), "search")
}

func (failingUpstream) GameDetails(context.Context, int64) (*igdb.Game, error) {
	return nil, apperr.Upstream(errors.New("503"), "details")
}
