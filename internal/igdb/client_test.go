package igdb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kestrel/backend/internal/apperr"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	return b, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

type fakeIGDB struct {
	t        *testing.T
	calls    atomic.Int32
	bodies   sync.Map
	status   int
	response map[string]string
}

func newFakeIGDB(t *testing.T, response map[string]string) (*fakeIGDB, *Client) {
	t.Helper()

	f := &fakeIGDB{t: t, status: http.StatusOK, response: response}

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "kestrel-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "kestrel-secret", r.PostForm.Get("client_secret"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"app-token","token_type":"bearer","expires_in":3600}`)
	}))
	t.Cleanup(tokenSrv.Close)

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		assert.Equal(t, "kestrel-id", r.Header.Get("Client-ID"))
		assert.Equal(t, "Bearer app-token", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		endpoint := r.URL.Path[1:]
		f.bodies.Store(endpoint, string(body))

		if f.status != http.StatusOK {
			w.WriteHeader(f.status)
			_, _ = io.WriteString(w, `{"message":"boom"}`)
			return
		}

		resp, ok := f.response[endpoint]
		if !ok {
			resp = "[]"
		}
		_, _ = io.WriteString(w, resp)
	}))
	t.Cleanup(apiSrv.Close)

	c := New(context.Background(), Config{
		ClientID:     "kestrel-id",
		ClientSecret: "kestrel-secret",
		BaseURL:      apiSrv.URL,
		TokenURL:     tokenSrv.URL,
		RateLimit:    1000,
		Cache:        &memCache{data: map[string][]byte{}},
		CacheTTL:     time.Minute,
	})

	return f, c
}

func (f *fakeIGDB) body(endpoint string) string {
	v, _ := f.bodies.Load(endpoint)
	s, _ := v.(string)
	return s
}

func TestSearchGames(t *testing.T) {
	f, c := newFakeIGDB(t, map[string]string{
		"games": `[{"id":1942,"name":"The Witcher 3","summary":"Geralt","first_release_date":1431993600,"cover":{"id":89386,"image_id":"co1wyy"}}]`,
	})

	games, err := c.SearchGames(context.Background(), `Witcher "3"`, 0)
	require.NoError(t, err)
	require.Len(t, games, 1)

	assert.Equal(t, int64(1942), games[0].ID)
	assert.Equal(t, "co1wyy", games[0].Cover.ImageID)
	require.NotNil(t, games[0].FirstReleaseDate)
	assert.Equal(t, int64(1431993600), *games[0].FirstReleaseDate)
	assert.Equal(t,
		`search "Witcher \"3\""; fields id,name,summary,first_release_date,cover.image_id; limit 30;`,
		f.body("games"))

	// second identical query is served from cache
	_, err = c.SearchGames(context.Background(), `Witcher "3"`, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestGameDetailsNotFound(t *testing.T) {
	_, c := newFakeIGDB(t, map[string]string{"games": `[]`})

	_, err := c.GameDetails(context.Background(), 5)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpstreamFailure(t *testing.T) {
	f, c := newFakeIGDB(t, nil)
	f.status = http.StatusInternalServerError

	_, err := c.GameDetails(context.Background(), 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUpstreamUnavailable))
	assert.False(t, errors.Is(err, apperr.ErrNotFound))
}

func TestSecondaryLookups(t *testing.T) {
	f, c := newFakeIGDB(t, map[string]string{
		"franchises":         `[{"id":452,"name":"The Witcher"},{"id":453}]`,
		"involved_companies": `[{"id":10,"developer":true},{"id":11,"developer":false},{"id":12}]`,
	})

	names, err := c.FranchiseNames(context.Background(), []int64{452, 453})
	require.NoError(t, err)
	assert.Equal(t, []string{"The Witcher"}, names)
	assert.Equal(t, "fields name; where id = (452,453);", f.body("franchises"))

	ids, err := c.DeveloperIDs(context.Background(), []int64{10, 11, 12})
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, ids)

	none, err := c.FranchiseNames(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCacheKeyDependsOnBody(t *testing.T) {
	assert.NotEqual(t, cacheKey("games", "a"), cacheKey("games", "b"))
	assert.NotEqual(t, cacheKey("games", "a"), cacheKey("franchises", "a"))
	assert.Contains(t, cacheKey("games", "a"), "igdb:games:")
}
