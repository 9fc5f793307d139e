package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"kestrel/backend/internal/auth"
	"kestrel/backend/internal/catalog"
	"kestrel/backend/internal/comment"
	"kestrel/backend/internal/database"
	"kestrel/backend/internal/hub"
	"kestrel/backend/internal/membership"
	"kestrel/backend/internal/models"
	"kestrel/backend/pkg/jwt"
)

const testSecret = "handler-test-secret"

type testServer struct {
	db     *gorm.DB
	hub    *hub.Hub
	router *gin.Engine
}

func setupServer(t *testing.T) *testServer {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db, err := database.OpenMemory()
	require.NoError(t, err)

	repo := catalog.NewRepository(db)
	live := hub.New()
	h := New(Deps{
		Catalog:    repo,
		External:   catalog.NewExternal(nil, repo),
		Membership: membership.NewService(db),
		Comments:   comment.NewService(db, live),
		Gate:       auth.NewGate(db),
		Hub:        live,
		Verifier:   auth.NewHMACVerifier(testSecret),
	})

	r := gin.New()
	h.RegisterRoutes(r)

	return &testServer{db: db, hub: live, router: r}
}

func bearer(t *testing.T, subject string, perms ...string) string {
	t.Helper()

	raw, err := jwt.GenerateToken(testSecret, subject, "tester", "tester@example.com", perms, time.Hour)
	require.NoError(t, err)

	return "Bearer " + raw
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (s *testServer) createGame(t *testing.T, token string, igdbID int64, name string) GameResponse {
	t.Helper()

	w := s.do(http.MethodPost, "/api/games", token, map[string]interface{}{
		"id":     igdbID,
		"name":   name,
		"genres": []map[string]string{{"name": "RPG"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var game GameResponse
	decode(t, w, &game)

	return game
}

func TestCreateGameConflict(t *testing.T) {
	s := setupServer(t)
	token := bearer(t, "auth0|1")

	w := s.do(http.MethodPost, "/api/games", token, map[string]interface{}{
		"id":                 54321,
		"name":               "New Game",
		"summary":            "desc",
		"first_release_date": 1431993600,
		"studio":             "Studio A",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var game GameResponse
	decode(t, w, &game)
	assert.Equal(t, "New Game", game.Title)
	assert.Equal(t, "Studio A", game.Studio)
	require.NotNil(t, game.ReleaseDate)
	assert.Equal(t, "2015-05-19", *game.ReleaseDate)

	w = s.do(http.MethodPost, "/api/games", token, map[string]interface{}{"id": 54321, "name": "New Game"})
	require.Equal(t, http.StatusConflict, w.Code)

	var conflict ConflictResponse
	decode(t, w, &conflict)
	assert.Equal(t, game.ID, conflict.Game)
}

func TestCreateGameRequiresAuthAndBody(t *testing.T) {
	s := setupServer(t)

	w := s.do(http.MethodPost, "/api/games", "", map[string]interface{}{"id": 1, "name": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/games", bearer(t, "auth0|1"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/games", bearer(t, "auth0|1"), map[string]interface{}{"name": "no id"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/games", bearer(t, "auth0|1"), map[string]interface{}{
		"id":   2,
		"name": strings.Repeat("n", 101),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListGames(t *testing.T) {
	s := setupServer(t)
	token := bearer(t, "auth0|1")
	s.createGame(t, token, 1, "Persona 5")
	s.createGame(t, token, 2, "Hades")

	w := s.do(http.MethodGet, "/api/games?q=pers&limit=5", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page PaginatedGameResponse
	decode(t, w, &page)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Persona 5", page.Data[0].Title)
	assert.Equal(t, int64(1), page.Meta.TotalItems)
	assert.Equal(t, 5, page.Meta.PageSize)
}

func TestGameDetailWithCommentsAndStatus(t *testing.T) {
	s := setupServer(t)
	token := bearer(t, "auth0|1")
	game := s.createGame(t, token, 1942, "The Witcher 3")
	path := fmt.Sprintf("/api/games/%d", game.ID)

	w := s.do(http.MethodPost, path+"/comments", token, CommentInput{Content: "first"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(http.MethodPost, path+"/comments", token, CommentInput{Content: "second"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, path+"/comments", token, CommentInput{Content: " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, fmt.Sprintf("/api/users/library/%d", game.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var anon GameDetailResponse
	decode(t, w, &anon)
	require.Len(t, anon.Comments, 2)
	assert.Equal(t, "first", anon.Comments[0].Content)
	assert.Equal(t, "tester", anon.Comments[0].Author.Username)
	assert.Nil(t, anon.Status)

	w = s.do(http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var mine GameDetailResponse
	decode(t, w, &mine)
	require.NotNil(t, mine.Status)
	assert.True(t, mine.Status.InLibrary)
	assert.False(t, mine.Status.InNowPlaying)

	w = s.do(http.MethodGet, path+"/comments", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var comments []comment.View
	decode(t, w, &comments)
	assert.Len(t, comments, 2)
}

func TestCommentOnMissingGame(t *testing.T) {
	s := setupServer(t)

	w := s.do(http.MethodPost, "/api/games/999/comments", bearer(t, "auth0|1"), CommentInput{Content: "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	var n int64
	require.NoError(t, s.db.Model(&models.Comment{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestLibraryFlow(t *testing.T) {
	s := setupServer(t)
	token := bearer(t, "auth0|1")
	game := s.createGame(t, token, 1, "Hades")
	lib := fmt.Sprintf("/api/users/library/%d", game.ID)

	var resp map[string]interface{}

	w := s.do(http.MethodPost, lib, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, true, resp["in_library"])
	assert.Equal(t, "Game added to library", resp["message"])

	w = s.do(http.MethodPost, lib, token, nil)
	decode(t, w, &resp)
	assert.Equal(t, "Game already in library", resp["message"])

	w = s.do(http.MethodGet, "/api/users/library", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var games []GameSummary
	decode(t, w, &games)
	require.Len(t, games, 1)
	assert.Equal(t, "Hades", games[0].Title)

	w = s.do(http.MethodPost, lib+"/toggle", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = map[string]interface{}{}
	decode(t, w, &resp)
	assert.Equal(t, false, resp["in_library"])

	w = s.do(http.MethodDelete, lib, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, "Game not in library", resp["message"])

	w = s.do(http.MethodPost, fmt.Sprintf("/api/users/now_playing/%d", game.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = map[string]interface{}{}
	decode(t, w, &resp)
	assert.Equal(t, true, resp["in_now_playing"])
	assert.NotContains(t, resp, "in_library")

	w = s.do(http.MethodGet, fmt.Sprintf("/api/users/game_status/%d", game.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var st GameStatusResponse
	decode(t, w, &st)
	assert.Equal(t, GameStatusResponse{InLibrary: false, InNowPlaying: true}, st)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/users/library/999", token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/users/library/abc", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/users/library", "", nil).Code)
}

func TestUpdateGamePermissions(t *testing.T) {
	s := setupServer(t)
	game := s.createGame(t, bearer(t, "auth0|1"), 1, "Old")
	path := fmt.Sprintf("/api/games/%d", game.ID)

	w := s.do(http.MethodPatch, path, bearer(t, "auth0|1"), map[string]string{"title": "New"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	editor := bearer(t, "auth0|2", PermUpdateGames)

	w = s.do(http.MethodPatch, path, editor, map[string]interface{}{"title": "New", "genres": []string{"Strategy"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated GameResponse
	decode(t, w, &updated)
	assert.Equal(t, "New", updated.Title)
	require.Len(t, updated.Genres, 1)
	assert.Equal(t, "Strategy", updated.Genres[0].Name)

	w = s.do(http.MethodPatch, path, editor, map[string]string{"release_date": "not-a-date"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPatch, "/api/games/999", editor, map[string]string{"title": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteGameCascade(t *testing.T) {
	s := setupServer(t)
	alice := bearer(t, "auth0|a")
	bob := bearer(t, "auth0|b")
	game := s.createGame(t, alice, 1, "Doomed")
	path := fmt.Sprintf("/api/games/%d", game.ID)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, fmt.Sprintf("/api/users/library/%d", game.ID), alice, nil).Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, fmt.Sprintf("/api/users/now_playing/%d", game.ID), bob, nil).Code)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, path+"/comments", alice, CommentInput{Content: "a"}).Code)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, path+"/comments", bob, CommentInput{Content: "b"}).Code)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, path, alice, nil).Code)

	w := s.do(http.MethodDelete, path, bearer(t, "auth0|admin", PermDeleteGames), nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, path, "", nil).Code)

	var games []GameSummary
	decode(t, s.do(http.MethodGet, "/api/users/library", alice, nil), &games)
	assert.Empty(t, games)
	decode(t, s.do(http.MethodGet, "/api/users/now_playing", bob, nil), &games)
	assert.Empty(t, games)
}

func TestTopGames(t *testing.T) {
	s := setupServer(t)
	a, b := bearer(t, "auth0|a"), bearer(t, "auth0|b")
	first := s.createGame(t, a, 1, "First")
	second := s.createGame(t, a, 2, "Second")

	for _, tok := range []string{a, b} {
		require.Equal(t, http.StatusOK, s.do(http.MethodPost, fmt.Sprintf("/api/users/now_playing/%d", second.ID), tok, nil).Code)
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, fmt.Sprintf("/api/users/now_playing/%d", first.ID), a, nil).Code)

	var top []TopGameResponse
	decode(t, s.do(http.MethodGet, "/api/top-games", "", nil), &top)
	require.Len(t, top, 2)
	assert.Equal(t, second.ID, top[0].ID)
	assert.Equal(t, int64(2), top[0].PlayerCount)

	decode(t, s.do(http.MethodGet, "/api/top-games?limit=1", "", nil), &top)
	assert.Len(t, top, 1)
}

func TestGenres(t *testing.T) {
	s := setupServer(t)
	curator := bearer(t, "auth0|c", PermCreateGenres)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/genres", bearer(t, "auth0|1"), GenreInput{Name: "RPG"}).Code)

	w := s.do(http.MethodPost, "/api/genres", curator, GenreInput{Name: "RPG"})
	require.Equal(t, http.StatusCreated, w.Code)

	var genre GenreResponse
	decode(t, w, &genre)

	w = s.do(http.MethodPost, "/api/genres", curator, GenreInput{Name: "RPG"})
	require.Equal(t, http.StatusConflict, w.Code)

	var conflict ConflictResponse
	decode(t, w, &conflict)
	assert.Equal(t, genre.ID, conflict.Genre)

	var genres []GenreResponse
	decode(t, s.do(http.MethodGet, "/api/genres", "", nil), &genres)
	assert.Len(t, genres, 1)
}

func TestSearchWithoutUpstream(t *testing.T) {
	s := setupServer(t)

	w := s.do(http.MethodGet, "/api/search-games?query=ab", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = s.do(http.MethodGet, "/api/search-games?query=witcher", "", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = s.do(http.MethodGet, "/api/search-games-details/1942", "", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestUsers(t *testing.T) {
	s := setupServer(t)
	token := bearer(t, "auth0|999")

	w := s.do(http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var me PrivateUserResponse
	decode(t, w, &me)
	assert.Equal(t, "auth0|999", me.SubjectID)
	assert.Equal(t, "tester", me.Username)

	w = s.do(http.MethodGet, "/api/users/me", token, nil)
	var again PrivateUserResponse
	decode(t, w, &again)
	assert.Equal(t, me.ID, again.ID)

	game := s.createGame(t, token, 7, "Celeste")
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, fmt.Sprintf("/api/users/library/%d", game.ID), token, nil).Code)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/users/%d", me.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var profile PublicUserResponse
	decode(t, w, &profile)
	require.Len(t, profile.OwnedGames, 1)
	assert.Equal(t, "Celeste", profile.OwnedGames[0].Title)
	assert.Empty(t, profile.NowPlaying)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/users/4040", "", nil).Code)
}

func TestCommentStream(t *testing.T) {
	s := setupServer(t)
	token := bearer(t, "auth0|1")
	game := s.createGame(t, token, 1, "Tunic")

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lines := make(chan string, 8)

	go func() {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/games/%d/comments/stream", srv.URL, game.ID), nil)

		resp, err := srv.Client().Do(req)
		if err != nil {
			return
		}
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	require.Eventually(t, func() bool { return s.hub.Subscribers(game.ID) == 1 }, 2*time.Second, 10*time.Millisecond)

	w := s.do(http.MethodPost, fmt.Sprintf("/api/games/%d/comments", game.ID), token, CommentInput{Content: "live!"})
	require.Equal(t, http.StatusCreated, w.Code)

	var got []string

	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case line := <-lines:
			if line != "" {
				got = append(got, line)
			}
		case <-timeout:
			t.Fatalf("no event received, got %v", got)
		}
	}

	assert.Equal(t, "event:comment.created", got[0])
	assert.True(t, strings.HasPrefix(got[1], "data:"))
	assert.Contains(t, got[1], "live!")

	cancel()
	require.Eventually(t, func() bool { return s.hub.Subscribers(game.ID) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestShutdownEndsCommentStream(t *testing.T) {
	s := setupServer(t)
	token := bearer(t, "auth0|1")
	game := s.createGame(t, token, 1, "Outer Wilds")

	srv := httptest.NewUnstartedServer(s.router)
	srv.Config.RegisterOnShutdown(s.hub.Close)
	srv.Start()
	defer srv.Close()

	done := make(chan struct{})

	go func() {
		defer close(done)

		resp, err := srv.Client().Get(fmt.Sprintf("%s/api/games/%d/comments/stream", srv.URL, game.ID))
		if err != nil {
			return
		}
		defer resp.Body.Close()

		_, _ = io.Copy(io.Discard, resp.Body)
	}()

	require.Eventually(t, func() bool { return s.hub.Subscribers(game.ID) == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, srv.Config.Shutdown(ctx))
	assert.Zero(t, s.hub.Subscribers(game.ID))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream still open after shutdown")
	}
}

func TestCommentStreamMissingGame(t *testing.T) {
	s := setupServer(t)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/games/999/comments/stream", "", nil).Code)
}
