package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"kestrel/backend/internal/catalog"
	"kestrel/backend/internal/comment"
	"kestrel/backend/internal/membership"
	"kestrel/backend/internal/models"
)

// region --- DTOs ---

// GameResponse is a game as stored in the local catalog.
type GameResponse struct {
	ID          uint            `json:"id" example:"1"`
	IGDBID      *int64          `json:"igdb_id" example:"1942"`
	Title       string          `json:"title" example:"The Witcher 3: Wild Hunt"`
	Description string          `json:"description"`
	CoverArtURL string          `json:"cover_art_url"`
	Franchise   string          `json:"franchise" example:"The Witcher"`
	Studio      string          `json:"studio" example:"CD Projekt RED"`
	ReleaseDate *string         `json:"release_date" example:"2015-05-19"`
	Genres      []GenreResponse `json:"genres"`
}

// GameStatusResponse is the caller's membership for one game.
type GameStatusResponse struct {
	InLibrary    bool `json:"in_library"`
	InNowPlaying bool `json:"in_now_playing"`
}

// GameDetailResponse is a game with its comments and, for authenticated callers, their status.
type GameDetailResponse struct {
	GameResponse
	Comments []comment.View      `json:"comments"`
	Status   *GameStatusResponse `json:"status,omitempty"`
}

// TopGameResponse is a game with its number of current players.
type TopGameResponse struct {
	GameResponse
	PlayerCount int64 `json:"player_count" example:"3"`
}

// PaginatedGameResponse defines the structure for a paginated list of games.
type PaginatedGameResponse struct {
	Data []GameResponse `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

func newGameResponse(game models.Game) GameResponse {
	genres := make([]GenreResponse, 0, len(game.Genres))
	for _, g := range game.Genres {
		if g != nil {
			genres = append(genres, newGenreResponse(*g))
		}
	}

	var release *string
	if game.ReleaseDate != nil {
		s := game.ReleaseDate.Format(time.DateOnly)
		release = &s
	}

	return GameResponse{
		ID:          game.ID,
		IGDBID:      game.IGDBID,
		Title:       game.Title,
		Description: game.Description,
		CoverArtURL: game.CoverArtURL,
		Franchise:   game.Franchise,
		Studio:      game.Studio,
		ReleaseDate: release,
		Genres:      genres,
	}
}

func newStatusResponse(st membership.Status) GameStatusResponse {
	return GameStatusResponse{InLibrary: st.Owned, InNowPlaying: st.NowPlaying}
}

// endregion

// region --- Catalog Handlers ---

// ListGames godoc
// @Summary      Get a list of games
// @Description  Retrieves a paginated list of games, with optional filtering by title and genre.
// @Tags         games
// @Produce      json
// @Param        q      query     string  false  "Case-insensitive title search"
// @Param        genre  query     string  false  "Genre name"
// @Param        page   query     int     false  "Page number" default(1)
// @Param        limit  query     int     false  "Items per page" default(10)
// @Success      200 {object} PaginatedGameResponse
// @Router       /games [get]
func (h *Handler) ListGames(c *gin.Context) {
	page, limit := pageParams(queryInt(c, "page", 1), queryInt(c, "limit", 10))

	games, total, err := h.catalog.ListGames(c.Request.Context(), catalog.ListOptions{
		Query: c.Query("q"),
		Genre: c.Query("genre"),
		Page:  page,
		Limit: limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]GameResponse, 0, len(games))
	for _, g := range games {
		response = append(response, newGameResponse(g))
	}

	c.JSON(http.StatusOK, NewPaginatedResponse(response, total, page, limit))
}

// CreateGame godoc
// @Summary      Add a game to the catalog
// @Description  Ingests an external catalog record. Re-submitting an already known IGDB id returns 409 with the existing id.
// @Tags         games
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body catalog.Record true "External catalog record"
// @Success      201  {object}  GameResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      409  {object}  ConflictResponse "Game already exists"
// @Router       /games [post]
func (h *Handler) CreateGame(c *gin.Context) {
	var input catalog.Record
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	game, err := h.catalog.FindOrCreateGame(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newGameResponse(*game))
}

// ImportGame godoc
// @Summary      Import a game from IGDB
// @Description  Fetches the IGDB record, resolves franchise and studio names, and ingests it.
// @Tags         games
// @Produce      json
// @Security     BearerAuth
// @Param        igdb_id path int true "IGDB game ID"
// @Success      201  {object}  GameResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Unknown IGDB id"
// @Failure      409  {object}  ConflictResponse "Game already exists"
// @Failure      502  {object}  ErrorResponse
// @Router       /games/import/{igdb_id} [post]
func (h *Handler) ImportGame(c *gin.Context) {
	igdbID, err := strconv.ParseInt(c.Param("igdb_id"), 10, 64)
	if err != nil || igdbID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid igdb_id"})
		return
	}

	game, err := h.external.Import(c.Request.Context(), igdbID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newGameResponse(*game))
}

// GetGameByID godoc
// @Summary      Get a single game by ID
// @Description  Retrieves a game with its genres and comments. With a bearer token the caller's library status is included.
// @Tags         games
// @Produce      json
// @Param        id path int true "Game ID"
// @Success      200 {object} GameDetailResponse
// @Failure      404 {object} ErrorResponse "Game not found"
// @Router       /games/{id} [get]
func (h *Handler) GetGameByID(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()

	game, err := h.catalog.GetGame(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	comments, err := h.comments.ListForGame(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	response := GameDetailResponse{GameResponse: newGameResponse(*game), Comments: comments}

	if user := h.optionalUser(c); user != nil {
		st, err := h.membership.StatusIfExists(ctx, user.ID, id)
		if err != nil {
			respondError(c, err)
			return
		}

		status := newStatusResponse(st)
		response.Status = &status
	}

	c.JSON(http.StatusOK, response)
}

// UpdateGame godoc
// @Summary      Update a game
// @Description  Applies the supplied fields only. A genres list replaces the game's genres.
// @Tags         games
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int            true  "Game ID"
// @Param        input body      catalog.Patch  true  "Fields to change"
// @Success      200   {object}  GameResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse "Permission update:games required"
// @Failure      404   {object}  ErrorResponse "Game not found"
// @Router       /games/{id} [patch]
func (h *Handler) UpdateGame(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var input catalog.Patch
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	game, err := h.catalog.UpdateGame(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newGameResponse(*game))
}

// DeleteGame godoc
// @Summary      Delete a game
// @Description  Removes the game from every library and now-playing list, deletes its comments, then the game.
// @Tags         games
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Game ID"
// @Success      200 {object} MessageResponse
// @Failure      403 {object} ErrorResponse "Permission delete:games required"
// @Failure      404 {object} ErrorResponse "Game not found"
// @Router       /games/{id} [delete]
func (h *Handler) DeleteGame(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.catalog.DeleteGame(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Game deleted"})
}

// TopGames godoc
// @Summary      Most played games
// @Description  Games ranked by how many users are currently playing them.
// @Tags         games
// @Produce      json
// @Param        limit query int false "Number of games" default(10)
// @Success      200 {array} TopGameResponse
// @Router       /top-games [get]
func (h *Handler) TopGames(c *gin.Context) {
	limit := queryInt(c, "limit", 10)
	if limit < 1 {
		limit = 10
	}

	if limit > 100 {
		limit = 100
	}

	top, err := h.catalog.TopGames(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]TopGameResponse, 0, len(top))
	for _, t := range top {
		response = append(response, TopGameResponse{GameResponse: newGameResponse(t.Game), PlayerCount: t.PlayerCount})
	}

	c.JSON(http.StatusOK, response)
}

// endregion
