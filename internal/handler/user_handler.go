package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kestrel/backend/internal/membership"
	"kestrel/backend/internal/models"
)

// region --- DTOs ---

// GameSummary is the short form of a game used in user lists.
type GameSummary struct {
	ID          uint   `json:"id" example:"1"`
	Title       string `json:"title" example:"Hades"`
	CoverArtURL string `json:"cover_art_url"`
}

// PublicUserResponse defines the structure for a user's public profile.
type PublicUserResponse struct {
	ID         uint          `json:"id" example:"1"`
	Username   string        `json:"username" example:"testuser"`
	OwnedGames []GameSummary `json:"owned_games"`
	NowPlaying []GameSummary `json:"now_playing"`
}

// PrivateUserResponse defines the structure for the authenticated user's own profile.
type PrivateUserResponse struct {
	ID        uint      `json:"id" example:"1"`
	SubjectID string    `json:"subject_id" example:"auth0|123"`
	Username  string    `json:"username" example:"testuser"`
	Email     string    `json:"email" example:"test@example.com"`
	CreatedAt time.Time `json:"created_at"`
}

func newGameSummaries(games []models.Game) []GameSummary {
	out := make([]GameSummary, 0, len(games))
	for _, g := range games {
		out = append(out, GameSummary{ID: g.ID, Title: g.Title, CoverArtURL: g.CoverArtURL})
	}

	return out
}

func buildPrivateUserResponse(user models.User) PrivateUserResponse {
	return PrivateUserResponse{
		ID:        user.ID,
		SubjectID: user.SubjectID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}

// endregion

// GetMe godoc
// @Summary      Get current user's profile
// @Description  Resolves the bearer token to a user, creating the user on first sight.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  PrivateUserResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /users/me [get]
func (h *Handler) GetMe(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, buildPrivateUserResponse(*user))
}

// GetUserByID godoc
// @Summary      Get a user's public profile
// @Description  Display name with owned and now-playing games.
// @Tags         users
// @Produce      json
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  PublicUserResponse
// @Failure      404  {object}  ErrorResponse "User not found"
// @Router       /users/{id} [get]
func (h *Handler) GetUserByID(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()

	user, err := h.gate.GetUser(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	owned, err := h.membership.List(ctx, membership.Owned, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	playing, err := h.membership.List(ctx, membership.NowPlaying, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, PublicUserResponse{
		ID:         user.ID,
		Username:   user.Username,
		OwnedGames: newGameSummaries(owned),
		NowPlaying: newGameSummaries(playing),
	})
}
