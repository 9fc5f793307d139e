package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"kestrel/backend/internal/membership"
)

// relationView names a membership relation in responses.
type relationView struct {
	rel   membership.Relation
	label string
}

var (
	libraryView    = relationView{rel: membership.Owned, label: "library"}
	nowPlayingView = relationView{rel: membership.NowPlaying, label: "Now Playing"}
)

// MembershipResponse reports the state of a game in a user list after a change.
type MembershipResponse struct {
	Message      string `json:"message" example:"Game added to library"`
	InLibrary    *bool  `json:"in_library,omitempty"`
	InNowPlaying *bool  `json:"in_now_playing,omitempty"`
}

func newMembershipResponse(v relationView, res membership.Result) MembershipResponse {
	present := res.Present
	resp := MembershipResponse{Message: membershipMessage(v, res)}

	if v.rel == membership.NowPlaying {
		resp.InNowPlaying = &present
	} else {
		resp.InLibrary = &present
	}

	return resp
}

type membershipOp func(ctx context.Context, rel membership.Relation, userID, gameID uint) (membership.Result, error)

func (h *Handler) listRelation(c *gin.Context, v relationView) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	games, err := h.membership.List(c.Request.Context(), v.rel, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newGameSummaries(games))
}

func (h *Handler) changeRelation(c *gin.Context, v relationView, op membershipOp) {
	gameID, ok := idParam(c, "game_id")
	if !ok {
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	res, err := op(c.Request.Context(), v.rel, user.ID, gameID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newMembershipResponse(v, res))
}

func membershipMessage(v relationView, res membership.Result) string {
	switch {
	case res.Present && res.Changed:
		return "Game added to " + v.label
	case res.Present:
		return "Game already in " + v.label
	case res.Changed:
		return "Game removed from " + v.label
	default:
		return "Game not in " + v.label
	}
}

// GetLibrary godoc
// @Summary      List owned games
// @Tags         library
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} GameSummary
// @Failure      401 {object} ErrorResponse
// @Router       /users/library [get]
func (h *Handler) GetLibrary(c *gin.Context) { h.listRelation(c, libraryView) }

// AddToLibrary godoc
// @Summary      Add a game to the library
// @Description  Idempotent: adding an owned game again reports it as already present.
// @Tags         library
// @Produce      json
// @Security     BearerAuth
// @Param        game_id path int true "Game ID"
// @Success      200 {object} MembershipResponse
// @Failure      404 {object} ErrorResponse "Game not found"
// @Router       /users/library/{game_id} [post]
func (h *Handler) AddToLibrary(c *gin.Context) { h.changeRelation(c, libraryView, h.membership.Add) }

// RemoveFromLibrary godoc
// @Summary      Remove a game from the library
// @Tags         library
// @Produce      json
// @Security     BearerAuth
// @Param        game_id path int true "Game ID"
// @Success      200 {object} MembershipResponse
// @Failure      404 {object} ErrorResponse "Game not found"
// @Router       /users/library/{game_id} [delete]
func (h *Handler) RemoveFromLibrary(c *gin.Context) {
	h.changeRelation(c, libraryView, h.membership.Remove)
}

// ToggleLibrary godoc
// @Summary      Toggle a game in the library
// @Tags         library
// @Produce      json
// @Security     BearerAuth
// @Param        game_id path int true "Game ID"
// @Success      200 {object} MembershipResponse
// @Failure      404 {object} ErrorResponse "Game not found"
// @Router       /users/library/{game_id}/toggle [post]
func (h *Handler) ToggleLibrary(c *gin.Context) {
	h.changeRelation(c, libraryView, h.membership.Toggle)
}

// GetNowPlaying godoc
// @Summary      List games being played
// @Tags         now-playing
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} GameSummary
// @Failure      401 {object} ErrorResponse
// @Router       /users/now_playing [get]
func (h *Handler) GetNowPlaying(c *gin.Context) { h.listRelation(c, nowPlayingView) }

// AddToNowPlaying godoc
// @Summary      Mark a game as being played
// @Tags         now-playing
// @Produce      json
// @Security     BearerAuth
// @Param        game_id path int true "Game ID"
// @Success      200 {object} MembershipResponse
// @Failure      404 {object} ErrorResponse "Game not found"
// @Router       /users/now_playing/{game_id} [post]
func (h *Handler) AddToNowPlaying(c *gin.Context) {
	h.changeRelation(c, nowPlayingView, h.membership.Add)
}

// RemoveFromNowPlaying godoc
// @Summary      Stop playing a game
// @Tags         now-playing
// @Produce      json
// @Security     BearerAuth
// @Param        game_id path int true "Game ID"
// @Success      200 {object} MembershipResponse
// @Failure      404 {object} ErrorResponse "Game not found"
// @Router       /users/now_playing/{game_id} [delete]
func (h *Handler) RemoveFromNowPlaying(c *gin.Context) {
	h.changeRelation(c, nowPlayingView, h.membership.Remove)
}

// ToggleNowPlaying godoc
// @Summary      Toggle a game in Now Playing
// @Tags         now-playing
// @Produce      json
// @Security     BearerAuth
// @Param        game_id path int true "Game ID"
// @Success      200 {object} MembershipResponse
// @Failure      404 {object} ErrorResponse "Game not found"
// @Router       /users/now_playing/{game_id}/toggle [post]
func (h *Handler) ToggleNowPlaying(c *gin.Context) {
	h.changeRelation(c, nowPlayingView, h.membership.Toggle)
}

// GetGameStatus godoc
// @Summary      Library status of a game
// @Description  Whether the caller owns the game and whether they are playing it now.
// @Tags         library
// @Produce      json
// @Security     BearerAuth
// @Param        game_id path int true "Game ID"
// @Success      200 {object} GameStatusResponse
// @Failure      404 {object} ErrorResponse "Game not found"
// @Router       /users/game_status/{game_id} [get]
func (h *Handler) GetGameStatus(c *gin.Context) {
	gameID, ok := idParam(c, "game_id")
	if !ok {
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	st, err := h.membership.Status(c.Request.Context(), user.ID, gameID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newStatusResponse(st))
}
