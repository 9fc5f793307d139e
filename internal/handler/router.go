package handler

import (
	"github.com/gin-gonic/gin"

	"kestrel/backend/internal/auth"
)

// Permissions granted by the identity provider for catalog administration.
const (
	PermUpdateGames  = "update:games"
	PermDeleteGames  = "delete:games"
	PermCreateGenres = "create:genres"
)

// RegisterRoutes mounts the API under r.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	requireUser := auth.AuthMiddleware(h.verifier)
	optionalUser := auth.OptionalAuthMiddleware(h.verifier)

	api := r.Group("/api")

	games := api.Group("/games")
	{
		games.GET("", h.ListGames)
		games.POST("", requireUser, h.CreateGame)
		games.POST("/import/:igdb_id", requireUser, h.ImportGame)
		games.GET("/:id", optionalUser, h.GetGameByID)
		games.PATCH("/:id", requireUser, auth.RequirePermission(PermUpdateGames), h.UpdateGame)
		games.DELETE("/:id", requireUser, auth.RequirePermission(PermDeleteGames), h.DeleteGame)

		games.GET("/:id/comments", h.GetComments)
		games.POST("/:id/comments", requireUser, h.AddComment)
		games.GET("/:id/comments/stream", h.StreamComments)
	}

	genres := api.Group("/genres")
	{
		genres.GET("", h.GetGenres)
		genres.POST("", requireUser, auth.RequirePermission(PermCreateGenres), h.CreateGenre)
	}

	api.GET("/top-games", h.TopGames)
	api.GET("/search-games", h.SearchGames)
	api.GET("/search-games-details/:id", h.SearchGameDetails)

	users := api.Group("/users")
	{
		users.GET("/me", requireUser, h.GetMe)
		users.GET("/:id", h.GetUserByID)

		library := users.Group("/library", requireUser)
		{
			library.GET("", h.GetLibrary)
			library.POST("/:game_id", h.AddToLibrary)
			library.DELETE("/:game_id", h.RemoveFromLibrary)
			library.POST("/:game_id/toggle", h.ToggleLibrary)
		}

		nowPlaying := users.Group("/now_playing", requireUser)
		{
			nowPlaying.GET("", h.GetNowPlaying)
			nowPlaying.POST("/:game_id", h.AddToNowPlaying)
			nowPlaying.DELETE("/:game_id", h.RemoveFromNowPlaying)
			nowPlaying.POST("/:game_id/toggle", h.ToggleNowPlaying)
		}

		users.GET("/game_status/:game_id", requireUser, h.GetGameStatus)
	}
}
