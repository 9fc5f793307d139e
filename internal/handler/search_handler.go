package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// SearchGames godoc
// @Summary      Search IGDB
// @Description  Passes the query to IGDB. Queries shorter than three characters return an empty list.
// @Tags         search
// @Produce      json
// @Param        query query string true "Search text"
// @Success      200 {array}  catalog.Record
// @Failure      502 {object} ErrorResponse
// @Router       /search-games [get]
func (h *Handler) SearchGames(c *gin.Context) {
	records, err := h.external.Search(c.Request.Context(), c.Query("query"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, records)
}

// SearchGameDetails godoc
// @Summary      IGDB game details
// @Description  One IGDB game with franchise and studio names resolved.
// @Tags         search
// @Produce      json
// @Param        id path int true "IGDB game ID"
// @Success      200 {object} catalog.Record
// @Failure      404 {object} ErrorResponse "Game not found"
// @Failure      502 {object} ErrorResponse
// @Router       /search-games-details/{id} [get]
func (h *Handler) SearchGameDetails(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}

	rec, err := h.external.Details(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}
