package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kestrel/backend/internal/models"
)

// GenreInput is the body of a genre creation.
type GenreInput struct {
	Name        string `json:"name" binding:"required" example:"RPG"`
	Description string `json:"description" example:"Role-playing games"`
}

// GenreResponse is a genre.
type GenreResponse struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func newGenreResponse(genre models.Genre) GenreResponse {
	return GenreResponse{
		ID:          genre.ID,
		Name:        genre.Name,
		Description: genre.Description,
		CreatedAt:   genre.CreatedAt,
	}
}

// CreateGenre godoc
// @Summary      Create a new genre
// @Description  Creates a genre. Names are unique.
// @Tags         genres
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body GenreInput true "Genre Info"
// @Success      201  {object}  GenreResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Permission create:genres required"
// @Failure      409  {object}  ConflictResponse "Genre already exists"
// @Router       /genres [post]
func (h *Handler) CreateGenre(c *gin.Context) {
	var input GenreInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	genre, err := h.catalog.CreateGenre(c.Request.Context(), input.Name, input.Description)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newGenreResponse(*genre))
}

// GetGenres godoc
// @Summary      Get all genres
// @Description  Retrieves every genre ordered by name.
// @Tags         genres
// @Produce      json
// @Success      200  {array}   GenreResponse
// @Router       /genres [get]
func (h *Handler) GetGenres(c *gin.Context) {
	genres, err := h.catalog.ListGenres(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]GenreResponse, 0, len(genres))
	for _, g := range genres {
		response = append(response, newGenreResponse(g))
	}

	c.JSON(http.StatusOK, response)
}
