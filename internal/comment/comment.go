// Package comment stores the comment threads attached to games.
package comment

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"kestrel/backend/internal/apperr"
	"kestrel/backend/internal/catalog"
	"kestrel/backend/internal/hub"
	"kestrel/backend/internal/models"
)

// Author is the public summary of a comment's user.
type Author struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// View is a comment as returned to clients.
type View struct {
	ID        uint      `json:"id"`
	GameID    uint      `json:"game_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Author    Author    `json:"author"`
}

// Publisher receives every newly created comment.
type Publisher interface {
	Publish(gameID uint, event hub.Event)
}

type input struct {
	Content string `validate:"required,max=5000"`
}

// Service adds and lists comments.
type Service struct {
	db        *gorm.DB
	validate  *validator.Validate
	publisher Publisher
}

// NewService creates a Service. publisher may be nil.
func NewService(db *gorm.DB, publisher Publisher) *Service {
	return &Service{db: db, validate: validator.New(), publisher: publisher}
}

// Add stores a comment by userID on gameID.
func (s *Service) Add(ctx context.Context, gameID, userID uint, content string) (*View, error) {
	in := input{Content: strings.TrimSpace(content)}
	if err := s.validate.Struct(in); err != nil {
		return nil, apperr.Validation("invalid comment: %v", err)
	}

	c := models.Comment{GameID: gameID, UserID: userID, Content: in.Content}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := catalog.Exists(tx, gameID); err != nil {
			return err
		}

		if err := tx.Omit("User").Create(&c).Error; err != nil {
			return errors.Wrap(err, "create comment")
		}

		return tx.First(&c.User, userID).Error
	})
	if err != nil {
		return nil, err
	}

	v := toView(c)

	if s.publisher != nil {
		s.publisher.Publish(gameID, hub.Event{Type: hub.EventCommentCreated, Payload: v})
	}

	return &v, nil
}

// ListForGame returns the comments of gameID oldest first. A game without
// comments, or an unknown game, yields an empty slice.
func (s *Service) ListForGame(ctx context.Context, gameID uint) ([]View, error) {
	var rows []models.Comment

	err := s.db.WithContext(ctx).
		Preload("User").
		Where("game_id = ?", gameID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "list comments")
	}

	views := make([]View, 0, len(rows))
	for _, c := range rows {
		views = append(views, toView(c))
	}

	return views, nil
}

func toView(c models.Comment) View {
	return View{
		ID:        c.ID,
		GameID:    c.GameID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		Author:    Author{ID: c.User.ID, Username: c.User.Username},
	}
}
