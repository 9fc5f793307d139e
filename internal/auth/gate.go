package auth

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"kestrel/backend/internal/apperr"
	"kestrel/backend/internal/database"
	"kestrel/backend/internal/models"
)

// Defaults for users whose token carries no profile hints.
const (
	DefaultUsername = "New User"
	DefaultEmail    = "No email provided"
)

// Gate maps verified claims to local users, creating them on first sight.
type Gate struct {
	db *gorm.DB
}

// NewGate creates a Gate over db.
func NewGate(db *gorm.DB) *Gate {
	return &Gate{db: db}
}

// ResolveUser returns the user for claims.Subject, provisioning one if none exists.
// Concurrent first-sight calls for the same subject return the same row.
func (g *Gate) ResolveUser(ctx context.Context, claims Claims) (*models.User, error) {
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, apperr.Validation("token has no subject")
	}

	db := g.db.WithContext(ctx)

	user, err := findBySubject(db, claims.Subject)
	if err == nil {
		return user, nil
	}

	if !database.IsNotFound(err) {
		return nil, errors.Wrap(err, "lookup user")
	}

	return g.provision(ctx, claims)
}

// provision inserts a user for claims. If another request created the subject
// first, the committed row is returned instead.
func (g *Gate) provision(ctx context.Context, claims Claims) (*models.User, error) {
	db := g.db.WithContext(ctx)

	user := models.User{
		SubjectID: claims.Subject,
		Username:  orDefault(claims.Nickname, DefaultUsername),
		Email:     orDefault(claims.Email, DefaultEmail),
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&user).Error
	})

	if database.IsUniqueViolation(err) {
		log.Debug().Str("subject", claims.Subject).Msg("user provisioned concurrently, re-fetching")

		existing, findErr := findBySubject(db, claims.Subject)
		if findErr != nil {
			return nil, errors.Wrap(findErr, "re-fetch user after duplicate insert")
		}

		return existing, nil
	}

	if err != nil {
		return nil, errors.Wrap(err, "create user")
	}

	log.Info().Uint("user_id", user.ID).Str("subject", user.SubjectID).Msg("user provisioned")

	return &user, nil
}

// GetUser returns a user by local id.
func (g *Gate) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User

	err := g.db.WithContext(ctx).First(&user, id).Error
	if database.IsNotFound(err) {
		return nil, apperr.NotFound("user", id)
	}

	if err != nil {
		return nil, err
	}

	return &user, nil
}

func findBySubject(db *gorm.DB, subject string) (*models.User, error) {
	var user models.User
	if err := db.Where("subject_id = ?", subject).First(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}

	return def
}
