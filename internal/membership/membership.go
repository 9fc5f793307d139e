// Package membership tracks which games a user owns and which they are playing now.
// The two relations are independent: a game can be in either, both or neither.
package membership

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kestrel/backend/internal/apperr"
	"kestrel/backend/internal/catalog"
	"kestrel/backend/internal/models"
)

// Relation selects one of the two user↔game relations.
type Relation string

const (
	Owned      Relation = "owned"
	NowPlaying Relation = "now_playing"
)

// Valid reports whether r names a known relation.
func (r Relation) Valid() bool {
	return r == Owned || r == NowPlaying
}

// Result describes the state of a pair after a mutation.
type Result struct {
	// Present is whether the pair exists after the call.
	Present bool
	// Changed is whether the call inserted or deleted a row.
	Changed bool
}

// Status is the membership of one game for one user.
type Status struct {
	GameID     uint `json:"game_id"`
	Owned      bool `json:"owned"`
	NowPlaying bool `json:"now_playing"`
}

// Service mutates and queries memberships.
type Service struct {
	db *gorm.DB
}

// NewService creates a Service over db.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Add puts the game in the relation. Adding an existing pair is a no-op.
func (s *Service) Add(ctx context.Context, rel Relation, userID, gameID uint) (Result, error) {
	var res Result

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := catalog.Exists(tx, gameID); err != nil {
			return err
		}

		inserted, err := insert(tx, rel, userID, gameID)
		if err != nil {
			return err
		}

		res = Result{Present: true, Changed: inserted}

		return nil
	})

	return res, err
}

// Remove takes the game out of the relation. Removing an absent pair is a no-op.
func (s *Service) Remove(ctx context.Context, rel Relation, userID, gameID uint) (Result, error) {
	var res Result

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := catalog.Exists(tx, gameID); err != nil {
			return err
		}

		deleted, err := remove(tx, rel, userID, gameID)
		if err != nil {
			return err
		}

		res = Result{Present: false, Changed: deleted}

		return nil
	})

	return res, err
}

// Toggle removes the pair if present and adds it otherwise.
func (s *Service) Toggle(ctx context.Context, rel Relation, userID, gameID uint) (Result, error) {
	var res Result

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := catalog.Exists(tx, gameID); err != nil {
			return err
		}

		deleted, err := remove(tx, rel, userID, gameID)
		if err != nil {
			return err
		}

		if deleted {
			res = Result{Present: false, Changed: true}
			return nil
		}

		if _, err = insert(tx, rel, userID, gameID); err != nil {
			return err
		}

		res = Result{Present: true, Changed: true}

		return nil
	})

	return res, err
}

// Status reports both memberships of one game for userID.
func (s *Service) Status(ctx context.Context, userID, gameID uint) (Status, error) {
	st := Status{GameID: gameID}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := catalog.Exists(tx, gameID); err != nil {
			return err
		}

		var err error
		if st.Owned, err = has(tx, &models.OwnedGame{}, userID, gameID); err != nil {
			return err
		}

		st.NowPlaying, err = has(tx, &models.NowPlayingGame{}, userID, gameID)

		return err
	})

	return st, err
}

// StatusIfExists is Status for callers that already know the game exists.
func (s *Service) StatusIfExists(ctx context.Context, userID, gameID uint) (Status, error) {
	db := s.db.WithContext(ctx)
	st := Status{GameID: gameID}

	var err error
	if st.Owned, err = has(db, &models.OwnedGame{}, userID, gameID); err != nil {
		return st, err
	}

	st.NowPlaying, err = has(db, &models.NowPlayingGame{}, userID, gameID)

	return st, err
}

// List returns the games in the user's relation, most recently added first.
func (s *Service) List(ctx context.Context, rel Relation, userID uint) ([]models.Game, error) {
	table, err := tableFor(rel)
	if err != nil {
		return nil, err
	}

	var games []models.Game

	err = s.db.WithContext(ctx).
		Preload("Genres").
		Joins(fmt.Sprintf("JOIN %s m ON m.game_id = games.id", table)).
		Where("m.user_id = ?", userID).
		Order("m.created_at DESC, games.id DESC").
		Find(&games).Error
	if err != nil {
		return nil, errors.Wrapf(err, "list %s games", rel)
	}

	return games, nil
}

func insert(tx *gorm.DB, rel Relation, userID, gameID uint) (bool, error) {
	row, err := rowFor(rel, userID, gameID)
	if err != nil {
		return false, err
	}

	res := tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if res.Error != nil {
		return false, errors.Wrapf(res.Error, "add %s game", rel)
	}

	return res.RowsAffected > 0, nil
}

func remove(tx *gorm.DB, rel Relation, userID, gameID uint) (bool, error) {
	row, err := rowFor(rel, userID, gameID)
	if err != nil {
		return false, err
	}

	res := tx.Where("user_id = ? AND game_id = ?", userID, gameID).Delete(row)
	if res.Error != nil {
		return false, errors.Wrapf(res.Error, "remove %s game", rel)
	}

	return res.RowsAffected > 0, nil
}

func has(db *gorm.DB, model interface{}, userID, gameID uint) (bool, error) {
	var n int64
	if err := db.Model(model).Where("user_id = ? AND game_id = ?", userID, gameID).Count(&n).Error; err != nil {
		return false, err
	}

	return n > 0, nil
}

func rowFor(rel Relation, userID, gameID uint) (interface{}, error) {
	switch rel {
	case Owned:
		return &models.OwnedGame{UserID: userID, GameID: gameID}, nil
	case NowPlaying:
		return &models.NowPlayingGame{UserID: userID, GameID: gameID}, nil
	default:
		return nil, apperr.Validation("unknown relation %q", rel)
	}
}

func tableFor(rel Relation) (string, error) {
	switch rel {
	case Owned:
		return models.OwnedGame{}.TableName(), nil
	case NowPlaying:
		return models.NowPlayingGame{}.TableName(), nil
	default:
		return "", apperr.Validation("unknown relation %q", rel)
	}
}
