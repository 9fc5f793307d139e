// Package catalog owns games and genres: normalizing IGDB data, ingesting it
// idempotently and keeping the local catalog consistent.
package catalog

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kestrel/backend/internal/apperr"
	"kestrel/backend/internal/database"
	"kestrel/backend/internal/models"
)

const (
	igdbIDQuery  = "igdb_id = ?"
	genreByName  = "name = ?"
	maxPageLimit = 100
)

// Column widths of the games and genres tables.
const (
	maxListLength  = 255
	maxGenreLength = 50
)

// Repository persists games and genres.
type Repository struct {
	db       *gorm.DB
	validate *validator.Validate
}

// NewRepository creates a Repository over db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, validate: validator.New()}
}

// FindOrCreateGame ingests rec. If a game with the same IGDB id already exists,
// nothing is written and an *apperr.ConflictError carrying its id is returned.
func (r *Repository) FindOrCreateGame(ctx context.Context, rec Record) (*models.Game, error) {
	if err := r.validate.Struct(rec); err != nil {
		return nil, apperr.Validation("invalid game record: %v", err)
	}

	db := r.db.WithContext(ctx)

	if existing, err := findByIGDBID(db, rec.ID); err == nil {
		return nil, apperr.Conflict("game", existing.ID)
	} else if !database.IsNotFound(err) {
		return nil, err
	}

	igdbID := rec.ID
	game := models.Game{
		IGDBID:      &igdbID,
		Title:       rec.Name,
		Description: rec.Summary,
		CoverArtURL: rec.CoverURL,
		Franchise:   joinNames(rec.Franchise),
		Studio:      joinNames(rec.Studio),
		ReleaseDate: releaseDate(rec.FirstReleaseDate),
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		genres, err := upsertGenres(tx, rec.GenreNames())
		if err != nil {
			return err
		}

		game.Genres = genres

		return tx.Omit("Genres.*").Create(&game).Error
	})

	if database.IsUniqueViolation(err) {
		// another ingestion of the same IGDB id committed first
		existing, findErr := findByIGDBID(db, rec.ID)
		if findErr != nil {
			return nil, errors.Wrap(findErr, "re-fetch after duplicate ingestion")
		}

		return nil, apperr.Conflict("game", existing.ID)
	}

	if err != nil {
		return nil, errors.Wrap(err, "create game")
	}

	return &game, nil
}

// GetGame returns the game with its genres.
func (r *Repository) GetGame(ctx context.Context, id uint) (*models.Game, error) {
	var game models.Game

	err := r.db.WithContext(ctx).Preload("Genres").First(&game, id).Error
	if database.IsNotFound(err) {
		return nil, apperr.NotFound("game", id)
	}

	if err != nil {
		return nil, err
	}

	return &game, nil
}

// Exists reports whether a game id is present, using db (which may be a transaction).
func Exists(db *gorm.DB, id uint) error {
	var count int64
	if err := db.Model(&models.Game{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}

	if count == 0 {
		return apperr.NotFound("game", id)
	}

	return nil
}

// UpdateGame applies the non-nil fields of p. A non-nil Genres replaces the whole genre set.
func (r *Repository) UpdateGame(ctx context.Context, id uint, p Patch) (*models.Game, error) {
	if err := r.validate.Struct(p); err != nil {
		return nil, apperr.Validation("invalid game update: %v", err)
	}

	if p.Genres != nil {
		if err := checkGenreNames(*p.Genres); err != nil {
			return nil, err
		}
	}

	updates := map[string]interface{}{}

	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, apperr.Validation("title can not be empty")
		}

		updates["title"] = title
	}

	if p.Description != nil {
		updates["description"] = *p.Description
	}

	if p.CoverArtURL != nil {
		updates["cover_art_url"] = *p.CoverArtURL
	}

	if p.Franchise != nil {
		updates["franchise"] = *p.Franchise
	}

	if p.Studio != nil {
		updates["studio"] = *p.Studio
	}

	if p.ReleaseDate != nil {
		if *p.ReleaseDate == "" {
			updates["release_date"] = nil
		} else {
			d, err := time.Parse(isoDate, *p.ReleaseDate)
			if err != nil {
				return nil, apperr.Validation("release_date %q is not YYYY-MM-DD", *p.ReleaseDate)
			}

			updates["release_date"] = d
		}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var game models.Game
		if err := tx.First(&game, id).Error; err != nil {
			if database.IsNotFound(err) {
				return apperr.NotFound("game", id)
			}

			return err
		}

		if len(updates) > 0 {
			if err := tx.Model(&game).Updates(updates).Error; err != nil {
				return err
			}
		}

		if p.Genres == nil {
			return nil
		}

		genres, err := upsertGenres(tx, *p.Genres)
		if err != nil {
			return err
		}

		return tx.Model(&game).Association("Genres").Replace(genres)
	})
	if err != nil {
		return nil, err
	}

	return r.GetGame(ctx, id)
}

// DeleteGame removes the game from every library and now-playing list, deletes its
// comments and genre links, then the game itself, all in one transaction.
func (r *Repository) DeleteGame(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := Exists(tx, id); err != nil {
			return err
		}

		steps := []interface{}{
			&models.OwnedGame{},
			&models.NowPlayingGame{},
			&models.Comment{},
		}
		for _, model := range steps {
			if err := tx.Where("game_id = ?", id).Delete(model).Error; err != nil {
				return errors.Wrapf(err, "delete %T rows", model)
			}
		}

		game := models.Game{ID: id}
		if err := tx.Model(&game).Association("Genres").Clear(); err != nil {
			return errors.Wrap(err, "clear genres")
		}

		return tx.Delete(&game).Error
	})
}

// ListGames returns one page of games ordered by title, and the total match count.
func (r *Repository) ListGames(ctx context.Context, opts ListOptions) ([]models.Game, int64, error) {
	page, limit := normalizePage(opts.Page, opts.Limit)

	scope := func(db *gorm.DB) *gorm.DB {
		if q := strings.TrimSpace(opts.Query); q != "" {
			db = db.Where("LOWER(games.title) LIKE ?", "%"+strings.ToLower(q)+"%")
		}

		if opts.Genre != "" {
			db = db.Where("games.id IN (?)",
				r.db.Table("game_genres").
					Select("game_genres.game_id").
					Joins("JOIN genres ON genres.id = game_genres.genre_id").
					Where("genres.name = ?", opts.Genre))
		}

		return db
	}

	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Game{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count games")
	}

	var games []models.Game
	err := db.Scopes(scope).
		Preload("Genres").
		Order("games.title ASC, games.id ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&games).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "list games")
	}

	return games, total, nil
}

// TopGames ranks games by distinct now-playing users, most first, ties by id.
func (r *Repository) TopGames(ctx context.Context, limit int) ([]TopGame, error) {
	if limit <= 0 {
		return []TopGame{}, nil
	}

	var rows []struct {
		GameID      uint
		PlayerCount int64
	}

	db := r.db.WithContext(ctx)

	err := db.Model(&models.NowPlayingGame{}).
		Select("game_id, COUNT(DISTINCT user_id) AS player_count").
		Group("game_id").
		Order("player_count DESC, game_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "rank games")
	}

	ids := make([]uint, len(rows))
	for i, row := range rows {
		ids[i] = row.GameID
	}

	var games []models.Game
	if len(ids) > 0 {
		if err = db.Preload("Genres").Find(&games, ids).Error; err != nil {
			return nil, errors.Wrap(err, "load top games")
		}
	}

	byID := make(map[uint]models.Game, len(games))
	for _, g := range games {
		byID[g.ID] = g
	}

	top := make([]TopGame, 0, len(rows))
	for _, row := range rows {
		if g, ok := byID[row.GameID]; ok {
			top = append(top, TopGame{Game: g, PlayerCount: row.PlayerCount})
		}
	}

	return top, nil
}

// ListGenres returns every genre by name.
func (r *Repository) ListGenres(ctx context.Context) ([]models.Genre, error) {
	var genres []models.Genre
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&genres).Error; err != nil {
		return nil, err
	}

	return genres, nil
}

// CreateGenre creates a genre, or returns a conflict carrying the existing id.
func (r *Repository) CreateGenre(ctx context.Context, name, description string) (*models.Genre, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("genre name is required")
	}

	if err := checkGenreNames([]string{name}); err != nil {
		return nil, err
	}

	db := r.db.WithContext(ctx)
	genre := models.Genre{Name: name, Description: description}

	err := db.Create(&genre).Error
	if database.IsUniqueViolation(err) {
		var existing models.Genre
		if findErr := db.Where(genreByName, name).First(&existing).Error; findErr != nil {
			return nil, findErr
		}

		return nil, apperr.Conflict("genre", existing.ID)
	}

	if err != nil {
		return nil, err
	}

	return &genre, nil
}

func findByIGDBID(db *gorm.DB, igdbID int64) (*models.Game, error) {
	var game models.Game
	if err := db.Where(igdbIDQuery, igdbID).First(&game).Error; err != nil {
		return nil, err
	}

	return &game, nil
}

// upsertGenres returns one Genre per distinct name, creating missing ones.
// Concurrent creators of the same name converge on a single row.
func upsertGenres(tx *gorm.DB, names []string) ([]*models.Genre, error) {
	seen := make(map[string]bool, len(names))
	genres := make([]*models.Genre, 0, len(names))

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}

		seen[name] = true

		genre := models.Genre{Name: name}

		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&genre)
		if res.Error != nil {
			return nil, errors.Wrapf(res.Error, "upsert genre %q", name)
		}

		if res.RowsAffected == 0 {
			genre = models.Genre{}
			if err := tx.Where(genreByName, name).First(&genre).Error; err != nil {
				return nil, errors.Wrapf(err, "load genre %q", name)
			}
		}

		genres = append(genres, &genre)
	}

	return genres, nil
}

func checkGenreNames(names []string) error {
	for _, name := range names {
		if utf8.RuneCountInString(strings.TrimSpace(name)) > maxGenreLength {
			return apperr.Validation("genre name %q is longer than %d characters", name, maxGenreLength)
		}
	}

	return nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}

	if limit < 1 {
		limit = 10
	}

	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	return page, limit
}
