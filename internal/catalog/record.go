package catalog

import (
	"encoding/json"
	"time"

	"kestrel/backend/internal/models"
)

// GenreRef names a genre in an ingestion payload.
type GenreRef struct {
	Name string `json:"name" validate:"max=50"`
}

// NameList accepts either a single string or a list of strings.
type NameList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *NameList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		if one == "" {
			*l = nil
		} else {
			*l = NameList{one}
		}

		return nil
	}

	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}

	*l = many

	return nil
}

// Record is the external catalog shape exchanged with clients and ingested into the store.
type Record struct {
	ID               int64      `json:"id" validate:"required,gt=0"`
	Name             string     `json:"name" validate:"required,max=100"`
	Summary          string     `json:"summary,omitempty"`
	FirstReleaseDate *int64     `json:"first_release_date,omitempty"`
	CoverURL         string     `json:"cover_url,omitempty" validate:"omitempty,max=255"`
	Franchise        NameList   `json:"franchise,omitempty"`
	Studio           NameList   `json:"studio,omitempty"`
	Genres           []GenreRef `json:"genres,omitempty" validate:"dive"`
}

// GenreNames returns the non-empty genre names of r.
func (r Record) GenreNames() []string {
	names := make([]string, 0, len(r.Genres))
	for _, g := range r.Genres {
		if g.Name != "" {
			names = append(names, g.Name)
		}
	}

	return names
}

// Patch holds a partial game update. Nil fields are left untouched.
type Patch struct {
	Title       *string   `json:"title" validate:"omitempty,max=100"`
	Description *string   `json:"description"`
	CoverArtURL *string   `json:"cover_art_url" validate:"omitempty,max=255"`
	Franchise   *string   `json:"franchise" validate:"omitempty,max=255"`
	Studio      *string   `json:"studio" validate:"omitempty,max=255"`
	ReleaseDate *string   `json:"release_date"` // YYYY-MM-DD, "" clears
	Genres      *[]string `json:"genres"`       // replaces the whole set
}

// ListOptions filters and paginates ListGames.
type ListOptions struct {
	Query string
	Genre string
	Page  int
	Limit int
}

// TopGame is a game ranked by its number of now-playing users.
type TopGame struct {
	Game        models.Game
	PlayerCount int64
}

const isoDate = time.DateOnly
