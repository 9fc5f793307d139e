package catalog

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"kestrel/backend/internal/igdb"
)

const (
	coverBaseURL  = "https://images.igdb.com/igdb/image/upload"
	coverSizeBig  = "t_cover_big"
	listSeparator = ", "
)

// Lookup performs the secondary metadata queries needed to enrich a game.
type Lookup interface {
	FranchiseNames(ctx context.Context, ids []int64) ([]string, error)
	DeveloperIDs(ctx context.Context, involvedIDs []int64) ([]int64, error)
}

// Normalizer turns IGDB rows into flat, storable fields.
type Normalizer struct {
	lookup Lookup
}

// NewNormalizer creates a Normalizer. lookup may be nil when IGDB is not configured.
func NewNormalizer(lookup Lookup) *Normalizer {
	return &Normalizer{lookup: lookup}
}

// CoverURL builds the canonical big cover URL, or "" when there is no image id.
func CoverURL(cover *igdb.Cover) string {
	if cover == nil || cover.ImageID == "" {
		return ""
	}

	return coverBaseURL + "/" + coverSizeBig + "/" + cover.ImageID + ".jpg"
}

// FranchiseNames resolves franchise ids. Lookup failures degrade to an empty list.
func (n *Normalizer) FranchiseNames(ctx context.Context, ids []int64) []string {
	if len(ids) == 0 || n.lookup == nil {
		return []string{}
	}

	names, err := n.lookup.FranchiseNames(ctx, ids)
	if err != nil {
		log.Warn().Err(err).Ints64("franchise_ids", ids).Msg("franchise lookup failed")
		return []string{}
	}

	if names == nil {
		return []string{}
	}

	return names
}

// StudioNames returns the display names of the involved companies flagged as developers.
// Records without a matching flag are skipped. Lookup failures degrade to an empty list.
func (n *Normalizer) StudioNames(ctx context.Context, involved []igdb.InvolvedCompany) []string {
	studios := []string{}

	ids := make([]int64, 0, len(involved))
	for _, ic := range involved {
		if ic.ID != 0 {
			ids = append(ids, ic.ID)
		}
	}

	if len(ids) == 0 || n.lookup == nil {
		return studios
	}

	developerIDs, err := n.lookup.DeveloperIDs(ctx, ids)
	if err != nil {
		log.Warn().Err(err).Ints64("involved_company_ids", ids).Msg("involved company lookup failed")
		return studios
	}

	isDeveloper := make(map[int64]bool, len(developerIDs))
	for _, id := range developerIDs {
		isDeveloper[id] = true
	}

	for _, ic := range involved {
		if isDeveloper[ic.ID] && ic.Company.Name != "" {
			studios = append(studios, ic.Company.Name)
		}
	}

	return studios
}

// Summary reshapes a search row for clients.
func (n *Normalizer) Summary(g igdb.Game) Record {
	return Record{
		ID:               g.ID,
		Name:             g.Name,
		Summary:          g.Summary,
		FirstReleaseDate: g.FirstReleaseDate,
		CoverURL:         CoverURL(g.Cover),
	}
}

// Detail reshapes a detail row, resolving franchises and studios.
func (n *Normalizer) Detail(ctx context.Context, g igdb.Game) Record {
	rec := n.Summary(g)
	rec.Franchise = n.FranchiseNames(ctx, g.Franchises)
	rec.Studio = n.StudioNames(ctx, g.InvolvedCompanies)

	for _, genre := range g.Genres {
		if genre.Name != "" {
			rec.Genres = append(rec.Genres, GenreRef{Name: genre.Name})
		}
	}

	return rec
}

// joinNames joins the non-empty names, keeping the leading names that fit in maxListLength runes.
func joinNames(names []string) string {
	var b strings.Builder

	length := 0
	sep := utf8.RuneCountInString(listSeparator)

	for _, s := range names {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}

		n := utf8.RuneCountInString(s)
		if length == 0 && n > maxListLength {
			return string([]rune(s)[:maxListLength])
		}

		if length > 0 {
			n += sep
		}

		if length+n > maxListLength {
			break
		}

		if length > 0 {
			b.WriteString(listSeparator)
		}

		b.WriteString(s)
		length += n
	}

	return b.String()
}

func releaseDate(unix *int64) *time.Time {
	if unix == nil {
		return nil
	}

	d := time.Unix(*unix, 0).UTC().Truncate(24 * time.Hour)

	return &d
}
