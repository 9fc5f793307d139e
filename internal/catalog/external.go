package catalog

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"kestrel/backend/internal/apperr"
	"kestrel/backend/internal/igdb"
	"kestrel/backend/internal/models"
)

// MinSearchLength is the shortest query forwarded to IGDB.
const MinSearchLength = 3

// Upstream is the part of the IGDB client the catalog relies on.
type Upstream interface {
	Lookup
	SearchGames(ctx context.Context, query string, limit int) ([]igdb.Game, error)
	GameDetails(ctx context.Context, id int64) (*igdb.Game, error)
}

// External passes searches through to IGDB and imports IGDB games into the local catalog.
type External struct {
	upstream   Upstream
	normalizer *Normalizer
	repo       *Repository
}

// NewExternal creates an External. upstream may be nil, in which case every call
// fails with apperr.ErrUpstreamUnavailable.
func NewExternal(upstream Upstream, repo *Repository) *External {
	var lookup Lookup
	if upstream != nil {
		lookup = upstream
	}

	return &External{upstream: upstream, normalizer: NewNormalizer(lookup), repo: repo}
}

// Search returns IGDB matches for query. Queries shorter than MinSearchLength return no rows.
func (e *External) Search(ctx context.Context, query string) ([]Record, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinSearchLength {
		return []Record{}, nil
	}

	if e.upstream == nil {
		return nil, apperr.Upstream(errNotConfigured, "igdb search")
	}

	games, err := e.upstream.SearchGames(ctx, query, 0)
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(games))
	for _, g := range games {
		out = append(out, e.normalizer.Summary(g))
	}

	return out, nil
}

// Details returns one IGDB game with franchise and studio names resolved.
func (e *External) Details(ctx context.Context, externalID int64) (*Record, error) {
	if e.upstream == nil {
		return nil, apperr.Upstream(errNotConfigured, "igdb details")
	}

	g, err := e.upstream.GameDetails(ctx, externalID)
	if err != nil {
		return nil, err
	}

	rec := e.normalizer.Detail(ctx, *g)

	return &rec, nil
}

// Import fetches an IGDB game and ingests it. An already imported id yields a conflict.
func (e *External) Import(ctx context.Context, externalID int64) (*models.Game, error) {
	rec, err := e.Details(ctx, externalID)
	if err != nil {
		return nil, err
	}

	return e.repo.FindOrCreateGame(ctx, *rec)
}

var errNotConfigured = errors.New("IGDB credentials are not configured")
