package igdb

import (
	"context"
	"crypto/sha1" //nolint:gosec
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"kestrel/backend/internal/apperr"
)

const (
	// DefaultBaseURL is the IGDB v4 API root.
	DefaultBaseURL = "https://api.igdb.com/v4"
	// DefaultTokenURL is Twitch's client-credentials endpoint.
	DefaultTokenURL = "https://id.twitch.tv/oauth2/token"
	// DefaultSearchLimit is the number of rows returned by SearchGames when limit <= 0.
	DefaultSearchLimit = 30

	maxBodySize = 4 << 20
)

// Config configures a Client.
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	TokenURL     string

	// RateLimit is the number of requests per second; IGDB allows 4.
	RateLimit float64
	Timeout   time.Duration

	Cache    Cache
	CacheTTL time.Duration
}

// Client queries IGDB with a Twitch app access token.
type Client struct {
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	cache    Cache
	cacheTTL time.Duration
}

// New creates a Client. The app token is fetched lazily and refreshed by the oauth2 transport.
func New(ctx context.Context, cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}

	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 4
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	if cfg.Cache == nil {
		cfg.Cache = NopCache{}
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	httpClient := cc.Client(ctx)
	httpClient.Timeout = cfg.Timeout
	httpClient.Transport = &clientIDTransport{clientID: cfg.ClientID, next: httpClient.Transport}

	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		http:     httpClient,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		cache:    cfg.Cache,
		cacheTTL: cfg.CacheTTL,
	}
}

type clientIDTransport struct {
	clientID string
	next     http.RoundTripper
}

func (t *clientIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("Client-ID", t.clientID)
	r.Header.Set("Accept", "application/json")

	return t.next.RoundTrip(r)
}

// Query posts an Apicalypse body to endpoint and returns the raw JSON array.
func (c *Client) Query(ctx context.Context, endpoint, body string) ([]byte, error) {
	key := cacheKey(endpoint, body)

	if cached, ok, err := c.cache.Get(ctx, key); err != nil {
		log.Warn().Err(err).Str("endpoint", endpoint).Msg("igdb cache read failed")
	} else if ok {
		requestsTotal.WithLabelValues(endpoint, outcomeCacheHit).Inc()
		return cached, nil
	}

	raw, err := c.do(ctx, endpoint, body)
	if err != nil {
		requestsTotal.WithLabelValues(endpoint, outcomeError).Inc()
		return nil, apperr.Upstream(err, "igdb "+endpoint)
	}

	requestsTotal.WithLabelValues(endpoint, outcomeOK).Inc()

	if c.cacheTTL > 0 {
		if err := c.cache.Set(ctx, key, raw, c.cacheTTL); err != nil {
			log.Warn().Err(err).Str("endpoint", endpoint).Msg("igdb cache write failed")
		}
	}

	return raw, nil
}

func (c *Client) do(ctx context.Context, endpoint, body string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, strings.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}

	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsArray() {
		return nil, fmt.Errorf("unexpected response: %s", truncate(raw, 200))
	}

	return raw, nil
}

// SearchGames runs a full-text search over games.
func (c *Client) SearchGames(ctx context.Context, query string, limit int) ([]Game, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	body := fmt.Sprintf(`search "%s"; fields id,name,summary,first_release_date,cover.image_id; limit %d;`,
		escape(query), limit)

	raw, err := c.Query(ctx, "games", body)
	if err != nil {
		return nil, err
	}

	var games []Game
	if err = json.Unmarshal(raw, &games); err != nil {
		return nil, apperr.Upstream(err, "igdb games")
	}

	return games, nil
}

// GameDetails fetches one game with its franchise ids, involved companies and genres.
// It returns apperr.ErrNotFound when IGDB has no such id.
func (c *Client) GameDetails(ctx context.Context, id int64) (*Game, error) {
	body := fmt.Sprintf("fields name,summary,first_release_date,cover.image_id,franchises,"+
		"involved_companies.company.name,genres.name; where id = %d;", id)

	raw, err := c.Query(ctx, "games", body)
	if err != nil {
		return nil, err
	}

	var games []Game
	if err = json.Unmarshal(raw, &games); err != nil {
		return nil, apperr.Upstream(err, "igdb games")
	}

	if len(games) == 0 {
		return nil, apperr.NotFound("igdb game", id)
	}

	return &games[0], nil
}

// FranchiseNames resolves franchise ids to names.
func (c *Client) FranchiseNames(ctx context.Context, ids []int64) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	raw, err := c.Query(ctx, "franchises", fmt.Sprintf("fields name; where id = (%s);", joinIDs(ids)))
	if err != nil {
		return nil, err
	}

	var names []string
	for _, n := range gjson.GetBytes(raw, "#.name").Array() {
		if n.String() != "" {
			names = append(names, n.String())
		}
	}

	return names, nil
}

// DeveloperIDs returns the subset of involved-company ids flagged as developers.
func (c *Client) DeveloperIDs(ctx context.Context, involvedIDs []int64) ([]int64, error) {
	if len(involvedIDs) == 0 {
		return nil, nil
	}

	raw, err := c.Query(ctx, "involved_companies",
		fmt.Sprintf("fields developer; where id = (%s);", joinIDs(involvedIDs)))
	if err != nil {
		return nil, err
	}

	var ids []int64
	for _, id := range gjson.GetBytes(raw, "#(developer==true)#.id").Array() {
		ids = append(ids, id.Int())
	}

	return ids, nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}

	return strings.Join(parts, ",")
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func cacheKey(endpoint, body string) string {
	sum := sha1.Sum([]byte(body)) //nolint:gosec

	return "igdb:" + endpoint + ":" + hex.EncodeToString(sum[:])
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}

	return string(b)
}
