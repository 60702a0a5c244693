// Package footballapi fetches competition data from an api-football v3
// compatible provider and converts it into an import bundle.
package footballapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"match-narrator/internal/config"
)

const defaultBaseURL = "https://v3.football.api-sports.io"

// ErrNoAPIKey is returned when the client has no key configured.
var ErrNoAPIKey = errors.New("no football API key configured")

// APIError is a non-successful answer from the provider.
type APIError struct {
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != http.StatusOK {
		return fmt.Sprintf("football API %s returned status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("football API %s: %s", e.Path, e.Message)
}

// Client handles football API requests. Requests are paced by a token bucket
// so a full season fetch stays within the provider's per-minute quota.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new football API client.
func NewClient(cfg config.FootballAPIConfig) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// envelope is the common response wrapper. errors is an empty array on
// success and an object keyed by field on failure.
type envelope struct {
	Errors   json.RawMessage `json:"errors"`
	Results  int             `json:"results"`
	Response json.RawMessage `json:"response"`
}

func providerError(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "[]" || s == "{}" || s == "null" {
		return ""
	}
	var byField map[string]string
	if err := json.Unmarshal(raw, &byField); err == nil {
		parts := make([]string, 0, len(byField))
		for k, v := range byField {
			parts = append(parts, k+": "+v)
		}
		return strings.Join(parts, "; ")
	}
	return s
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for rate limit: %w", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-apisports-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Football API request")

	if resp.StatusCode != http.StatusOK {
		return &APIError{Path: path, StatusCode: resp.StatusCode}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if msg := providerError(env.Errors); msg != "" {
		return &APIError{Path: path, StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", path, err)
	}
	return nil
}

// League is a competition with its available seasons.
type League struct {
	League struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"league"`
	Country struct {
		Name string `json:"name"`
	} `json:"country"`
	Seasons []struct {
		Year    int    `json:"year"`
		Start   string `json:"start"`
		End     string `json:"end"`
		Current bool   `json:"current"`
	} `json:"seasons"`
}

// TeamEntry is a team row of /teams.
type TeamEntry struct {
	Team struct {
		ID      int64  `json:"id"`
		Name    string `json:"name"`
		Code    string `json:"code"`
		Country string `json:"country"`
	} `json:"team"`
	Venue struct {
		Name string `json:"name"`
	} `json:"venue"`
}

// SquadPlayer is a player row of /players/squads.
type SquadPlayer struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Number   *int   `json:"number"`
	Position string `json:"position"`
}

type squad struct {
	Players []SquadPlayer `json:"players"`
}

// Fixture is a row of /fixtures.
type Fixture struct {
	Fixture struct {
		ID    int64     `json:"id"`
		Date  time.Time `json:"date"`
		Venue struct {
			Name string `json:"name"`
		} `json:"venue"`
	} `json:"fixture"`
	League struct {
		Round string `json:"round"`
	} `json:"league"`
	Teams struct {
		Home struct {
			ID int64 `json:"id"`
		} `json:"home"`
		Away struct {
			ID int64 `json:"id"`
		} `json:"away"`
	} `json:"teams"`
}

func leagueQuery(league int64, season int) url.Values {
	return url.Values{
		"league": {strconv.FormatInt(league, 10)},
		"season": {strconv.Itoa(season)},
	}
}

// GetLeague fetches one league with its seasons.
func (c *Client) GetLeague(ctx context.Context, league int64) (*League, error) {
	var out []League
	if err := c.get(ctx, "/leagues", url.Values{"id": {strconv.FormatInt(league, 10)}}, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("league %d not found", league)
	}
	return &out[0], nil
}

// GetTeams fetches the teams of a league season.
func (c *Client) GetTeams(ctx context.Context, league int64, season int) ([]TeamEntry, error) {
	var out []TeamEntry
	if err := c.get(ctx, "/teams", leagueQuery(league, season), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSquad fetches the current squad of a team.
func (c *Client) GetSquad(ctx context.Context, team int64) ([]SquadPlayer, error) {
	var out []squad
	if err := c.get(ctx, "/players/squads", url.Values{"team": {strconv.FormatInt(team, 10)}}, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0].Players, nil
}

// GetFixtures fetches the fixtures of a league season.
func (c *Client) GetFixtures(ctx context.Context, league int64, season int) ([]Fixture, error) {
	var out []Fixture
	if err := c.get(ctx, "/fixtures", leagueQuery(league, season), &out); err != nil {
		return nil, err
	}
	return out, nil
}
