package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"match-narrator/internal/app"
	"match-narrator/internal/config"
	"match-narrator/internal/handler"
	"match-narrator/internal/model"
	"match-narrator/internal/repository/memstore"
	"match-narrator/internal/service"
)

type testAPI struct {
	t     *testing.T
	srv   *httptest.Server
	admin string
}

func newTestAPI(t *testing.T, server config.ServerConfig) *testAPI {
	t.Helper()
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:         "handler-test-secret",
			TokenTTL:          time.Hour,
			BootstrapUsername: "admin",
			BootstrapPassword: "admin-password",
		},
		Match: config.MatchConfig{PeriodMinutes: 45, ExtraPeriodMinutes: 15, MaxStarters: 11},
	}
	svc := app.Build(cfg, app.MemoryStores(memstore.New()), nil, app.Options{BcryptCost: bcrypt.MinCost})
	require.NoError(t, app.Bootstrap(context.Background(), cfg, svc))

	srv := httptest.NewServer(handler.NewServer(svc, server, nil))
	t.Cleanup(srv.Close)

	api := &testAPI{t: t, srv: srv}
	api.admin = api.login("admin", "admin-password")
	return api
}

func (a *testAPI) do(method, path, token string, body any) (int, []byte) {
	a.t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	require.NoError(a.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.srv.Client().Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return resp.StatusCode, out
}

// must performs a request, checks the status and decodes the body into out.
func (a *testAPI) must(method, path, token string, body any, status int, out any) {
	a.t.Helper()
	code, raw := a.do(method, path, token, body)
	require.Equal(a.t, status, code, "%s %s: %s", method, path, raw)
	if out != nil {
		require.NoError(a.t, json.Unmarshal(raw, out))
	}
}

func (a *testAPI) login(username, password string) string {
	a.t.Helper()
	var res service.LoginResult
	a.must(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": username, "password": password}, http.StatusOK, &res)
	require.NotEmpty(a.t, res.Token)
	return res.Token
}

func errorOf(t *testing.T, raw []byte) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	return body.Error
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t, config.ServerConfig{})

	code, raw := api.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))

	code, raw = api.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(raw), `narrator_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
	assert.Contains(t, string(raw), "go_goroutines")
}

func TestRegisterCollector(t *testing.T) {
	cfg := &config.Config{Auth: config.AuthConfig{JWTSecret: "s", TokenTTL: time.Hour}}
	svc := app.Build(cfg, app.MemoryStores(memstore.New()), nil, app.Options{})
	api := handler.NewServer(svc, config.ServerConfig{}, func(context.Context) error { return errors.New("down") })

	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "narrator_test_gauge", Help: "Test gauge."})
	g.Set(7)
	require.NoError(t, api.Register(g))
	assert.Error(t, api.Register(g), "duplicate registration")

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "narrator_test_gauge 7")

	rec = httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthentication(t *testing.T) {
	api := newTestAPI(t, config.ServerConfig{})

	code, _ := api.do(http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = api.do(http.MethodGet, "/api/v1/auth/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, raw := api.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "admin", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, service.ErrBadCredentials.Error(), errorOf(t, raw))

	var me model.User
	api.must(http.MethodGet, "/api/v1/auth/me", api.admin, nil, http.StatusOK, &me)
	assert.Equal(t, "admin", me.Username)
	assert.Equal(t, model.RoleAdmin, me.Role)

	api.must(http.MethodPost, "/api/v1/users", api.admin, map[string]string{
		"username": "nora", "password": "narrator-pass", "role": "narrator",
	}, http.StatusCreated, nil)
	code, _ = api.do(http.MethodPost, "/api/v1/users", api.admin, map[string]string{
		"username": "nora", "password": "narrator-pass", "role": "narrator",
	})
	assert.Equal(t, http.StatusConflict, code)

	narrator := api.login("nora", "narrator-pass")
	code, _ = api.do(http.MethodPost, "/api/v1/teams", narrator, model.Team{Name: "Rebels"})
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = api.do(http.MethodGet, "/api/v1/users", narrator, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = api.do(http.MethodGet, "/api/v1/teams", narrator, nil)
	assert.Equal(t, http.StatusOK, code)

	var entries []model.AuditEntry
	api.must(http.MethodGet, "/api/v1/audit?entity=user", api.admin, nil, http.StatusOK, &entries)
	assert.NotEmpty(t, entries)
}

func TestRequestValidation(t *testing.T) {
	api := newTestAPI(t, config.ServerConfig{})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"unknown field", http.MethodPost, "/api/v1/teams", `{"name":"A","colour":"red"}`, http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/api/v1/teams", `{"name":`, http.StatusBadRequest},
		{"empty body", http.MethodPost, "/api/v1/teams", "", http.StatusBadRequest},
		{"bad id", http.MethodGet, "/api/v1/teams/abc", nil, http.StatusBadRequest},
		{"missing team", http.MethodGet, "/api/v1/teams/999", nil, http.StatusNotFound},
		{"missing match", http.MethodGet, "/api/v1/matches/42/clock", nil, http.StatusNotFound},
		{"bad import id", http.MethodGet, "/api/v1/imports/nope", nil, http.StatusBadRequest},
		{"unknown import", http.MethodGet, "/api/v1/imports/" + uuid.NewString(), nil, http.StatusNotFound},
		{"api import without provider", http.MethodPost, "/api/v1/imports/api", map[string]int{"league": 39, "season": 2025}, http.StatusServiceUnavailable},
		{"negative limit", http.MethodGet, "/api/v1/matches?limit=-1", nil, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, raw := api.do(tc.method, tc.path, api.admin, tc.body)
			assert.Equal(t, tc.status, code, string(raw))
			assert.NotEmpty(t, errorOf(t, raw))
		})
	}
}

// liveMatch sets up two squads, a narrator and a match in its first half.
type liveMatch struct {
	api        *testAPI
	narrator   string
	match      model.Match
	home, away model.Team
	homeSquad  []model.Player
	awaySquad  []model.Player
}

func newLiveMatch(t *testing.T) *liveMatch {
	t.Helper()
	api := newTestAPI(t, config.ServerConfig{})
	lm := &liveMatch{api: api}

	var narrator model.User
	api.must(http.MethodPost, "/api/v1/users", api.admin, map[string]string{
		"username": "nora", "password": "narrator-pass", "role": "narrator",
	}, http.StatusCreated, &narrator)
	lm.narrator = api.login("nora", "narrator-pass")

	api.must(http.MethodPost, "/api/v1/teams", api.admin, model.Team{Name: "Northside", ShortName: "NOR"}, http.StatusCreated, &lm.home)
	api.must(http.MethodPost, "/api/v1/teams", api.admin, model.Team{Name: "Southend", ShortName: "SOU"}, http.StatusCreated, &lm.away)
	lm.homeSquad = lm.squad(t, lm.home)
	lm.awaySquad = lm.squad(t, lm.away)

	api.must(http.MethodPost, "/api/v1/matches", api.admin, model.Match{
		HomeTeamID: lm.home.ID,
		AwayTeamID: lm.away.ID,
		KickoffAt:  time.Now().UTC(),
	}, http.StatusCreated, &lm.match)
	api.must(http.MethodPut, lm.path("/narrator"), api.admin, map[string]int64{"narrator_id": narrator.ID}, http.StatusOK, nil)

	for _, side := range []struct {
		team  model.Team
		squad []model.Player
	}{{lm.home, lm.homeSquad}, {lm.away, lm.awaySquad}} {
		var entries []model.RosterEntry
		for i, p := range side.squad {
			role := model.RosterStarter
			if i >= 11 {
				role = model.RosterBench
			}
			entries = append(entries, model.RosterEntry{PlayerID: p.ID, Role: role, Captain: i == 0})
		}
		api.must(http.MethodPut, lm.path("/roster/%d", side.team.ID), lm.narrator, map[string]any{"players": entries}, http.StatusOK, nil)
	}

	var res service.ClockResult
	api.must(http.MethodPost, lm.path("/clock/start"), lm.narrator, nil, http.StatusOK, &res)
	require.Equal(t, model.PeriodFirstHalf, res.Match.Period)
	lm.match = *res.Match
	return lm
}

func (lm *liveMatch) squad(t *testing.T, team model.Team) []model.Player {
	t.Helper()
	var out []model.Player
	for i := 1; i <= 13; i++ {
		var p model.Player
		lm.api.must(http.MethodPost, "/api/v1/players", lm.api.admin, model.Player{
			TeamID:      &team.ID,
			FirstName:   team.ShortName,
			LastName:    fmt.Sprintf("Player%d", i),
			ShirtNumber: &i,
		}, http.StatusCreated, &p)
		out = append(out, p)
	}
	return out
}

func (lm *liveMatch) path(format string, args ...any) string {
	return fmt.Sprintf("/api/v1/matches/%d", lm.match.ID) + fmt.Sprintf(format, args...)
}

func TestClockActions(t *testing.T) {
	lm := newLiveMatch(t)
	api := lm.api

	code, raw := api.do(http.MethodPost, lm.path("/clock/rewind"), lm.narrator, nil)
	assert.Equal(t, http.StatusBadRequest, code, string(raw))

	code, _ = api.do(http.MethodPost, lm.path("/clock/start"), lm.narrator, nil)
	assert.Equal(t, http.StatusConflict, code, "already started")

	code, _ = api.do(http.MethodPost, lm.path("/clock/pause?version=9999"), lm.narrator, nil)
	assert.Equal(t, http.StatusConflict, code, "stale version")

	var res service.ClockResult
	api.must(http.MethodPost, lm.path("/clock/pause?version=%d", lm.match.Version), lm.narrator, nil, http.StatusOK, &res)
	assert.False(t, res.Match.ClockRunning)
	api.must(http.MethodPost, lm.path("/clock/resume"), lm.narrator, nil, http.StatusOK, &res)
	api.must(http.MethodPost, lm.path("/clock/end-period"), lm.narrator, nil, http.StatusOK, &res)
	assert.Equal(t, model.PeriodHalfTime, res.Match.Period)

	var periods []model.MatchPeriodLog
	api.must(http.MethodGet, lm.path("/periods"), lm.narrator, nil, http.StatusOK, &periods)
	require.NotEmpty(t, periods)
	assert.Equal(t, model.PeriodFirstHalf, periods[0].Period)
	assert.NotNil(t, periods[0].EndedAt)

	// Someone who is not the narrator cannot drive the clock.
	api.must(http.MethodPost, "/api/v1/users", api.admin, map[string]string{
		"username": "other", "password": "other-password", "role": "narrator",
	}, http.StatusCreated, nil)
	other := api.login("other", "other-password")
	code, _ = api.do(http.MethodPost, lm.path("/clock/start-period"), other, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, raw = api.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(raw), `narrator_clock_actions_total{action="pause"} 1`)
}

func TestEventLifecycle(t *testing.T) {
	lm := newLiveMatch(t)
	api := lm.api
	scorer := lm.homeSquad[9]

	clientID := uuid.New()
	body := map[string]any{"client_id": clientID, "type": "goal", "player_id": scorer.ID, "detail": "header"}
	var goal model.MatchEvent
	api.must(http.MethodPost, lm.path("/events"), lm.narrator, body, http.StatusCreated, &goal)
	assert.Equal(t, model.EventGoal, goal.Type)
	require.NotNil(t, goal.TeamID)
	assert.Equal(t, lm.home.ID, *goal.TeamID)

	var again model.MatchEvent
	api.must(http.MethodPost, lm.path("/events"), lm.narrator, body, http.StatusOK, &again)
	assert.Equal(t, goal.ID, again.ID)

	var lineup service.Lineup
	api.must(http.MethodGet, lm.path("/lineup"), lm.narrator, nil, http.StatusOK, &lineup)
	assert.Equal(t, 1, lineup.Score.Home)
	assert.Len(t, lineup.Home.OnField, 11)

	// A substitute on the bench cannot shoot.
	code, raw := api.do(http.MethodPost, lm.path("/events"), lm.narrator, map[string]any{"type": "shot", "player_id": lm.homeSquad[12].ID})
	assert.Equal(t, http.StatusConflict, code, string(raw))
	code, raw = api.do(http.MethodPost, lm.path("/events"), lm.narrator, map[string]any{"type": "goal"})
	assert.Equal(t, http.StatusBadRequest, code, string(raw))
	code, _ = api.do(http.MethodPost, lm.path("/events"), lm.narrator, map[string]any{"type": "period_end", "team_id": lm.home.ID})
	assert.Equal(t, http.StatusBadRequest, code)

	var patched model.MatchEvent
	api.must(http.MethodPatch, lm.path("/events/%d", goal.ID), lm.narrator, map[string]any{"minute": 7, "detail": "volley"}, http.StatusOK, &patched)
	assert.Equal(t, 7, patched.Minute)
	assert.Equal(t, "volley", patched.Detail)

	var deleted model.MatchEvent
	api.must(http.MethodDelete, lm.path("/events/%d", goal.ID), lm.narrator, nil, http.StatusOK, &deleted)
	assert.True(t, deleted.Deleted())

	var visible, all []model.MatchEvent
	api.must(http.MethodGet, lm.path("/events"), lm.narrator, nil, http.StatusOK, &visible)
	api.must(http.MethodGet, lm.path("/events?include_deleted=true"), lm.narrator, nil, http.StatusOK, &all)
	assert.Len(t, all, len(visible)+1)

	var m model.Match
	api.must(http.MethodGet, lm.path(""), lm.narrator, nil, http.StatusOK, &m)
	assert.Equal(t, 0, m.HomeScore)

	api.must(http.MethodPost, lm.path("/events/%d/restore", goal.ID), lm.narrator, nil, http.StatusOK, nil)
	api.must(http.MethodGet, lm.path(""), lm.narrator, nil, http.StatusOK, &m)
	assert.Equal(t, 1, m.HomeScore)

	code, _ = api.do(http.MethodGet, lm.path("/events/%d", 9999), lm.narrator, nil)
	assert.Equal(t, http.StatusNotFound, code)

	var kinds []service.KindInfo
	api.must(http.MethodGet, "/api/v1/event-types", lm.narrator, nil, http.StatusOK, &kinds)
	assert.NotEmpty(t, kinds)

	code, raw = api.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(raw), `narrator_events_recorded_total{type="goal"} 1`)
}

func TestRosterAndReport(t *testing.T) {
	lm := newLiveMatch(t)
	api := lm.api

	// Narrators cannot change a roster after kickoff.
	code, _ := api.do(http.MethodPut, lm.path("/roster/%d", lm.home.ID), lm.narrator, map[string]any{"players": []model.RosterEntry{}})
	assert.Equal(t, http.StatusConflict, code)

	var entry model.RosterEntry
	api.must(http.MethodPatch, lm.path("/roster/players/%d/position", lm.homeSquad[0].ID), lm.narrator, map[string]float64{"x": 50, "y": 10}, http.StatusOK, &entry)
	require.NotNil(t, entry.PosX)
	assert.InDelta(t, 50, *entry.PosX, 0.001)
	code, _ = api.do(http.MethodPatch, lm.path("/roster/players/%d/position", lm.homeSquad[0].ID), lm.narrator, map[string]float64{"x": 150, "y": 10})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = api.do(http.MethodPatch, lm.path("/roster/players/%d/position", lm.homeSquad[0].ID), lm.narrator, map[string]float64{"x": 5})
	assert.Equal(t, http.StatusBadRequest, code)

	var roster []model.RosterEntry
	api.must(http.MethodGet, lm.path("/roster"), lm.narrator, nil, http.StatusOK, &roster)
	assert.Len(t, roster, 26)

	api.must(http.MethodPost, lm.path("/events"), lm.narrator, map[string]any{"type": "goal", "player_id": lm.awaySquad[10].ID}, http.StatusCreated, nil)

	var rep service.MatchReport
	api.must(http.MethodGet, lm.path("/report"), lm.narrator, nil, http.StatusOK, &rep)
	assert.Equal(t, "Northside", rep.HomeTeam.Name)
	assert.Equal(t, 1, rep.Score.Away)

	req, err := http.NewRequest(http.MethodGet, api.srv.URL+lm.path("/report.xlsx"), nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+lm.narrator)
	resp, err := api.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), fmt.Sprintf("match-%d.xlsx", lm.match.ID))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("PK")), "xlsx is a zip archive")
}

func TestImportBundle(t *testing.T) {
	api := newTestAPI(t, config.ServerConfig{})
	bundle := `{
		"competition": {"external_id": 39, "name": "Premier League", "country": "England"},
		"season": {"year": 2025},
		"teams": [
			{"external_id": 1, "name": "Northside", "short_name": "NOR"},
			{"external_id": 2, "name": "Southend", "short_name": "SOU"}
		],
		"players": [
			{"external_id": 10, "team_external_id": 1, "first_name": "Ana", "last_name": "Lima", "shirt_number": 9, "position": "FW"}
		],
		"fixtures": [
			{"external_id": 100, "home_team_external_id": 1, "away_team_external_id": 2, "kickoff_at": "2025-08-16T14:00:00Z"}
		]
	}`

	var run model.ImportRun
	api.must(http.MethodPost, "/api/v1/imports/bundle", api.admin, bundle, http.StatusCreated, &run)
	assert.Equal(t, model.ImportSucceeded, run.Status)
	assert.Equal(t, 2, run.Counts.Teams)
	assert.Equal(t, 1, run.Counts.Matches)

	var got model.ImportRun
	api.must(http.MethodGet, "/api/v1/imports/"+run.ID.String(), api.admin, nil, http.StatusOK, &got)
	assert.Equal(t, run.ID, got.ID)

	var runs []model.ImportRun
	api.must(http.MethodGet, "/api/v1/imports", api.admin, nil, http.StatusOK, &runs)
	assert.Len(t, runs, 1)

	var matches []model.Match
	api.must(http.MethodGet, "/api/v1/matches", api.admin, nil, http.StatusOK, &matches)
	require.Len(t, matches, 1)
	assert.Equal(t, model.MatchScheduled, matches[0].Status)

	code, _ := api.do(http.MethodPost, "/api/v1/imports/bundle", api.admin, `{"teams": []}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRateLimit(t *testing.T) {
	api := newTestAPI(t, config.ServerConfig{RateLimitRPS: 0.001, RateLimitBurst: 2})

	// Login during setup spent one token.
	code, _ := api.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	code, raw := api.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, http.StatusText(http.StatusTooManyRequests), errorOf(t, raw))
}
