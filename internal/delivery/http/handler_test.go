package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogiaan1904/lobbydraft/config"
	"github.com/vogiaan1904/lobbydraft/internal/access"
	"github.com/vogiaan1904/lobbydraft/internal/metrics"
	"github.com/vogiaan1904/lobbydraft/internal/models"
	repo "github.com/vogiaan1904/lobbydraft/internal/repository/redis"
	"github.com/vogiaan1904/lobbydraft/internal/service"
	"github.com/vogiaan1904/lobbydraft/pkg/logger"
	"github.com/vogiaan1904/lobbydraft/pkg/response"
)

type fakeLobbyService struct {
	service.LobbyService
	asked []string
}

func (f *fakeLobbyService) CanAssumeRole(_ context.Context, lobbyID, playerID, role string) (access.Decision, error) {
	f.asked = append(f.asked, lobbyID+"/"+playerID+"/"+role)
	return access.Decision{Allowed: true, Reason: access.ReasonNoRule}, nil
}

type harness struct {
	srv    *httptest.Server
	tokens service.TokenService
	lobby  *fakeLobbyService
	prom   *metrics.Prometheus
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	mr := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cli.Close() })

	l := logger.InitializeTestZapLogger()
	tokens := service.NewTokenService(config.JWTConfig{Secret: "test-secret", Expiry: time.Hour}, l)
	accessSvc := service.NewAccessService(repo.NewRedisAccessRepository(cli, l), l)
	lobby := &fakeLobbyService{}

	reg := prometheus.NewRegistry()
	prom, err := metrics.NewPrometheus(reg, "")
	require.NoError(t, err)

	h := NewHTTPHandler(accessSvc, lobby, tokens, nil, reg, "guild", l)
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)

	return &harness{srv: srv, tokens: tokens, lobby: lobby, prom: prom}
}

func (h *harness) do(t *testing.T, c *models.Caller, method, path, body string) (int, response.Resp) {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, rd)
	require.NoError(t, err)
	if c != nil {
		tok, err := h.tokens.Issue(context.Background(), *c)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var out response.Resp
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return res.StatusCode, out
}

func TestHealthCheck(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(t, nil, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body.Data.(map[string]any)["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	h.prom.Action("join", nil)

	res, err := http.Get(h.srv.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(b), `lobbydraft_lobby_actions_total{action="join",outcome="ok"} 1`)
}

func TestAccessRoutes_RequireToken(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(t, nil, http.MethodGet, "/v1/access/me/configs", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "LBD005", body.ErrorCode)
}

func TestAccessRoutes_PersonalScope(t *testing.T) {
	h := newHarness(t)
	alice := &models.Caller{PlayerID: "alice"}

	status, _ := h.do(t, alice, http.MethodPost, "/v1/access/me/lists", `{"name":"friends"}`)
	require.Equal(t, http.StatusCreated, status)

	status, _ = h.do(t, alice, http.MethodPut, "/v1/access/me/lists/friends/players/bob", "")
	require.Equal(t, http.StatusOK, status)
	status, _ = h.do(t, alice, http.MethodPut, "/v1/access/me/lists/friends/groups/regulars", "")
	require.Equal(t, http.StatusOK, status)

	status, body := h.do(t, alice, http.MethodGet, "/v1/access/me/lists/friends", "")
	require.Equal(t, http.StatusOK, status)
	list := body.Data.(map[string]any)
	assert.Equal(t, []any{"bob"}, list["players"])
	assert.Equal(t, []any{"regulars"}, list["groups"])

	status, _ = h.do(t, alice, http.MethodPost, "/v1/access/me/configs", `{"name":"ranked"}`)
	require.Equal(t, http.StatusCreated, status)
	status, body = h.do(t, alice, http.MethodPut, "/v1/access/me/configs/ranked/rules/soldier", `{"whitelist":"friends"}`)
	require.Equal(t, http.StatusOK, status)
	rules := body.Data.(map[string]any)["rules"].(map[string]any)
	assert.Equal(t, "friends", rules["soldier"].(map[string]any)["whitelist"])

	// Another player's "me" scope is separate.
	status, body = h.do(t, &models.Caller{PlayerID: "bob"}, http.MethodGet, "/v1/access/me/lists/friends", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "LBD013", body.ErrorCode)
}

func TestAccessRoutes_Errors(t *testing.T) {
	h := newHarness(t)
	alice := &models.Caller{PlayerID: "alice"}

	status, body := h.do(t, alice, http.MethodGet, "/v1/access/guild/configs", "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "LBD022", body.ErrorCode)

	status, _ = h.do(t, alice, http.MethodGet, "/v1/access/team/configs", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = h.do(t, alice, http.MethodPost, "/v1/access/me/configs", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = h.do(t, alice, http.MethodPost, "/v1/access/me/configs", `{"name":"ranked"}`)
	require.Equal(t, http.StatusCreated, status)
	status, body = h.do(t, alice, http.MethodPost, "/v1/access/me/configs", `{"name":"ranked"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "LBD041", body.ErrorCode)

	status, body = h.do(t, alice, http.MethodPut, "/v1/access/me/configs/ranked/rules/wizard", `{"whitelist":"x"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "LBD001", body.ErrorCode)
}

func TestAccessRoutes_GuildScopeForAdmins(t *testing.T) {
	h := newHarness(t)
	admin := &models.Caller{PlayerID: "mod", Admin: true}

	status, _ := h.do(t, admin, http.MethodPost, "/v1/access/guild/lists", `{"name":"banned"}`)
	require.Equal(t, http.StatusCreated, status)

	status, body := h.do(t, admin, http.MethodGet, "/v1/access/guild/lists", "")
	require.Equal(t, http.StatusOK, status)
	lists := body.Data.([]any)
	require.Len(t, lists, 1)
	assert.Equal(t, "guild", lists[0].(map[string]any)["owner"])

	status, _ = h.do(t, admin, http.MethodDelete, "/v1/access/guild/lists/banned", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestCanAssumeRole_DefaultsToCaller(t *testing.T) {
	h := newHarness(t)
	alice := &models.Caller{PlayerID: "alice"}

	status, body := h.do(t, alice, http.MethodGet, "/v1/lobbies/7/access/captain", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body.Data.(map[string]any)["allowed"])

	status, _ = h.do(t, alice, http.MethodGet, "/v1/lobbies/7/access/captain?player=bob", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"7/alice/captain", "7/bob/captain"}, h.lobby.asked)
}
