package lobbyapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogiaan1904/lobbydraft/config"
	errs "github.com/vogiaan1904/lobbydraft/internal/errors"
	"github.com/vogiaan1904/lobbydraft/internal/models"
	pkgLog "github.com/vogiaan1904/lobbydraft/pkg/logger"
)

const lobbyDoc = `{
	"id": "l1",
	"status": "queuing",
	"distribution": "captain-draft",
	"requirements": [{"role": "scout", "count": 4, "overfill": false}, {"role": "player", "count": 12, "overfill": true}],
	"queuedPlayers": [
		{"name": "Alice", "discordId": "d1", "steamId": "s1", "roles": ["player", "red-scout", "mystery"]}
	],
	"maxPlayers": 12,
	"createdBy": "d1",
	"region": "eu",
	"matchId": "m1"
}`

func newTestClient(t *testing.T, h http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(config.LobbyAPIConfig{
		BaseURL:       srv.URL,
		Secret:        "s3cret",
		Timeout:       time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}, pkgLog.InitializeTestZapLogger())
}

func TestGetByID_DecodesDocument(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/lobbies/l1", r.URL.Path)
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(lobbyDoc))
	})

	lobby, err := c.GetByID(context.Background(), "l1")
	require.NoError(t, err)

	assert.Equal(t, models.DistributionCaptainDraft, lobby.Distribution)
	assert.Equal(t, models.LobbyStatusQueuing, lobby.Status)
	require.Len(t, lobby.Requirements, 2)
	assert.Equal(t, models.NewRole(models.RoleScout), lobby.Requirements[0].Role)
	require.Len(t, lobby.Queue, 1)
	assert.Equal(t, "d1", lobby.Queue[0].PlayerID)
	assert.Equal(t, "s1", lobby.Queue[0].ExternalID)
	assert.Equal(t, []models.Role{
		models.NewRole(models.RolePlayer),
		models.NewRole(models.RoleScout).Colored(models.TeamA),
	}, lobby.Queue[0].Roles, "unknown tags are dropped")
}

func TestJoin_SendsPlayerAndRoles(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/lobbies/l1/join", r.URL.Path)

		var body playerDTO
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "d2", body.DiscordID)
		assert.Equal(t, []string{"scout", "team_b"}, body.Roles)
		_, _ = w.Write([]byte(lobbyDoc))
	})

	_, err := c.Join(context.Background(), "l1", models.QueueEntry{
		PlayerID: "d2",
		Name:     "Bob",
		Roles:    []models.Role{models.NewRole(models.RoleScout), models.TeamB.Tag()},
	})
	require.NoError(t, err)
}

func TestAddRole_Path(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/lobbies/l1/players/discord/d1/roles/blu-medic", r.URL.Path)
		_, _ = w.Write([]byte(lobbyDoc))
	})

	_, err := c.AddRole(context.Background(), "l1", "d1", models.NewRole(models.RoleMedic).Colored(models.TeamB))
	require.NoError(t, err)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		call   func(Client) error
		want   error
	}{
		{"not found", http.StatusNotFound, `{"error":"not-found","message":"no lobby"}`,
			func(c Client) error { _, err := c.GetByID(context.Background(), "x"); return err }, errs.ErrLobbyNotFound},
		{"role unavailable", http.StatusBadRequest, `{"error":"role-unavailable"}`,
			func(c Client) error { _, err := c.AddRole(context.Background(), "l1", "d1", models.NewRole(models.RoleScout)); return err }, errs.ErrRoleUnavailable},
		{"conflict on join", http.StatusConflict, `{"message":"taken"}`,
			func(c Client) error { _, err := c.Join(context.Background(), "l1", models.QueueEntry{PlayerID: "d1"}); return err }, errs.ErrRoleUnavailable},
		{"already queued", http.StatusConflict, `{"error":"already-queued"}`,
			func(c Client) error { _, err := c.Join(context.Background(), "l1", models.QueueEntry{PlayerID: "d1"}); return err }, errs.ErrAlreadyQueued},
		{"lobby full", http.StatusBadRequest, `{"error":"lobby-full"}`,
			func(c Client) error { _, err := c.Join(context.Background(), "l1", models.QueueEntry{PlayerID: "d1"}); return err }, errs.ErrLobbyFull},
		{"other", http.StatusBadRequest, `{"error":"weird","message":"no"}`,
			func(c Client) error { return c.Close(context.Background(), "l1") }, errs.ErrRemoteService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			assert.ErrorIs(t, tt.call(c), tt.want)
		})
	}
}

func TestRemoteErrorCarriesDetails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"weird","message":"no"}`))
	})

	_, err := c.Leave(context.Background(), "l1", "d1")
	var remote *errs.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "leave", remote.Op)
	assert.Equal(t, http.StatusBadRequest, remote.Status)
	assert.Equal(t, "weird", remote.Code)
}

func TestRetries(t *testing.T) {
	t.Run("gets are retried on 5xx", func(t *testing.T) {
		var calls int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(`[` + lobbyDoc + `]`))
		})

		lobbies, err := c.GetActive(context.Background())
		require.NoError(t, err)
		assert.Len(t, lobbies, 1)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("mutations are attempted once", func(t *testing.T) {
		var calls int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := c.AddRole(context.Background(), "l1", "d1", models.NewRole(models.RolePicked))
		require.Error(t, err)
		assert.True(t, errs.IsRemote(err))
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}
