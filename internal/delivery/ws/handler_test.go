package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "github.com/vogiaan1904/lobbydraft/internal/errors"
	"github.com/vogiaan1904/lobbydraft/internal/models"
	"github.com/vogiaan1904/lobbydraft/internal/service"
	"github.com/vogiaan1904/lobbydraft/pkg/logger"
)

type fakeSubscriber struct {
	ch chan models.LobbyUpdateEvent
}

func (f *fakeSubscriber) Subscribe(ctx context.Context, lobbyID string) (<-chan models.LobbyUpdateEvent, error) {
	return f.ch, nil
}

type fakeLobbies map[string]*service.LobbyOutput

func (f fakeLobbies) GetByID(_ context.Context, id string) (*service.LobbyOutput, error) {
	out, ok := f[id]
	if !ok {
		return nil, errs.ErrLobbyNotFound
	}
	return out, nil
}

func newServer(t *testing.T, sub *fakeSubscriber, lobbies fakeLobbies) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/v1/lobbies/{id}/ws", NewHandler(sub, lobbies, logger.InitializeTestZapLogger()))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestHandler_StreamsSnapshotThenUpdates(t *testing.T) {
	sub := &fakeSubscriber{ch: make(chan models.LobbyUpdateEvent, 2)}
	srv := newServer(t, sub, fakeLobbies{"7": {Lobby: &models.Lobby{ID: "7"}}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/lobbies/7/ws"
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{Subprotocols: []string{Subprotocol}})
	require.NoError(t, err)
	defer c.CloseNow()

	var first Message
	require.NoError(t, wsjson.Read(ctx, c, &first))
	assert.Equal(t, "snapshot", first.Type)
	require.NotNil(t, first.Lobby)
	assert.Equal(t, "7", first.Lobby.Lobby.ID)

	sub.ch <- models.LobbyUpdateEvent{LobbyID: "7", UpdateType: models.UpdateTypePlayerJoined, PlayerID: "p1"}
	var second Message
	require.NoError(t, wsjson.Read(ctx, c, &second))
	assert.Equal(t, "update", second.Type)
	require.NotNil(t, second.Update)
	assert.Equal(t, models.UpdateTypePlayerJoined, second.Update.UpdateType)
	assert.Equal(t, "p1", second.Update.PlayerID)

	sub.ch <- models.LobbyUpdateEvent{LobbyID: "7", UpdateType: models.UpdateTypeLobbyClosed}
	var third Message
	require.NoError(t, wsjson.Read(ctx, c, &third))
	assert.Equal(t, models.UpdateTypeLobbyClosed, third.Update.UpdateType)

	_, _, err = c.Read(ctx)
	assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
}

func TestHandler_UnknownLobby(t *testing.T) {
	srv := newServer(t, &fakeSubscriber{}, fakeLobbies{})

	res, err := http.Get(srv.URL + "/v1/lobbies/404/ws")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}
