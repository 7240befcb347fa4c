// Package lobbyapi is the HTTP client for the remote lobby/match service,
// the source of truth for queue state.
package lobbyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vogiaan1904/lobbydraft/config"
	errs "github.com/vogiaan1904/lobbydraft/internal/errors"
	"github.com/vogiaan1904/lobbydraft/internal/models"
	pkgLog "github.com/vogiaan1904/lobbydraft/pkg/logger"
)

const serviceName = "lobby-service"

// Client mirrors the remote service's endpoints. Every mutation returns the
// updated lobby snapshot.
type Client interface {
	Create(ctx context.Context, req CreateRequest) (*models.Lobby, error)
	GetActive(ctx context.Context) ([]*models.Lobby, error)
	GetByID(ctx context.Context, lobbyID string) (*models.Lobby, error)
	GetByMatchID(ctx context.Context, matchID string) (*models.Lobby, error)
	Join(ctx context.Context, lobbyID string, player models.QueueEntry) (*models.Lobby, error)
	Leave(ctx context.Context, lobbyID, playerID string) (*models.Lobby, error)
	AddRole(ctx context.Context, lobbyID, playerID string, role models.Role) (*models.Lobby, error)
	RemoveRole(ctx context.Context, lobbyID, playerID string, role models.Role) (*models.Lobby, error)
	Substitute(ctx context.Context, lobbyID, playerID string, replacement models.QueueEntry) (*models.Lobby, error)
	Close(ctx context.Context, lobbyID string) error
}

type httpClient struct {
	http          *http.Client
	baseURL       string
	secret        string
	retryAttempts int
	retryDelay    time.Duration
	l             pkgLog.Logger
}

func New(cfg config.LobbyAPIConfig, l pkgLog.Logger) Client {
	return NewWithClient(&http.Client{Timeout: cfg.Timeout}, cfg, l)
}

func NewWithClient(hc *http.Client, cfg config.LobbyAPIConfig, l pkgLog.Logger) Client {
	return &httpClient{
		http:          hc,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		secret:        cfg.Secret,
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    cfg.RetryDelay,
		l:             l,
	}
}

func (c *httpClient) Create(ctx context.Context, req CreateRequest) (*models.Lobby, error) {
	return c.lobby(ctx, "create", http.MethodPost, "/lobbies", toCreateDTO(req))
}

func (c *httpClient) GetActive(ctx context.Context) ([]*models.Lobby, error) {
	var docs []lobbyDTO
	if err := c.do(ctx, "get-active", http.MethodGet, "/lobbies", nil, &docs); err != nil {
		return nil, err
	}

	out := make([]*models.Lobby, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel(ctx, c.l))
	}
	return out, nil
}

func (c *httpClient) GetByID(ctx context.Context, lobbyID string) (*models.Lobby, error) {
	return c.lobby(ctx, "get", http.MethodGet, "/lobbies/"+url.PathEscape(lobbyID), nil)
}

func (c *httpClient) GetByMatchID(ctx context.Context, matchID string) (*models.Lobby, error) {
	return c.lobby(ctx, "get-by-match", http.MethodGet, "/lobbies/match/"+url.PathEscape(matchID), nil)
}

func (c *httpClient) Join(ctx context.Context, lobbyID string, player models.QueueEntry) (*models.Lobby, error) {
	path := fmt.Sprintf("/lobbies/%s/join", url.PathEscape(lobbyID))
	return c.lobby(ctx, "join", http.MethodPost, path, toPlayerDTO(player))
}

func (c *httpClient) Leave(ctx context.Context, lobbyID, playerID string) (*models.Lobby, error) {
	return c.lobby(ctx, "leave", http.MethodDelete, playerPath(lobbyID, playerID), nil)
}

func (c *httpClient) AddRole(ctx context.Context, lobbyID, playerID string, role models.Role) (*models.Lobby, error) {
	path := playerPath(lobbyID, playerID) + "/roles/" + url.PathEscape(role.String())
	return c.lobby(ctx, "add-role", http.MethodPost, path, nil)
}

func (c *httpClient) RemoveRole(ctx context.Context, lobbyID, playerID string, role models.Role) (*models.Lobby, error) {
	path := playerPath(lobbyID, playerID) + "/roles/" + url.PathEscape(role.String())
	return c.lobby(ctx, "remove-role", http.MethodDelete, path, nil)
}

func (c *httpClient) Substitute(ctx context.Context, lobbyID, playerID string, replacement models.QueueEntry) (*models.Lobby, error) {
	path := fmt.Sprintf("/lobbies/%s/sub/%s/discord", url.PathEscape(lobbyID), url.PathEscape(playerID))
	return c.lobby(ctx, "substitute", http.MethodPost, path, toPlayerDTO(replacement))
}

func (c *httpClient) Close(ctx context.Context, lobbyID string) error {
	return c.do(ctx, "close", http.MethodDelete, "/lobbies/"+url.PathEscape(lobbyID), nil, nil)
}

func playerPath(lobbyID, playerID string) string {
	return fmt.Sprintf("/lobbies/%s/players/discord/%s", url.PathEscape(lobbyID), url.PathEscape(playerID))
}

func (c *httpClient) lobby(ctx context.Context, op, method, path string, body any) (*models.Lobby, error) {
	var doc lobbyDTO
	if err := c.do(ctx, op, method, path, body, &doc); err != nil {
		return nil, err
	}
	return doc.toModel(ctx, c.l), nil
}

// do sends one request. GETs are retried on transport errors and 5xx
// responses; mutations are attempted exactly once.
func (c *httpClient) do(ctx context.Context, op, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errs.NewValidationError("body", err.Error())
		}
		payload = b
	}

	attempts := 1
	if method == http.MethodGet {
		attempts += max(c.retryAttempts, 0)
	}

	var lastErr error
	for i := range attempts {
		if i > 0 {
			select {
			case <-ctx.Done():
				return errs.Remote(serviceName, op, ctx.Err())
			case <-time.After(c.retryDelay):
			}
		}

		retry, err := c.send(ctx, op, method, path, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			break
		}
		c.l.Warnf(ctx, "lobbyapi.httpClient.do: %s %s attempt %d failed: %v", method, path, i+1, err)
	}

	return lastErr
}

func (c *httpClient) send(ctx context.Context, op, method, path string, payload []byte, out any) (bool, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return false, errs.Remote(serviceName, op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.l.Errorf(ctx, "lobbyapi.httpClient.send: %s %s: %v", method, path, err)
		return true, errs.Remote(serviceName, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, errs.Remote(serviceName, op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		mapped := mapError(op, resp.StatusCode, raw)
		if errs.IsRemote(mapped) {
			c.l.Errorf(ctx, "lobbyapi.httpClient.send: %s %s: %v", method, path, mapped)
		}
		return resp.StatusCode >= 500, mapped
	}

	if out == nil || len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, errs.Remote(serviceName, op, fmt.Errorf("decode response: %w", err))
	}
	return false, nil
}

// mapError turns a failure body into the domain error it stands for.
func mapError(op string, status int, raw []byte) error {
	var body errorDTO
	_ = json.Unmarshal(raw, &body)

	wrap := func(sentinel error) error {
		if body.Message == "" {
			return sentinel
		}
		return fmt.Errorf("%w: %s", sentinel, body.Message)
	}

	switch {
	case body.Error == "role-unavailable":
		return wrap(errs.ErrRoleUnavailable)
	case body.Error == "already-queued":
		return wrap(errs.ErrAlreadyQueued)
	case body.Error == "lobby-full":
		return wrap(errs.ErrLobbyFull)
	case body.Error == "not-queued":
		return wrap(errs.ErrNotQueued)
	case status == http.StatusNotFound:
		return wrap(errs.ErrLobbyNotFound)
	case status == http.StatusConflict && op == "join":
		return wrap(errs.ErrRoleUnavailable)
	}

	msg := body.Message
	if msg == "" && body.Error == "" {
		msg = strings.TrimSpace(string(raw))
	}
	return &errs.RemoteError{
		Service: serviceName,
		Op:      op,
		Status:  status,
		Code:    body.Error,
		Message: msg,
	}
}

// IsNotFound reports whether err says the lobby no longer exists.
func IsNotFound(err error) bool {
	return errors.Is(err, errs.ErrLobbyNotFound)
}
