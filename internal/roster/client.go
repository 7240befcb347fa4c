// Package roster looks up a player's chat-platform groups.
package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/vogiaan1904/lobbydraft/config"
	errs "github.com/vogiaan1904/lobbydraft/internal/errors"
	pkgLog "github.com/vogiaan1904/lobbydraft/pkg/logger"
	"golang.org/x/sync/singleflight"
)

const serviceName = "roster"

// Roster resolves the group ids a player holds in the community.
type Roster interface {
	Groups(ctx context.Context, playerID string) ([]string, error)
}

type memberResponse struct {
	Roles []string `json:"roles"`
}

type httpRoster struct {
	http    *http.Client
	baseURL string
	token   string
	guildID string
	group   singleflight.Group
	l       pkgLog.Logger
}

func New(cfg config.RosterConfig, l pkgLog.Logger) Roster {
	return NewWithClient(&http.Client{Timeout: cfg.Timeout}, cfg, l)
}

func NewWithClient(hc *http.Client, cfg config.RosterConfig, l pkgLog.Logger) Roster {
	return &httpRoster{
		http:    hc,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.BotToken,
		guildID: cfg.GuildID,
		l:       l,
	}
}

// Groups returns nil for players who are not guild members. Concurrent
// lookups for the same player share one request.
func (r *httpRoster) Groups(ctx context.Context, playerID string) ([]string, error) {
	v, err, _ := r.group.Do(playerID, func() (any, error) {
		return r.fetch(ctx, playerID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

func (r *httpRoster) fetch(ctx context.Context, playerID string) ([]string, error) {
	u := fmt.Sprintf("%s/guilds/%s/members/%s", r.baseURL, url.PathEscape(r.guildID), url.PathEscape(playerID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errs.Remote(serviceName, "groups", err)
	}
	req.Header.Set("Authorization", "Bot "+r.token)
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		r.l.Errorf(ctx, "roster.httpRoster.fetch: player %s: %v", playerID, err)
		return nil, errs.Remote(serviceName, "groups", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return []string{}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r.l.Errorf(ctx, "roster.httpRoster.fetch: player %s: status %d", playerID, resp.StatusCode)
		return nil, &errs.RemoteError{
			Service: serviceName,
			Op:      "groups",
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(string(body)),
		}
	}

	var member memberResponse
	if err := json.Unmarshal(body, &member); err != nil {
		return nil, errs.Remote(serviceName, "groups", err)
	}
	if member.Roles == nil {
		member.Roles = []string{}
	}

	return member.Roles, nil
}
