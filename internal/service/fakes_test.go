package service

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/vogiaan1904/lobbydraft/config"
	"github.com/vogiaan1904/lobbydraft/internal/access"
	errs "github.com/vogiaan1904/lobbydraft/internal/errors"
	"github.com/vogiaan1904/lobbydraft/internal/lobbyapi"
	"github.com/vogiaan1904/lobbydraft/internal/metrics"
	"github.com/vogiaan1904/lobbydraft/internal/models"
	"github.com/vogiaan1904/lobbydraft/internal/queue"
	repo "github.com/vogiaan1904/lobbydraft/internal/repository/redis"
	pkgLog "github.com/vogiaan1904/lobbydraft/pkg/logger"
)

// fakeLobbyAPI is an in-memory remote lobby service.
type fakeLobbyAPI struct {
	mu      sync.Mutex
	lobbies map[string]*models.Lobby
	nextID  int

	addCalls    int
	failAddAt   int // fail the n-th AddRole call, 0 disables
	removeErr   error
	removeCalls []models.RoleChange
	joins       int
}

func newFakeLobbyAPI(lobbies ...models.Lobby) *fakeLobbyAPI {
	f := &fakeLobbyAPI{lobbies: map[string]*models.Lobby{}}
	for _, l := range lobbies {
		l := l.Clone()
		f.lobbies[l.ID] = &l
	}
	return f
}

func (f *fakeLobbyAPI) snapshot(id string) (*models.Lobby, error) {
	l, ok := f.lobbies[id]
	if !ok {
		return nil, errs.ErrLobbyNotFound
	}
	c := l.Clone()
	c.AccessConfig = ""
	return &c, nil
}

func (f *fakeLobbyAPI) Create(_ context.Context, req lobbyapi.CreateRequest) (*models.Lobby, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := "lobby-" + strconv.Itoa(f.nextID)
	f.lobbies[id] = &models.Lobby{
		ID:           id,
		Distribution: req.Distribution,
		Requirements: req.Requirements,
		Queue:        req.Queue,
		MaxPlayers:   req.MaxPlayers,
		Status:       models.LobbyStatusQueuing,
		CreatedBy:    req.CreatedBy,
		CreatedAt:    time.Now(),
	}
	return f.snapshot(id)
}

func (f *fakeLobbyAPI) GetActive(context.Context) ([]*models.Lobby, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Lobby
	for _, id := range sortedKeys(f.lobbies) {
		if f.lobbies[id].Status.Active() {
			l, _ := f.snapshot(id)
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLobbyAPI) GetByID(_ context.Context, id string) (*models.Lobby, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot(id)
}

func (f *fakeLobbyAPI) GetByMatchID(_ context.Context, matchID string) (*models.Lobby, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, l := range f.lobbies {
		if l.MatchID == matchID {
			return f.snapshot(id)
		}
	}
	return nil, errs.ErrLobbyNotFound
}

func (f *fakeLobbyAPI) Join(_ context.Context, id string, p models.QueueEntry) (*models.Lobby, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.lobbies[id]
	if !ok {
		return nil, errs.ErrLobbyNotFound
	}
	if l.IsQueued(p.PlayerID) {
		return nil, errs.ErrAlreadyQueued
	}
	f.joins++
	p.Roles = slices.Clone(p.Roles)
	l.Queue = append(l.Queue, p)
	return f.snapshot(id)
}

func (f *fakeLobbyAPI) Leave(_ context.Context, id, playerID string) (*models.Lobby, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.lobbies[id]
	if !ok {
		return nil, errs.ErrLobbyNotFound
	}
	i := slices.IndexFunc(l.Queue, func(e models.QueueEntry) bool { return e.PlayerID == playerID })
	if i < 0 {
		return nil, errs.ErrNotQueued
	}
	l.Queue = slices.Delete(l.Queue, i, i+1)
	return f.snapshot(id)
}

func (f *fakeLobbyAPI) AddRole(_ context.Context, id, playerID string, role models.Role) (*models.Lobby, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls++
	if f.failAddAt > 0 && f.addCalls == f.failAddAt {
		return nil, &errs.RemoteError{Service: "lobby-service", Op: "add-role", Status: 503}
	}
	l, ok := f.lobbies[id]
	if !ok {
		return nil, errs.ErrLobbyNotFound
	}
	e, ok := l.Entry(playerID)
	if !ok {
		return nil, errs.ErrNotQueued
	}
	if !e.HasRole(role) {
		e.Roles = append(e.Roles, role)
	}
	return f.snapshot(id)
}

func (f *fakeLobbyAPI) RemoveRole(_ context.Context, id, playerID string, role models.Role) (*models.Lobby, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCalls = append(f.removeCalls, models.RoleChange{PlayerID: playerID, Role: role})
	if f.removeErr != nil {
		return nil, f.removeErr
	}
	l, ok := f.lobbies[id]
	if !ok {
		return nil, errs.ErrLobbyNotFound
	}
	e, ok := l.Entry(playerID)
	if !ok {
		return nil, errs.ErrNotQueued
	}
	e.Roles = slices.DeleteFunc(e.Roles, func(r models.Role) bool { return r == role })
	return f.snapshot(id)
}

func (f *fakeLobbyAPI) Substitute(_ context.Context, id, playerID string, repl models.QueueEntry) (*models.Lobby, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.lobbies[id]
	if !ok {
		return nil, errs.ErrLobbyNotFound
	}
	e, ok := l.Entry(playerID)
	if !ok {
		return nil, errs.ErrNotQueued
	}
	repl.Roles = slices.Clone(e.Roles)
	*e = repl
	return f.snapshot(id)
}

func (f *fakeLobbyAPI) Close(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.lobbies[id]
	if !ok {
		return errs.ErrLobbyNotFound
	}
	l.Status = models.LobbyStatusClosed
	return nil
}

func (f *fakeLobbyAPI) entry(t *testing.T, lobbyID, playerID string) models.QueueEntry {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.lobbies[lobbyID].Entry(playerID)
	if !ok {
		t.Fatalf("%s not queued in %s", playerID, lobbyID)
	}
	return *e
}

// fakeDraftRepo mirrors the CAS semantics of the Redis repository.
type fakeDraftRepo struct {
	mu            sync.Mutex
	drafts        map[string]models.Draft
	accessConfigs map[string]string
	announcements map[string][]models.Announcement
	cleared       []string
	saveErr       error
}

func newFakeDraftRepo() *fakeDraftRepo {
	return &fakeDraftRepo{
		drafts:        map[string]models.Draft{},
		accessConfigs: map[string]string{},
		announcements: map[string][]models.Announcement{},
	}
}

var _ repo.DraftRepository = (*fakeDraftRepo)(nil)

func (r *fakeDraftRepo) Get(_ context.Context, id string) (*models.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drafts[id]
	if !ok {
		return nil, errs.ErrDraftNotFound
	}
	c := d.Clone()
	return &c, nil
}

func (r *fakeDraftRepo) Save(_ context.Context, d *models.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	cur, ok := r.drafts[d.LobbyID]
	switch {
	case ok && cur.Version != d.Version:
		return errs.ErrDraftVersionConflict
	case !ok && d.Version != 0:
		return errs.ErrDraftNotFound
	}
	d.Version++
	r.drafts[d.LobbyID] = d.Clone()
	return nil
}

func (r *fakeDraftRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, id)
	delete(r.accessConfigs, id)
	delete(r.announcements, id)
	return nil
}

func (r *fakeDraftRepo) SetAccessConfig(_ context.Context, id, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accessConfigs[id] = name
	return nil
}

func (r *fakeDraftRepo) GetAccessConfig(_ context.Context, id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accessConfigs[id], nil
}

func (r *fakeDraftRepo) AddAnnouncement(_ context.Context, id string, a models.Announcement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.announcements[id] = append(r.announcements[id], a)
	return nil
}

func (r *fakeDraftRepo) GetAnnouncements(_ context.Context, id string) ([]models.Announcement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.announcements[id]), nil
}

func (r *fakeDraftRepo) DueExpiries(_ context.Context, now time.Time, limit int64) ([]repo.ExpiryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repo.ExpiryEntry
	for _, id := range sortedKeys(r.drafts) {
		d := r.drafts[id]
		if d.Phase == models.PhaseDrafting && !d.TurnExpired && d.PickExpires != nil && !d.PickExpires.After(now) {
			out = append(out, repo.ExpiryEntry{LobbyID: id, Deadline: *d.PickExpires})
		}
	}
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeDraftRepo) ClearExpiry(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared = append(r.cleared, id)
	return nil
}

func (r *fakeDraftRepo) draft(id string) (models.Draft, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drafts[id]
	return d, ok
}

type fakeUpdates struct {
	mu     sync.Mutex
	events []models.LobbyUpdateEvent
}

func (u *fakeUpdates) Publish(_ context.Context, evt models.LobbyUpdateEvent) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.events = append(u.events, evt)
	return nil
}

func (u *fakeUpdates) Subscribe(context.Context, string) (<-chan models.LobbyUpdateEvent, error) {
	return nil, errors.New("not supported")
}

func (u *fakeUpdates) types() []models.UpdateType {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]models.UpdateType, 0, len(u.events))
	for _, e := range u.events {
		out = append(out, e.UpdateType)
	}
	return out
}

// fakeAccessStore serves access configs and lists per owner.
type fakeAccessStore struct {
	configs map[string]models.AccessConfigs
	lists   map[string]models.AccessLists
}

func (s fakeAccessStore) GetConfigs(_ context.Context, owner string) (models.AccessConfigs, error) {
	return s.configs[owner], nil
}

func (s fakeAccessStore) GetLists(_ context.Context, owner string) (models.AccessLists, error) {
	return s.lists[owner], nil
}

type fakeRoster struct{}

func (fakeRoster) Groups(context.Context, string) ([]string, error) { return nil, nil }

type harness struct {
	api      *fakeLobbyAPI
	drafts   *fakeDraftRepo
	updates  *fakeUpdates
	draftSvc *draftService
	svc      LobbyService
	mgr      queue.Manager
	clock    time.Time
}

func newHarness(t *testing.T, store fakeAccessStore, lobbies ...models.Lobby) *harness {
	t.Helper()
	l := pkgLog.InitializeTestZapLogger()

	h := &harness{
		api:     newFakeLobbyAPI(lobbies...),
		drafts:  newFakeDraftRepo(),
		updates: &fakeUpdates{},
		clock:   time.Now(),
	}
	h.mgr = queue.NewManager(config.QueueConfig{WorkerIdleTimeout: time.Minute, MailboxSize: 8}, l)
	t.Cleanup(h.mgr.Shutdown)

	h.draftSvc = NewDraftService(h.api, h.drafts, nil, h.updates, metrics.NewNop(),
		config.DraftConfig{PickTimeout: time.Minute, PickOrder: "alternate"}, l).(*draftService)
	h.draftSvc.now = func() time.Time { return h.clock }

	resolver := access.NewResolver(store, fakeRoster{}, "guild", l)
	h.svc = NewLobbyService(h.api, h.drafts, resolver, h.draftSvc, h.mgr, nil, h.updates, metrics.NewNop(), l)
	return h
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
