package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	errs "github.com/vogiaan1904/lobbydraft/internal/errors"
	"github.com/vogiaan1904/lobbydraft/internal/models"
	repo "github.com/vogiaan1904/lobbydraft/internal/repository/redis"
	pkgLog "github.com/vogiaan1904/lobbydraft/pkg/logger"
)

// AccessService manages the access configs and lists one owner keeps in the
// preference store.
type AccessService interface {
	ListConfigs(ctx context.Context, owner string) ([]models.AccessConfig, error)
	GetConfig(ctx context.Context, owner, name string) (*models.AccessConfig, error)
	CreateConfig(ctx context.Context, owner, name string) (*models.AccessConfig, error)
	DeleteConfig(ctx context.Context, owner, name string) error
	SetRule(ctx context.Context, owner, config, role string, rule models.AccessRule) (*models.AccessConfig, error)
	ClearRule(ctx context.Context, owner, config, role string) (*models.AccessConfig, error)

	ListLists(ctx context.Context, owner string) ([]models.AccessList, error)
	GetList(ctx context.Context, owner, name string) (*models.AccessList, error)
	CreateList(ctx context.Context, owner, name string) (*models.AccessList, error)
	DeleteList(ctx context.Context, owner, name string) error
	AddPlayer(ctx context.Context, owner, list, playerID string) (*models.AccessList, error)
	RemovePlayer(ctx context.Context, owner, list, playerID string) (*models.AccessList, error)
	AddGroup(ctx context.Context, owner, list, groupID string) (*models.AccessList, error)
	RemoveGroup(ctx context.Context, owner, list, groupID string) (*models.AccessList, error)
}

type accessService struct {
	repo repo.AccessRepository
	l    pkgLog.Logger
}

func NewAccessService(repo repo.AccessRepository, l pkgLog.Logger) AccessService {
	return &accessService{
		repo: repo,
		l:    l,
	}
}

func (s *accessService) ListConfigs(ctx context.Context, owner string) ([]models.AccessConfig, error) {
	configs, err := s.repo.GetConfigs(ctx, owner)
	if err != nil {
		return nil, s.fail(ctx, "ListConfigs", err)
	}
	return sortedValues(configs), nil
}

func (s *accessService) GetConfig(ctx context.Context, owner, name string) (*models.AccessConfig, error) {
	configs, err := s.repo.GetConfigs(ctx, owner)
	if err != nil {
		return nil, s.fail(ctx, "GetConfig", err)
	}
	c, ok := configs[name]
	if !ok {
		return nil, s.fail(ctx, "GetConfig", fmt.Errorf("%w: %q", errs.ErrConfigNotFound, name))
	}
	return &c, nil
}

func (s *accessService) CreateConfig(ctx context.Context, owner, name string) (*models.AccessConfig, error) {
	if err := validName("name", name); err != nil {
		return nil, s.fail(ctx, "CreateConfig", err)
	}

	created := models.AccessConfig{Name: name, Owner: owner, Rules: map[models.Role]models.AccessRule{}}
	_, err := s.repo.UpdateConfigs(ctx, owner, func(configs models.AccessConfigs) error {
		if _, exists := configs[name]; exists {
			return fmt.Errorf("%w: %q", errs.ErrConfigExists, name)
		}
		configs[name] = created
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "CreateConfig", err)
	}

	s.l.Infof(ctx, "access config %q created for %s", name, owner)
	return &created, nil
}

func (s *accessService) DeleteConfig(ctx context.Context, owner, name string) error {
	_, err := s.repo.UpdateConfigs(ctx, owner, func(configs models.AccessConfigs) error {
		if _, ok := configs[name]; !ok {
			return fmt.Errorf("%w: %q", errs.ErrConfigNotFound, name)
		}
		delete(configs, name)
		return nil
	})
	return s.fail(ctx, "DeleteConfig", err)
}

func (s *accessService) SetRule(ctx context.Context, owner, config, role string, rule models.AccessRule) (*models.AccessConfig, error) {
	r, err := models.ParseRole(role)
	if err != nil {
		return nil, s.fail(ctx, "SetRule", err)
	}
	if rule.Empty() {
		return nil, s.fail(ctx, "SetRule", errs.NewValidationError("rule", "a whitelist or blacklist is required"))
	}

	c, err := s.updateConfig(ctx, owner, config, func(c *models.AccessConfig) {
		c.Rules[r] = rule
	})
	if err != nil {
		return nil, s.fail(ctx, "SetRule", err)
	}

	s.warnUnknownLists(ctx, owner, rule)
	return c, nil
}

func (s *accessService) ClearRule(ctx context.Context, owner, config, role string) (*models.AccessConfig, error) {
	r, err := models.ParseRole(role)
	if err != nil {
		return nil, s.fail(ctx, "ClearRule", err)
	}

	c, err := s.updateConfig(ctx, owner, config, func(c *models.AccessConfig) {
		delete(c.Rules, r)
	})
	return c, s.fail(ctx, "ClearRule", err)
}

func (s *accessService) ListLists(ctx context.Context, owner string) ([]models.AccessList, error) {
	lists, err := s.repo.GetLists(ctx, owner)
	if err != nil {
		return nil, s.fail(ctx, "ListLists", err)
	}
	return sortedValues(lists), nil
}

func (s *accessService) GetList(ctx context.Context, owner, name string) (*models.AccessList, error) {
	lists, err := s.repo.GetLists(ctx, owner)
	if err != nil {
		return nil, s.fail(ctx, "GetList", err)
	}
	l, ok := lists[name]
	if !ok {
		return nil, s.fail(ctx, "GetList", fmt.Errorf("%w: %q", errs.ErrListNotFound, name))
	}
	return &l, nil
}

func (s *accessService) CreateList(ctx context.Context, owner, name string) (*models.AccessList, error) {
	if err := validName("name", name); err != nil {
		return nil, s.fail(ctx, "CreateList", err)
	}

	created := models.AccessList{Name: name, Owner: owner, Players: []string{}, Groups: []string{}}
	_, err := s.repo.UpdateLists(ctx, owner, func(lists models.AccessLists) error {
		if _, exists := lists[name]; exists {
			return fmt.Errorf("%w: %q", errs.ErrListExists, name)
		}
		lists[name] = created
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "CreateList", err)
	}

	s.l.Infof(ctx, "access list %q created for %s", name, owner)
	return &created, nil
}

func (s *accessService) DeleteList(ctx context.Context, owner, name string) error {
	_, err := s.repo.UpdateLists(ctx, owner, func(lists models.AccessLists) error {
		if _, ok := lists[name]; !ok {
			return fmt.Errorf("%w: %q", errs.ErrListNotFound, name)
		}
		delete(lists, name)
		return nil
	})
	return s.fail(ctx, "DeleteList", err)
}

func (s *accessService) AddPlayer(ctx context.Context, owner, list, playerID string) (*models.AccessList, error) {
	if err := validName("player_id", playerID); err != nil {
		return nil, s.fail(ctx, "AddPlayer", err)
	}
	l, err := s.updateList(ctx, owner, list, func(l *models.AccessList) { l.AddPlayer(playerID) })
	return l, s.fail(ctx, "AddPlayer", err)
}

func (s *accessService) RemovePlayer(ctx context.Context, owner, list, playerID string) (*models.AccessList, error) {
	l, err := s.updateList(ctx, owner, list, func(l *models.AccessList) { l.RemovePlayer(playerID) })
	return l, s.fail(ctx, "RemovePlayer", err)
}

func (s *accessService) AddGroup(ctx context.Context, owner, list, groupID string) (*models.AccessList, error) {
	if err := validName("group_id", groupID); err != nil {
		return nil, s.fail(ctx, "AddGroup", err)
	}
	l, err := s.updateList(ctx, owner, list, func(l *models.AccessList) { l.AddGroup(groupID) })
	return l, s.fail(ctx, "AddGroup", err)
}

func (s *accessService) RemoveGroup(ctx context.Context, owner, list, groupID string) (*models.AccessList, error) {
	l, err := s.updateList(ctx, owner, list, func(l *models.AccessList) { l.RemoveGroup(groupID) })
	return l, s.fail(ctx, "RemoveGroup", err)
}

func (s *accessService) updateConfig(ctx context.Context, owner, name string, mutate func(*models.AccessConfig)) (*models.AccessConfig, error) {
	var out models.AccessConfig
	_, err := s.repo.UpdateConfigs(ctx, owner, func(configs models.AccessConfigs) error {
		c, ok := configs[name]
		if !ok {
			return fmt.Errorf("%w: %q", errs.ErrConfigNotFound, name)
		}
		c.Rules = maps.Clone(c.Rules)
		if c.Rules == nil {
			c.Rules = map[models.Role]models.AccessRule{}
		}
		mutate(&c)
		configs[name] = c
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *accessService) updateList(ctx context.Context, owner, name string, mutate func(*models.AccessList)) (*models.AccessList, error) {
	var out models.AccessList
	_, err := s.repo.UpdateLists(ctx, owner, func(lists models.AccessLists) error {
		l, ok := lists[name]
		if !ok {
			return fmt.Errorf("%w: %q", errs.ErrListNotFound, name)
		}
		mutate(&l)
		lists[name] = l
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// warnUnknownLists flags rules that name lists the owner does not have.
// They may still resolve in the shared scope, and unresolved lists are
// ignored at check time.
func (s *accessService) warnUnknownLists(ctx context.Context, owner string, rule models.AccessRule) {
	lists, err := s.repo.GetLists(ctx, owner)
	if err != nil {
		return
	}
	for _, name := range []string{rule.Whitelist, rule.Blacklist} {
		if _, ok := lists[name]; name != "" && !ok {
			s.l.Warnf(ctx, "service.accessService.SetRule: list %q is not defined by %s", name, owner)
		}
	}
}

// fail logs err and wraps store failures as remote errors.
func (s *accessService) fail(ctx context.Context, method string, err error) error {
	if err == nil {
		return nil
	}
	if isAccessRejection(err) {
		s.l.Warnf(ctx, "service.accessService.%s: %v", method, err)
		return err
	}
	s.l.Errorf(ctx, "service.accessService.%s: %v", method, err)
	if errs.IsRemote(err) {
		return err
	}
	return errs.Remote("preference-store", method, err)
}

func isAccessRejection(err error) bool {
	for _, target := range []error{
		errs.ErrConfigNotFound, errs.ErrListNotFound,
		errs.ErrConfigExists, errs.ErrListExists,
		errs.ErrInvalidInput, errs.ErrInvalidRole,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func validName(field, v string) error {
	if v == "" {
		return errs.NewValidationError(field, "must not be empty")
	}
	if len(v) > 64 {
		return errs.NewValidationError(field, "must be at most 64 characters")
	}
	return nil
}

func sortedValues[M ~map[string]V, V any](m M) []V {
	out := make([]V, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		out = append(out, m[k])
	}
	return out
}
