package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vogiaan1904/lobbydraft/internal/delivery"
	errs "github.com/vogiaan1904/lobbydraft/internal/errors"
	"github.com/vogiaan1904/lobbydraft/internal/models"
	"github.com/vogiaan1904/lobbydraft/internal/service"
	pkgErrors "github.com/vogiaan1904/lobbydraft/pkg/errors"
	"github.com/vogiaan1904/lobbydraft/pkg/logger"
	"github.com/vogiaan1904/lobbydraft/pkg/response"
)

const (
	ScopeMe    = "me"
	ScopeGuild = "guild"
)

var httpStatus = map[delivery.Kind]int{
	delivery.KindInvalid:         http.StatusBadRequest,
	delivery.KindUnauthenticated: http.StatusUnauthorized,
	delivery.KindNotFound:        http.StatusNotFound,
	delivery.KindDenied:          http.StatusForbidden,
	delivery.KindPrecondition:    http.StatusConflict,
	delivery.KindConflict:        http.StatusConflict,
	delivery.KindExhausted:       http.StatusConflict,
	delivery.KindUnavailable:     http.StatusBadGateway,
	delivery.KindInternal:        http.StatusInternalServerError,
}

type nameRequest struct {
	Name string `json:"name" validate:"required"`
}

type ruleRequest struct {
	Whitelist string `json:"whitelist"`
	Blacklist string `json:"blacklist"`
}

type HTTPHandler struct {
	accessSvc   service.AccessService
	lobbySvc    service.LobbyService
	tokens      service.TokenService
	feed        http.Handler
	gatherer    prometheus.Gatherer
	sharedScope string
	logger      logger.Logger
	validator   *validator.Validate
}

func NewHTTPHandler(
	accessSvc service.AccessService,
	lobbySvc service.LobbyService,
	tokens service.TokenService,
	feed http.Handler,
	gatherer prometheus.Gatherer,
	sharedScope string,
	l logger.Logger,
) *HTTPHandler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &HTTPHandler{
		accessSvc:   accessSvc,
		lobbySvc:    lobbySvc,
		tokens:      tokens,
		feed:        feed,
		gatherer:    gatherer,
		sharedScope: sharedScope,
		logger:      l,
		validator:   validator.New(),
	}
}

// Routes wires the admin API onto a chi router.
func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(logger.HTTPMiddleware(h.logger))

	r.Get("/healthz", h.HealthCheck)
	r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	if h.feed != nil {
		r.Method(http.MethodGet, "/v1/lobbies/{id}/ws", h.feed)
	}

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.Get("/v1/lobbies/{id}/access/{role}", h.CanAssumeRole)

		r.Route("/v1/access/{scope}", func(r chi.Router) {
			r.Get("/configs", h.ListConfigs)
			r.Post("/configs", h.CreateConfig)
			r.Get("/configs/{name}", h.GetConfig)
			r.Delete("/configs/{name}", h.DeleteConfig)
			r.Put("/configs/{name}/rules/{role}", h.SetRule)
			r.Delete("/configs/{name}/rules/{role}", h.ClearRule)

			r.Get("/lists", h.ListLists)
			r.Post("/lists", h.CreateList)
			r.Get("/lists/{name}", h.GetList)
			r.Delete("/lists/{name}", h.DeleteList)
			r.Put("/lists/{name}/players/{member}", h.AddPlayer)
			r.Delete("/lists/{name}/players/{member}", h.RemovePlayer)
			r.Put("/lists/{name}/groups/{member}", h.AddGroup)
			r.Delete("/lists/{name}/groups/{member}", h.RemoveGroup)
		})
	})

	return r
}

// HealthCheck handles health check requests
func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "lobbydraft",
	})
}

// CanAssumeRole reports the access decision for a player and role. The
// player defaults to the caller.
func (h *HTTPHandler) CanAssumeRole(w http.ResponseWriter, r *http.Request) {
	player := r.URL.Query().Get("player")
	if player == "" {
		c, _ := delivery.CallerFrom(r.Context())
		player = c.PlayerID
	}

	d, err := h.lobbySvc.CanAssumeRole(r.Context(), chi.URLParam(r, "id"), player, chi.URLParam(r, "role"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, d)
}

func (h *HTTPHandler) ListConfigs(w http.ResponseWriter, r *http.Request) {
	h.withOwner(w, r, func(owner string) (any, error) {
		return h.accessSvc.ListConfigs(r.Context(), owner)
	})
}

func (h *HTTPHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	h.withOwner(w, r, func(owner string) (any, error) {
		return h.accessSvc.GetConfig(r.Context(), owner, chi.URLParam(r, "name"))
	})
}

func (h *HTTPHandler) CreateConfig(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withOwnerStatus(w, r, http.StatusCreated, func(owner string) (any, error) {
		return h.accessSvc.CreateConfig(r.Context(), owner, req.Name)
	})
}

func (h *HTTPHandler) DeleteConfig(w http.ResponseWriter, r *http.Request) {
	h.withOwner(w, r, func(owner string) (any, error) {
		return nil, h.accessSvc.DeleteConfig(r.Context(), owner, chi.URLParam(r, "name"))
	})
}

func (h *HTTPHandler) SetRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withOwner(w, r, func(owner string) (any, error) {
		return h.accessSvc.SetRule(r.Context(), owner, chi.URLParam(r, "name"), chi.URLParam(r, "role"), models.AccessRule{
			Whitelist: req.Whitelist,
			Blacklist: req.Blacklist,
		})
	})
}

func (h *HTTPHandler) ClearRule(w http.ResponseWriter, r *http.Request) {
	h.withOwner(w, r, func(owner string) (any, error) {
		return h.accessSvc.ClearRule(r.Context(), owner, chi.URLParam(r, "name"), chi.URLParam(r, "role"))
	})
}

func (h *HTTPHandler) ListLists(w http.ResponseWriter, r *http.Request) {
	h.withOwner(w, r, func(owner string) (any, error) {
		return h.accessSvc.ListLists(r.Context(), owner)
	})
}

func (h *HTTPHandler) GetList(w http.ResponseWriter, r *http.Request) {
	h.withOwner(w, r, func(owner string) (any, error) {
		return h.accessSvc.GetList(r.Context(), owner, chi.URLParam(r, "name"))
	})
}

func (h *HTTPHandler) CreateList(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withOwnerStatus(w, r, http.StatusCreated, func(owner string) (any, error) {
		return h.accessSvc.CreateList(r.Context(), owner, req.Name)
	})
}

func (h *HTTPHandler) DeleteList(w http.ResponseWriter, r *http.Request) {
	h.withOwner(w, r, func(owner string) (any, error) {
		return nil, h.accessSvc.DeleteList(r.Context(), owner, chi.URLParam(r, "name"))
	})
}

func (h *HTTPHandler) AddPlayer(w http.ResponseWriter, r *http.Request) {
	h.withOwner(w, r, func(owner string) (any, error) {
		return h.accessSvc.AddPlayer(r.Context(), owner, chi.URLParam(r, "name"), chi.URLParam(r, "member"))
	})
}

func (h *HTTPHandler) RemovePlayer(w http.ResponseWriter, r *http.Request) {
	h.withOwner(w, r, func(owner string) (any, error) {
		return h.accessSvc.RemovePlayer(r.Context(), owner, chi.URLParam(r, "name"), chi.URLParam(r, "member"))
	})
}

func (h *HTTPHandler) AddGroup(w http.ResponseWriter, r *http.Request) {
	h.withOwner(w, r, func(owner string) (any, error) {
		return h.accessSvc.AddGroup(r.Context(), owner, chi.URLParam(r, "name"), chi.URLParam(r, "member"))
	})
}

func (h *HTTPHandler) RemoveGroup(w http.ResponseWriter, r *http.Request) {
	h.withOwner(w, r, func(owner string) (any, error) {
		return h.accessSvc.RemoveGroup(r.Context(), owner, chi.URLParam(r, "name"), chi.URLParam(r, "member"))
	})
}

// Helper functions

func (h *HTTPHandler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := delivery.Authenticate(r.Context(), h.tokens, r.Header.Get("Authorization"))
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// owner maps the {scope} path segment onto a preference-store owner.
func (h *HTTPHandler) owner(r *http.Request) (string, error) {
	c, _ := delivery.CallerFrom(r.Context())
	switch scope := chi.URLParam(r, "scope"); scope {
	case ScopeMe:
		return c.PlayerID, nil
	case ScopeGuild:
		if !c.Admin {
			return "", errs.ErrScopeForbidden
		}
		return h.sharedScope, nil
	default:
		return "", errs.NewValidationError("scope", fmt.Sprintf("unknown scope %q", scope))
	}
}

func (h *HTTPHandler) withOwner(w http.ResponseWriter, r *http.Request, fn func(owner string) (any, error)) {
	h.withOwnerStatus(w, r, http.StatusOK, fn)
}

func (h *HTTPHandler) withOwnerStatus(w http.ResponseWriter, r *http.Request, status int, fn func(owner string) (any, error)) {
	owner, err := h.owner(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	data, err := fn(owner)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	response.WriteJSON(w, status, data)
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.respondError(w, r, errs.NewValidationError("body", err.Error()))
		return false
	}
	if err := h.validator.Struct(v); err != nil {
		h.respondError(w, r, err)
		return false
	}
	return true
}

func (h *HTTPHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	b, kind := delivery.Classify(err)
	status := httpStatus[kind]
	if status >= http.StatusInternalServerError {
		h.logger.Errorf(r.Context(), "delivery.http: %s %s: %v", r.Method, r.URL.Path, err)
	} else {
		h.logger.Debugf(r.Context(), "delivery.http: %s %s: %v", r.Method, r.URL.Path, err)
	}
	response.WriteError(w, pkgErrors.NewHTTPError(b, status))
}
