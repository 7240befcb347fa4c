// Package delivery holds what the gRPC and HTTP transports share: the
// mapping from service errors to client-facing codes and caller plumbing.
package delivery

import (
	"errors"

	"github.com/go-playground/validator/v10"
	errs "github.com/vogiaan1904/lobbydraft/internal/errors"
	"github.com/vogiaan1904/lobbydraft/internal/queue"
	"github.com/vogiaan1904/lobbydraft/internal/service"
	pkgErrors "github.com/vogiaan1904/lobbydraft/pkg/errors"
)

// Kind groups errors by how a transport should report them.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalid
	KindUnauthenticated
	KindNotFound
	KindDenied
	KindPrecondition
	KindConflict
	KindExhausted
	KindUnavailable
)

type mapping struct {
	target error
	code   string
	kind   Kind
}

// Order matters: typed errors that unwrap to a sentinel must match it first.
var table = []mapping{
	{errs.ErrInvalidRole, "LBD001", KindInvalid},
	{errs.ErrInvalidInput, "LBD002", KindInvalid},

	{service.ErrTokenEmpty, "LBD005", KindUnauthenticated},
	{service.ErrTokenInvalid, "LBD006", KindUnauthenticated},
	{service.ErrTokenUnexpectedSignature, "LBD006", KindUnauthenticated},
	{service.ErrTokenInvalidClaims, "LBD006", KindUnauthenticated},

	{errs.ErrLobbyNotFound, "LBD010", KindNotFound},
	{errs.ErrNotQueued, "LBD011", KindNotFound},
	{errs.ErrConfigNotFound, "LBD012", KindNotFound},
	{errs.ErrListNotFound, "LBD013", KindNotFound},
	{errs.ErrDraftNotFound, "LBD014", KindNotFound},

	{errs.ErrAccessDenied, "LBD020", KindDenied},
	{errs.ErrNotLobbyOwner, "LBD021", KindDenied},
	{errs.ErrScopeForbidden, "LBD022", KindDenied},

	{errs.ErrNotYourTurn, "LBD030", KindPrecondition},
	{errs.ErrDraftFinished, "LBD031", KindPrecondition},
	{errs.ErrNotDrafting, "LBD032", KindPrecondition},
	{errs.ErrPlayerLocked, "LBD033", KindPrecondition},
	{errs.ErrLobbyClosed, "LBD034", KindPrecondition},
	{errs.ErrInvalidPickTarget, "LBD035", KindPrecondition},
	{errs.ErrRoleUnavailable, "LBD036", KindPrecondition},
	{errs.ErrDraftAlreadyStarted, "LBD037", KindPrecondition},
	{errs.ErrCaptainsMissing, "LBD038", KindPrecondition},
	{errs.ErrDraftVersionConflict, "LBD039", KindPrecondition},

	{errs.ErrAlreadyQueued, "LBD040", KindConflict},
	{errs.ErrConfigExists, "LBD041", KindConflict},
	{errs.ErrListExists, "LBD042", KindConflict},

	{errs.ErrLobbyFull, "LBD050", KindExhausted},

	{errs.ErrRemoteService, "LBD060", KindUnavailable},
	{queue.ErrManagerClosed, "LBD061", KindUnavailable},

	{errs.ErrStateDiverged, "LBD090", KindInternal},
	{errs.ErrAssignmentInvariant, "LBD091", KindInternal},
}

// Classify maps a service error onto a business code. The message is the
// error text for everything a client can act on; internal failures stay
// opaque apart from their code.
func Classify(err error) (*pkgErrors.BusinessError, Kind) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return pkgErrors.NewBusinessError("LBD002", verrs.Error()), KindInvalid
	}

	for _, m := range table {
		if errors.Is(err, m.target) {
			if m.kind == KindInternal {
				return pkgErrors.NewBusinessError(m.code, m.target.Error()), m.kind
			}
			return pkgErrors.NewBusinessError(m.code, err.Error()), m.kind
		}
	}

	return pkgErrors.NewBusinessError("LBD099", "internal server error"), KindInternal
}
