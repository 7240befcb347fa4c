package errors

import "errors"

var (
	ErrNotYourTurn          = errors.New("not your turn to pick")
	ErrDraftFinished        = errors.New("draft is already finished")
	ErrNotDrafting          = errors.New("lobby is not drafting")
	ErrCaptainsMissing      = errors.New("lobby needs exactly one captain per team")
	ErrInvalidPickTarget    = errors.New("player cannot be picked")
	ErrAssignmentInvariant  = errors.New("terminal assignment needs exactly one open role per team")
	ErrDraftNotFound        = errors.New("draft not found")
	ErrDraftVersionConflict = errors.New("draft was modified concurrently")
	ErrStateDiverged        = errors.New("local draft state diverged from the lobby service")
)

var ErrDraftAlreadyStarted = errors.New("draft has already started")
