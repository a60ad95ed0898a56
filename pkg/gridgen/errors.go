package gridgen

import "errors"

var (
	// ErrInvalidConfiguration is returned for unusable options or an empty
	// branch subset. The discretization is left untouched.
	ErrInvalidConfiguration = errors.New("invalid grid generation configuration")

	// ErrUnknownBranch is returned when a requested branch does not belong to
	// the discretization's network.
	ErrUnknownBranch = errors.New("branch not in discretization network")

	// ErrNilDiscretization is returned when no discretization is given.
	ErrNilDiscretization = errors.New("discretization is nil")
)
