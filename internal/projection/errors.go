package projection

import "errors"

var (
	ErrNotConverged = errors.New("projection did not converge")
	ErrUnknownMode  = errors.New("unknown projection mode")
)
