package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain outcomes.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in the store or cache
// - ErrUnavailable: backing channel or remote temporarily unavailable
// - ErrBadRequest: caller supplied input that cannot be processed
// - ErrUnauthorized: caller is not allowed to perform the operation
var (
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("unavailable")
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
)
