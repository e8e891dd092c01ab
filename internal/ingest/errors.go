package ingest

import "codeberg.org/mutker/camsync/internal/errors"

const (
	ErrMissingConfig    = errors.ErrMissingConfig
	ErrConnectionFailed = errors.ErrConnectionFailed
	ErrTimeout          = errors.ErrTimeout

	ErrSubscribeFailed = errors.ErrorCode("ingest_subscribe_failed")
)
