package entities

import "errors"

var (
	ErrInvalidTarget      = errors.New("invalid target specification")
	ErrDuplicateLotNumber = errors.New("lot number already exists")
	ErrBatchUnavailable   = errors.New("batch is not available")
	ErrBatchNotFound      = errors.New("batch not found")
	ErrBlendNotFound      = errors.New("blend not found")
)
