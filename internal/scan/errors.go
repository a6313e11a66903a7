package scan

import "errors"

var (
	ErrUnknownMetric = errors.New("unknown metric")
	ErrInvalidRange  = errors.New("invalid seed range")
	ErrInvalidTarget = errors.New("invalid target")
	ErrInvalidParams = errors.New("invalid metric params")
)
