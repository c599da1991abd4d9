package admission

import "errors"

var (
	ErrExposureLimit = errors.New("exposure limit exceeded")
	ErrInternal      = errors.New("internal error while processing order")
)
