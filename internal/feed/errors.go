package feed

import dErrors "dronewatch/pkg/domain-errors"

var (
	// errNoContent marks a success-no-body outcome surfaced through the
	// request/response path, where "no data" still needs an error value.
	errNoContent = dErrors.New(dErrors.CodeNotFound, "response carried no content")

	// errRestBase rejects base addresses whose query or fragment would be
	// clobbered by path parameter resolution.
	errRestBase = dErrors.New(dErrors.CodeValidation, "rest base address must not carry query or fragment")
)
