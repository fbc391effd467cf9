package gerberbasetypes

import "errors"

// Per-primitive errors. The offending primitive is skipped and the build goes on.
var (
	ErrUnsupportedApertureKind   = errors.New("unsupported aperture kind")
	ErrInvalidModifierCount      = errors.New("invalid modifier count")
	ErrUnboundVariable           = errors.New("unbound macro variable")
	ErrUnknownAperture           = errors.New("unknown aperture")
	ErrDegenerateRegion          = errors.New("degenerate region")
	ErrUnclosableRegion          = errors.New("unclosable region")
	ErrAxisConfigurationConflict = errors.New("axis configuration conflict")
)

// Structural errors. They abort the whole build.
var (
	ErrBadCommandStream      = errors.New("bad command stream")
	ErrResourceLimitExceeded = errors.New("resource limit exceeded")
)
