// Package apperr defines the error taxonomy shared by the archive and its front ends.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrNameInvalid   = errors.New("invalid name")
	ErrAlreadyExists = errors.New("already exists")
	ErrParse         = errors.New("parse error")
	ErrAmbiguous     = errors.New("ambiguous selector")

	// ErrSanityCheck is returned by front ends refusing an unsafe operation
	// that the user did not force.
	ErrSanityCheck = errors.New("sanity check failed")
)
