package identity

import "errors"

// ErrAlreadyExists is returned by Create when the username is taken.
var ErrAlreadyExists = errors.New("principal already exists")
