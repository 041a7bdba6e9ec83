package domain

import "errors"

var ErrDuplicate = errors.New("duplicate key")
