package domain

import "errors"

var (
	ErrCardNotFound = errors.New("card not found")
)
