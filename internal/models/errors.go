package models

import "errors"

var (
	// ErrConfigInvalid - настройки не прошли валидацию, в оркестратор они не попадают.
	ErrConfigInvalid = errors.New("config invalid")
	ErrNotFound      = errors.New("not found")
)
