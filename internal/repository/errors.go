package repository

import "errors"

var (
	ErrBandNotFound     = errors.New("band table not found")
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrResultNotFound   = errors.New("assessment result not found")
)
