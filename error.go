package bptree

import "errors"

var (
	ErrInvalidOrder      = errors.New("order must be at least 3")
	ErrKeyTypeMismatch   = errors.New("snapshot key type does not match tree key type")
	ErrUnknownKeyType    = errors.New("unknown key type")
	ErrTruncatedSnapshot = errors.New("snapshot data is truncated")
	ErrCorruption        = errors.New("snapshot corruption detected")
)
