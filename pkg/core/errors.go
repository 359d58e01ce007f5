package core

import "errors"

// ErrPackNotFound is returned when a pack code is not in the index.
var ErrPackNotFound = errors.New("pack not found")
