package models

import "errors"

// ErrEmptyCatalog is returned when no food survives filtering.
var ErrEmptyCatalog = errors.New("no eligible foods in catalog")
