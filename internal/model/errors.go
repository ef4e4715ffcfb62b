package model

import "errors"

// ErrNotFound is returned by stores when a keyed record does not exist.
var ErrNotFound = errors.New("not found")

// PriceCoverage summarizes what the price table holds.
type PriceCoverage struct {
	Total int64 `json:"total"`
	First Month `json:"minMonth"`
	Last  Month `json:"maxMonth"`
}
