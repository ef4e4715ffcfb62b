package model

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	ErrEmptyNumber    = errors.New("empty number")
	ErrInvalidNumber  = errors.New("invalid number")
	ErrNonFiniteValue = errors.New("number is not finite")
)

// ParsePrice reads an index price as it appears in uploaded sheets. The first
// comma is taken as the decimal separator, so "45,30" is 45.30.
func ParsePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmptyNumber
	}
	s = strings.Replace(s, ",", ".", 1)
	return parseFinite(s)
}

// ParseLocaleNumber reads a number typed by a person in either Portuguese or
// English notation. When both separators appear, the last one is the decimal
// mark and the other is grouping: "1.234,5" and "1,234.5" are both 1234.5.
// A lone comma is a decimal mark. A lone period is a decimal mark unless it is
// repeated ("1.234.567").
func ParseLocaleNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, ErrEmptyNumber
	}
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return 0, ErrInvalidNumber
		}
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}
	return parseFinite(s)
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidNumber
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNonFiniteValue
	}
	return v, nil
}
