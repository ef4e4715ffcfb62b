package model

import (
	"errors"
	"testing"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr error
	}{
		{"45,30", 45.30, nil},
		{"45.30", 45.30, nil},
		{" 98 ", 98, nil},
		{"-3,5", -3.5, nil},
		{"abc", 0, ErrInvalidNumber},
		{"", 0, ErrEmptyNumber},
		{"1.234,56", 0, ErrInvalidNumber},
		{"NaN", 0, ErrNonFiniteValue},
		{"Inf", 0, ErrNonFiniteValue},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrice(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParsePrice(%q) err = %v, want %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Fatalf("ParsePrice(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLocaleNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"0,1234", 0.1234, false},
		{"0.1234", 0.1234, false},
		{"1.234,5", 1234.5, false},
		{"1,234.5", 1234.5, false},
		{"1.234.567", 1234567, false},
		{"1 234,5", 1234.5, false},
		{"120", 120, false},
		{"1,2,3", 0, true},
		{"", 0, true},
		{"x", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLocaleNumber(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLocaleNumber(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Fatalf("ParseLocaleNumber(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
