// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
	if v1 == nil {
		t.Error("GetValidator() should not return nil")
	}
}

type coneInput struct {
	RA       float64 `json:"ra" validate:"ra"`
	Dec      float64 `json:"dec" validate:"dec"`
	Radius   float64 `json:"radius" validate:"gt=0,lte=10"`
	MaxStars int     `json:"max_stars" validate:"min=1,max=100000"`
}

type queryInput struct {
	MagLimit float64 `query:"mag_limit" validate:"gte=1,lte=10"`
	Mode     string  `validate:"omitempty,oneof=fast exact"`
	Ignored  string  `json:"-" validate:"omitempty,min=2"`
}

func TestValidateStruct_Valid(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
	}{
		{"galactic center", &coneInput{RA: 266.4, Dec: -29, Radius: 5, MaxStars: 1000}},
		{"ra zero", &coneInput{RA: 0, Dec: 0, Radius: 10, MaxStars: 1}},
		{"poles", &coneInput{RA: 359.999, Dec: 90, Radius: 0.001, MaxStars: 100000}},
		{"query params", &queryInput{MagLimit: 7, Mode: "fast"}},
		{"optional empty", &queryInput{MagLimit: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateStruct(tt.input); err != nil {
				t.Errorf("ValidateStruct() unexpected error: %v", err)
			}
		})
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		input     interface{}
		wantField string
		wantTag   string
		wantMsg   string
	}{
		{"ra 360", &coneInput{RA: 360, Radius: 1, MaxStars: 1}, "ra", "ra", "ra must be a right ascension in [0, 360)"},
		{"negative ra", &coneInput{RA: -1, Radius: 1, MaxStars: 1}, "ra", "ra", "right ascension"},
		{"dec past pole", &coneInput{Dec: -90.5, Radius: 1, MaxStars: 1}, "dec", "dec", "declination"},
		{"zero radius", &coneInput{Radius: 0, MaxStars: 1}, "radius", "gt", "radius must be greater than 0"},
		{"wide radius", &coneInput{Radius: 11, MaxStars: 1}, "radius", "lte", "radius must be less than or equal to 10"},
		{"too many stars", &coneInput{Radius: 1, MaxStars: 100001}, "max_stars", "max", "max_stars must be at most 100000"},
		{"query tag name", &queryInput{MagLimit: 11}, "mag_limit", "lte", "mag_limit must be less than or equal to 10"},
		{"untagged field", &queryInput{MagLimit: 5, Mode: "slow"}, "Mode", "oneof", "Mode must be one of: fast exact"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(tt.input)
			if verr == nil {
				t.Fatal("ValidateStruct() expected error")
			}
			errs := verr.Errors()
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), verr)
			}
			if errs[0].Field() != tt.wantField || errs[0].Tag() != tt.wantTag {
				t.Errorf("field/tag = %s/%s, want %s/%s", errs[0].Field(), errs[0].Tag(), tt.wantField, tt.wantTag)
			}
			if !strings.Contains(errs[0].Error(), tt.wantMsg) {
				t.Errorf("message = %q, want it to contain %q", errs[0].Error(), tt.wantMsg)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	t.Run("single", func(t *testing.T) {
		verr := ValidateStruct(&coneInput{Radius: 20, MaxStars: 1})
		apiErr := verr.ToAPIError()
		if apiErr.Code != ErrCodeValidation {
			t.Errorf("Code = %s, want %s", apiErr.Code, ErrCodeValidation)
		}
		if apiErr.Details["field"] != "radius" {
			t.Errorf("Details[field] = %v, want radius", apiErr.Details["field"])
		}
	})

	t.Run("multiple", func(t *testing.T) {
		verr := ValidateStruct(&coneInput{RA: 400, Dec: 100, Radius: 0, MaxStars: 0})
		apiErr := verr.ToAPIError()
		fields, ok := apiErr.Details["fields"].([]map[string]interface{})
		if !ok || len(fields) != 4 {
			t.Fatalf("Details[fields] = %v, want 4 entries", apiErr.Details["fields"])
		}
		if !strings.Contains(apiErr.Message, "; ") {
			t.Errorf("Message = %q, want joined messages", apiErr.Message)
		}
	})

	t.Run("empty", func(t *testing.T) {
		apiErr := (&RequestValidationError{}).ToAPIError()
		if apiErr.Code != ErrCodeValidation || apiErr.Message != "Validation failed" {
			t.Errorf("ToAPIError() = %+v", apiErr)
		}
	})
}

func TestValidateStruct_NonStruct(t *testing.T) {
	verr := ValidateStruct(42)
	if verr == nil {
		t.Fatal("ValidateStruct(42) expected error")
	}
	if verr.Errors()[0].Field() != "unknown" {
		t.Errorf("Field() = %s, want unknown", verr.Errors()[0].Field())
	}
}
