package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/ewilliams-labs/songmatch/internal/core/domain"
)

type playlistRequest struct {
	Seed      string  `json:"seed" validate:"required"`
	Length    int     `json:"length" validate:"gte=5,lte=25"`
	Diversity float64 `json:"diversity" validate:"gte=0.1,lte=1"`
}

type histogramRequest struct {
	Feature string `json:"feature" validate:"required,audiofeature"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name       string
		in         any
		wantFields []string
	}{
		{"valid playlist", playlistRequest{Seed: "x", Length: 10, Diversity: 0.5}, nil},
		{"missing seed", playlistRequest{Length: 10, Diversity: 0.5}, []string{"seed"}},
		{"length and diversity out of range", playlistRequest{Seed: "x", Length: 3, Diversity: 2}, []string{"length", "diversity"}},
		{"known feature", histogramRequest{Feature: "tempo"}, nil},
		{"unknown feature", histogramRequest{Feature: "bpm"}, []string{"feature"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Struct(tc.in)
			if len(tc.wantFields) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *RequestValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected RequestValidationError, got %v", err)
			}
			if len(verr.Fields) != len(tc.wantFields) {
				t.Fatalf("got fields %+v, want %v", verr.Fields, tc.wantFields)
			}
			for i, f := range tc.wantFields {
				if verr.Fields[i].Field != f {
					t.Fatalf("field %d = %q, want %q", i, verr.Fields[i].Field, f)
				}
			}
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Fatalf("validation errors should match ErrInvalidArgument")
			}
		})
	}
}

func TestStruct_Messages(t *testing.T) {
	err := Struct(playlistRequest{Seed: "x", Length: 30, Diversity: 0.5})
	if err == nil || !strings.Contains(err.Error(), "length must be less than or equal to 25") {
		t.Fatalf("unexpected message: %v", err)
	}
}
