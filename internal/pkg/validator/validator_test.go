package validator

import (
	"errors"
	"testing"

	apperrors "retailsync/internal/pkg/errors"
)

type sample struct {
	CallbackURL string `json:"callbackUrl" validate:"required,url"`
	Method      string `json:"method" validate:"omitempty,oneof=remoteApi localStore"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name      string
		in        sample
		wantField string
	}{
		{"valid", sample{CallbackURL: "https://hooks.example.com/in"}, ""},
		{"missing url", sample{}, "callbackUrl"},
		{"relative url", sample{CallbackURL: "/in"}, "callbackUrl"},
		{"bad method", sample{CallbackURL: "https://x.io", Method: "fax"}, "method"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var vErr *apperrors.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.wantField {
				t.Errorf("field = %s, want %s", vErr.Field, tt.wantField)
			}
			if !errors.Is(err, apperrors.ErrValidation) {
				t.Error("expected error to match ErrValidation")
			}
		})
	}
}

func TestVar(t *testing.T) {
	if err := Var("callbackUrl", "https://hooks.example.com", "url"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := Var("callbackUrl", "not a url", "url")
	var vErr *apperrors.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if vErr.Field != "callbackUrl" || vErr.Message != "must be an absolute URL" {
		t.Errorf("unexpected error %+v", vErr)
	}
}
