package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *CustomError
		code int
		typ  string
	}{
		{"validation", ValidationError("bad %s", "date"), http.StatusBadRequest, TypeValidation},
		{"field", FieldError("rating", "must be between 1 and 5"), http.StatusBadRequest, TypeValidation},
		{"permission", PermissionError("nope"), http.StatusForbidden, TypePermission},
		{"authentication", AuthenticationError("login"), http.StatusUnauthorized, TypeAuthentication},
		{"not found", NotFoundError("game %d", 3), http.StatusNotFound, TypeNotFound},
		{"conflict", ConflictError("dup"), http.StatusConflict, TypeConflict},
		{"rate limit", RateLimitError("slow down"), http.StatusTooManyRequests, TypeRateLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Expected code %d, got %d", tt.code, tt.err.Code)
			}
			if tt.err.Type != tt.typ {
				t.Errorf("Expected type %s, got %s", tt.typ, tt.err.Type)
			}
		})
	}
}

func TestAsCustomErrorThroughWrap(t *testing.T) {
	wrapped := fmt.Errorf("create review: %w", ConflictError("You have already reviewed this game."))

	ce, ok := AsCustomError(wrapped)
	if !ok {
		t.Fatal("Expected to unwrap a CustomError")
	}
	if ce.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d", ce.Code)
	}
	if !IsType(wrapped, TypeConflict) {
		t.Error("Expected IsType conflict")
	}
	if !errors.Is(wrapped, &CustomError{Type: TypeConflict}) {
		t.Error("Expected errors.Is to match by type")
	}
	if errors.Is(wrapped, &CustomError{Type: TypeNotFound}) {
		t.Error("Expected errors.Is not to match a different type")
	}
}

func TestFieldErrorMessage(t *testing.T) {
	err := FieldsError(map[string]string{"role": "only admins may create admins", "email": "required"})
	want := "400: Validation failed (email: required; role: only admins may create admins) [type: validation]"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}
