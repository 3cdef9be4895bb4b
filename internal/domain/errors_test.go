package domain

import (
	"errors"
	"net/http"
	"testing"
)

func TestAPIErrorMessage(t *testing.T) {
	t.Parallel()

	err := &APIError{Op: "get application", StatusCode: http.StatusNotFound, Message: "application not found"}
	want := "get application: application not found (404)"
	if got := err.Error(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestAPIErrorFallsBackToStatusText(t *testing.T) {
	t.Parallel()

	err := &APIError{StatusCode: http.StatusBadGateway}
	want := "Bad Gateway (502)"
	if got := err.Error(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestAPIErrorUnwrap(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrForbidden},
		{"not_found", http.StatusNotFound, ErrNotFound},
		{"conflict", http.StatusConflict, ErrConflict},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := &APIError{StatusCode: tc.status}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected errors.Is(%v, %v)", err, tc.want)
			}
		})
	}
}

func TestIsAuthFailure(t *testing.T) {
	t.Parallel()

	if !IsAuthFailure(&APIError{StatusCode: http.StatusUnauthorized}) {
		t.Fatal("expected 401 to be an auth failure")
	}
	if IsAuthFailure(&APIError{StatusCode: http.StatusBadRequest}) {
		t.Fatal("expected 400 not to be an auth failure")
	}
	if IsAuthFailure(nil) {
		t.Fatal("expected nil not to be an auth failure")
	}
}

func TestApplicationStatusPredicates(t *testing.T) {
	t.Parallel()

	if !(Application{Status: "Pending"}).IsPending() {
		t.Fatal("expected Pending to be pending")
	}
	if !(Application{Status: " pending "}).IsPending() {
		t.Fatal("expected status match to ignore case and spaces")
	}
	if (Application{Status: "Approved"}).IsPending() {
		t.Fatal("expected Approved not to be pending")
	}
	if !(Application{Status: "Approved"}).IsApproved() {
		t.Fatal("expected Approved to be approved")
	}
}
