package main

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOriginAllowed(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    bool
	}{
		{"wildcard", []string{"*"}, "https://evil.example", true},
		{"listed", []string{"https://flipi.si"}, "https://flipi.si", true},
		{"case insensitive", []string{"https://flipi.si"}, "https://FLIPI.si", true},
		{"not listed", []string{"https://flipi.si"}, "https://evil.example", false},
		{"no origin header", []string{"https://flipi.si"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/realtime", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := originAllowed(tt.origins)(r); got != tt.want {
				t.Errorf("originAllowed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGeneratePassword(t *testing.T) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	a, err := generatePassword(16)
	if err != nil {
		t.Fatalf("generatePassword: %v", err)
	}
	b, _ := generatePassword(16)
	if len(a) != 16 || a == b {
		t.Errorf("expected two distinct 16 character passwords, got %q and %q", a, b)
	}
	for _, c := range a {
		if !strings.ContainsRune(charset, c) {
			t.Errorf("unexpected character %q", c)
		}
	}
}
