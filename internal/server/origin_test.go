package server

import (
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeOrigin(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		want   string
		ok     bool
	}{
		{name: "plain", origin: "http://localhost:5000", want: "http://localhost:5000", ok: true},
		{name: "mixed case", origin: "HTTPS://Chat.Example.COM", want: "https://chat.example.com", ok: true},
		{name: "path dropped", origin: "https://chat.example.com/room", want: "https://chat.example.com", ok: true},
		{name: "missing scheme", origin: "chat.example.com", ok: false},
		{name: "garbage", origin: "://", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := normalizeOrigin(tt.origin)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestOriginPolicy(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{name: "wildcard accepts any origin", allowed: []string{"*"}, origin: "http://evil.example", want: true},
		{name: "wildcard accepts missing origin", allowed: []string{"*"}, origin: "", want: true},
		{name: "listed origin", allowed: []string{"http://localhost:5000"}, origin: "http://localhost:5000", want: true},
		{name: "case-insensitive match", allowed: []string{"http://localhost:5000"}, origin: "HTTP://LOCALHOST:5000", want: true},
		{name: "unlisted origin", allowed: []string{"http://localhost:5000"}, origin: "http://localhost:6000", want: false},
		{name: "missing origin with list", allowed: []string{"http://localhost:5000"}, origin: "", want: false},
		{name: "invalid entries ignored", allowed: []string{"not-an-origin", " "}, origin: "http://localhost:5000", want: false},
		{name: "empty list rejects", allowed: nil, origin: "http://localhost:5000", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := newOriginPolicy(tt.allowed, logger)
			req := httptest.NewRequest("GET", "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, policy.checkOrigin(req))
		})
	}
}
