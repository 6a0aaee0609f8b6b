package client

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthTransport(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer server.Close()

	tests := []struct {
		name      string
		transport *AuthTransport
		header    string
		want      string
	}{
		{"token", NewAuthTransport("abc"), "", "Bearer abc"},
		{"empty token", NewAuthTransport(""), "", ""},
		{"nil token func", &AuthTransport{}, "", ""},
		{"explicit header wins", NewAuthTransport("abc"), "Bearer other", "Bearer other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotAuth = ""
			req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := (&http.Client{Transport: tt.transport}).Do(req)
			if err != nil {
				t.Fatalf("Do() error = %v", err)
			}
			resp.Body.Close()
			if gotAuth != tt.want {
				t.Errorf("Authorization = %q, want %q", gotAuth, tt.want)
			}
			if tt.header == "" && req.Header.Get("Authorization") != "" {
				t.Error("original request was mutated")
			}
		})
	}
}
