package client

import "testing"

func TestNormalizeServerURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "https://shop.example.com", want: "https://shop.example.com"},
		{in: "shop.example.com", want: "https://shop.example.com"},
		{in: "http://localhost:3001/api/auth/login", want: "http://localhost:3001"},
		{in: "HTTPS://Shop.Example.COM/", want: "https://shop.example.com"},
		{in: "  http://127.0.0.1:8080  ", want: "http://127.0.0.1:8080"},
		{in: "https://", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := NormalizeServerURL(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NormalizeServerURL(%q) = %q, want error", tt.in, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("NormalizeServerURL(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestMemoryCredentialStore(t *testing.T) {
	store := NewMemoryCredentialStore()

	if err := store.SetCredential("https://shop.example.com", &ServerCredential{Token: " ", UserID: "user_1"}); err != ErrInvalidCredential {
		t.Errorf("expected ErrInvalidCredential for blank token, got %v", err)
	}
	if err := store.SetCredential("https://", &ServerCredential{Token: "tok"}); err == nil {
		t.Error("expected error for URL without host")
	}

	if err := store.SetCredential("shop.example.com/api", &ServerCredential{Token: "tok", UserID: "user_1"}); err != nil {
		t.Fatalf("SetCredential() error = %v", err)
	}
	cred, _ := store.GetCredential("https://SHOP.example.com")
	if cred == nil || cred.UserID != "user_1" {
		t.Fatalf("unexpected credential %+v", cred)
	}

	store.RemoveCredential("https://shop.example.com")
	if servers, _ := store.ListServers(); len(servers) != 0 {
		t.Errorf("expected no servers after remove, got %v", servers)
	}
}

func TestSessionsSnapshotOnlyWhenChanged(t *testing.T) {
	var s Sessions
	calls := 0
	snap := func(map[string]*ServerCredential) error { calls++; return nil }

	s.Snapshot(snap)
	if calls != 0 {
		t.Fatalf("expected no snapshot for a clean set, got %d", calls)
	}

	s.SetCredential("https://a.example.com", &ServerCredential{Token: "a"})
	s.Snapshot(snap)
	s.Snapshot(snap)
	if calls != 1 {
		t.Errorf("expected one snapshot after one change, got %d", calls)
	}

	s.RemoveCredential("https://missing.example.com")
	s.Snapshot(snap)
	if calls != 1 {
		t.Errorf("removing an absent server should not mark the set changed, got %d calls", calls)
	}
}

func TestClientKeysByNormalizedURL(t *testing.T) {
	store := NewMemoryCredentialStore()
	store.SetCredential("https://shop.example.com", &ServerCredential{Token: "tok"})

	c := NewClient("HTTPS://Shop.Example.com/api", store)
	if c.ServerURL() != "https://shop.example.com" {
		t.Errorf("ServerURL() = %q", c.ServerURL())
	}
	if !c.IsLoggedIn() {
		t.Error("expected client to find the credential under the normalized URL")
	}
}
