package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLookupParsesFirstMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "Kondapur, Hyderabad" {
			t.Errorf("q = %s", got)
		}
		w.Write([]byte(`[{"lat":"17.4622","lon":"78.3568","display_name":"Kondapur, Hyderabad, Telangana, India"}]`))
	}))
	defer server.Close()

	result, err := New(server.URL, "").Lookup(context.Background(), "Kondapur, Hyderabad")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if result.Lat != 17.4622 || result.Lng != 78.3568 {
		t.Fatalf("unexpected coordinates: %+v", result)
	}
	if result.DisplayName == "" {
		t.Fatal("expected display name")
	}
}

func TestLookupSendsAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("key"); got != "secret-key" {
			t.Errorf("key = %s", got)
		}
		w.Write([]byte(`[{"lat":"12.97","lon":"77.59","display_name":"Bengaluru"}]`))
	}))
	defer server.Close()

	if _, err := New(server.URL, "secret-key").Lookup(context.Background(), "Bengaluru"); err != nil {
		t.Fatalf("lookup: %v", err)
	}
}

func TestLookupNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	if _, err := New(server.URL, "").Lookup(context.Background(), "nowhere at all"); err == nil {
		t.Fatal("expected error for empty result set")
	}
}

func TestLookupRequiresAddress(t *testing.T) {
	if _, err := New("", "").Lookup(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank address")
	}
}
