package socrata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/soql"
)

func TestClientQuery(t *testing.T) {
	var gotPath, gotQuery, gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("$query")
		gotToken = r.Header.Get("X-App-Token")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"month":"2020-01-01T00:00:00.000","trips":"1000"}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "secret-token", 5*time.Second, zerolog.Nop())
	stmt := soql.New().Select("count(*) AS trips").GroupBy("month")

	rows, err := client.Query(context.Background(), "wrvz-psew", stmt)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if gotPath != "/wrvz-psew.json" {
		t.Errorf("path = %q, want /wrvz-psew.json", gotPath)
	}
	if gotQuery != stmt.String() {
		t.Errorf("$query = %q, want %q", gotQuery, stmt.String())
	}
	if gotToken != "secret-token" {
		t.Errorf("X-App-Token = %q", gotToken)
	}

	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0]["trips"] != "1000" || rows[0]["month"] != "2020-01-01T00:00:00.000" {
		t.Errorf("row = %v", rows[0])
	}
}

func TestClientQueryOmitsEmptyToken(t *testing.T) {
	var tokenPresent bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, tokenPresent = r.Header["X-App-Token"]
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, zerolog.Nop())
	if _, err := client.Query(context.Background(), "wrvz-psew", soql.New().Select("1")); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if tokenPresent {
		t.Error("X-App-Token header sent without a configured token")
	}
}

func TestClientQueryErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Invalid SoQL query"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, zerolog.Nop())
	_, err := client.Query(context.Background(), "wrvz-psew", soql.New().Select("bogus("))
	if err == nil {
		t.Fatal("Query returned nil error for a 400 response")
	}
	if !strings.Contains(err.Error(), "status 400") || !strings.Contains(err.Error(), "Invalid SoQL query") {
		t.Errorf("error = %v, want status and body snippet", err)
	}
}

func TestClientQueryMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, zerolog.Nop())
	if _, err := client.Query(context.Background(), "wrvz-psew", soql.New().Select("1")); err == nil {
		t.Fatal("Query returned nil error for a non-array body")
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2020-01-01T00:00:00.000", time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC), false},
		{"2020-03-15T08:45:30", time.Date(2020, time.March, 15, 8, 45, 30, 0, time.UTC), false},
		{"2020-03-15", time.Date(2020, time.March, 15, 0, 0, 0, 0, time.UTC), false},
		{"03/15/2020", time.Time{}, true},
		{"", time.Time{}, true},
	}

	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTimestamp(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && !got.Equal(tt.want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
