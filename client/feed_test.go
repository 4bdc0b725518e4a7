package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestFetchRows(t *testing.T) {
	// One row uses the "Date " header with a trailing space and a numeric
	// row id, both of which real revisions of the sheet have shipped.
	feed := `[
		{"id": 7, "Date ": "2025-06-15", "Time": "7:30 AM", "Course": "Jeffersonville", "Player 1": "Danny", "Player 2": "", "Player 3": "Mike R.", "Player 4": ""},
		{"id": "8", "Date": "2025-06-22", "Time": "8:00 AM", "Course": "Limekiln"}
	]`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(feed))
	}))
	defer srv.Close()

	rows, err := NewFeedClient(srv.URL).FetchRows(context.Background())
	if err != nil {
		t.Fatalf("FetchRows() error = %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	if rows[0].RowID != "7" {
		t.Errorf("numeric row id: RowID = %q, want %q", rows[0].RowID, "7")
	}

	if rows[0].Date != "2025-06-15" {
		t.Errorf("trailing-space header: Date = %q, want %q", rows[0].Date, "2025-06-15")
	}

	// Blank legacy player columns are dropped, order kept.
	if !reflect.DeepEqual(rows[0].Players, []string{"Danny", "Mike R."}) {
		t.Errorf("legacy players = %v, want [Danny Mike R.]", rows[0].Players)
	}

	if rows[1].RowID != "8" || rows[1].Course != "Limekiln" {
		t.Errorf("row 2 = %+v", rows[1])
	}

	if rows[1].Players != nil {
		t.Errorf("row 2 players = %v, want none", rows[1].Players)
	}
}

func TestFetchRowsErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "down for maintenance", http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>not json</html>"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			if _, err := NewFeedClient(srv.URL).FetchRows(context.Background()); err == nil {
				t.Fatal("FetchRows() error = nil, want error")
			}
		})
	}
}
