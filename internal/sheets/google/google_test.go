package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finanzas/internal/config"
	"finanzas/internal/core"
	ports "finanzas/internal/sheets"
)

// fakeSheet serves the values endpoints the client uses against an
// in-memory grid.
type fakeSheet struct {
	mu    sync.Mutex
	grid  [][]string
	reads int
}

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, rng, ok := strings.Cut(r.URL.Path, "/values/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet:
		f.reads++
		values := make([][]string, len(f.grid))
		for i, row := range f.grid {
			if len(row) > 0 {
				values[i] = []string{row[0]}
			} else {
				values[i] = []string{}
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": values})
	case r.Method == http.MethodPut:
		n, _ := parseRowNumber(rng)
		f.grid[n-1] = decodeRow(r)
		_ = json.NewEncoder(w).Encode(map[string]any{"updatedRange": rng})
	case strings.HasSuffix(rng, ":append"):
		f.grid = append(f.grid, decodeRow(r))
		n := len(f.grid)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"updates": map[string]any{"updatedRange": "Movements!A" + strconv.Itoa(n) + ":H" + strconv.Itoa(n)},
		})
	case strings.HasSuffix(rng, ":clear"):
		n, _ := parseRowNumber(strings.TrimSuffix(rng, ":clear"))
		f.grid[n-1] = nil
		_ = json.NewEncoder(w).Encode(map[string]any{"clearedRange": rng})
	default:
		http.NotFound(w, r)
	}
}

func decodeRow(r *http.Request) []string {
	var body struct {
		Values [][]any `json:"values"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	out := make([]string, 0, len(body.Values[0]))
	for _, v := range body.Values[0] {
		out = append(out, v.(string))
	}
	return out
}

func newTestClient(t *testing.T, fake *fakeSheet) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return newWithService(svc, "sheet-id", "Movements", nil)
}

func testRow(id int64, desc string) ports.Row {
	return ports.Row{
		ID:          id,
		UserID:      1,
		Date:        core.NewDate(2024, 1, 15),
		Account:     "Checking",
		Category:    "Food",
		Badge:       "EUR",
		Amount:      decimal.RequireFromString("-20"),
		Description: desc,
	}
}

func TestClient_UpsertAppendsThenUpdates(t *testing.T) {
	fake := &fakeSheet{grid: [][]string{{"id", "date"}}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	ref, err := c.Upsert(ctx, testRow(7, "groceries"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "Movements!A2:H2" {
		t.Errorf("ref = %q, want Movements!A2:H2", ref)
	}

	ref, err = c.Upsert(ctx, testRow(7, "market"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if ref != "Movements!A2:H2" {
		t.Errorf("update ref = %q, want Movements!A2:H2", ref)
	}
	if len(fake.grid) != 2 {
		t.Fatalf("grid has %d rows, want 2", len(fake.grid))
	}
	if got := fake.grid[1][6]; got != "market" {
		t.Errorf("description = %q, want market", got)
	}
	if got := fake.grid[1][4]; got != "-20.00" {
		t.Errorf("amount = %q, want -20.00", got)
	}
}

func TestClient_FindsExistingRowsByID(t *testing.T) {
	fake := &fakeSheet{grid: [][]string{{"id"}, {"3"}, {}, {"12"}}}
	c := newTestClient(t, fake)

	ref, err := c.Upsert(context.Background(), testRow(12, "rent"))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if ref != "Movements!A4:H4" {
		t.Errorf("ref = %q, want Movements!A4:H4", ref)
	}
	if len(fake.grid) != 4 {
		t.Errorf("grid grew to %d rows", len(fake.grid))
	}

	// The scan cached row 2 for id 3.
	reads := fake.reads
	if _, err := c.Upsert(context.Background(), testRow(3, "bus")); err != nil {
		t.Fatalf("upsert cached: %v", err)
	}
	if fake.reads != reads {
		t.Errorf("expected cached lookup, got %d extra reads", fake.reads-reads)
	}
}

func TestClient_DeleteClearsRow(t *testing.T) {
	fake := &fakeSheet{grid: [][]string{{"id"}}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	if _, err := c.Upsert(ctx, testRow(5, "coffee")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := c.Delete(ctx, 5); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if fake.grid[1] != nil {
		t.Errorf("row not cleared: %v", fake.grid[1])
	}
	if err := c.Delete(ctx, 99); err != nil {
		t.Errorf("delete of missing id: %v", err)
	}

	// A new upsert for the deleted id appends instead of reusing the blank row.
	ref, err := c.Upsert(ctx, testRow(5, "coffee"))
	if err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	if ref != "Movements!A3:H3" {
		t.Errorf("ref = %q, want Movements!A3:H3", ref)
	}
}

func TestClient_RejectsZeroID(t *testing.T) {
	c := newTestClient(t, &fakeSheet{})
	if _, err := c.Upsert(context.Background(), testRow(0, "x")); err == nil {
		t.Fatal("expected error for zero id")
	}
}

func TestNew_MissingSettings(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want []string
	}{
		{
			name: "no spreadsheet",
			cfg:  config.Config{},
			want: []string{"GOOGLE_SPREADSHEET_ID"},
		},
		{
			name: "no credentials",
			cfg:  config.Config{GoogleSpreadsheetID: "abc"},
			want: []string{"GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_FILE"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), &tt.cfg, nil)
			cfgErr, ok := err.(*core.ConfigError)
			if !ok {
				t.Fatalf("expected *core.ConfigError, got %T: %v", err, err)
			}
			if strings.Join(cfgErr.Missing, ",") != strings.Join(tt.want, ",") {
				t.Errorf("missing = %v, want %v", cfgErr.Missing, tt.want)
			}
		})
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	cfg := config.Config{
		GoogleSpreadsheetID:      "abc",
		GoogleServiceAccountFile: filepath.Join(t.TempDir(), "missing.json"),
	}
	_, err := New(context.Background(), &cfg, nil)
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseRowNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"Movements!A12:H12", 12, true},
		{"'2024 Movements'!A3:H3", 3, true},
		{"A7", 7, true},
		{"Movements!$A$9:$H$9", 9, true},
		{"Movements!A:H", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseRowNumber(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseRowNumber(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
