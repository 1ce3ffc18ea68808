package google

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"finanzas/internal/cache"
	"finanzas/internal/config"
	"finanzas/internal/core"
	applog "finanzas/internal/log"
	ports "finanzas/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	rowCacheSize = 4096
	rowCacheTTL  = 10 * time.Minute
	lastColumn   = "H"
)

// Client mirrors movements into a single sheet, one row per movement with
// the movement id in column A. Deleted movements leave a blank row so the
// row numbers of the others never shift.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *applog.Logger

	// mu serializes lookups and writes so two upserts of the same id
	// cannot both append.
	mu   sync.Mutex
	rows *cache.LRUCache[int]
}

// Ensure interface conformance
var _ ports.MovementMirror = (*Client)(nil)

// New creates a Sheets client from the GOOGLE_* settings using service
// account credentials.
func New(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.GoogleSpreadsheetID)
	if spreadsheetID == "" {
		return nil, &core.ConfigError{Missing: []string{"GOOGLE_SPREADSHEET_ID"}}
	}
	credentials, err := credentialsJSON(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newWithService(svc, spreadsheetID, cfg.GoogleSheetName, logger), nil
}

func newWithService(svc *gsheet.Service, spreadsheetID, sheet string, logger *applog.Logger) *Client {
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		sheet = "Movements"
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheet:         sheet,
		logger:        logger.WithComponent(applog.ComponentSheets),
		rows:          cache.NewLRUCache[int](rowCacheSize, rowCacheTTL),
	}
}

// credentialsJSON reads the service account key, inline JSON first, then
// the key file.
func credentialsJSON(cfg *config.Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.GoogleServiceAccountJSON)
	file := strings.TrimSpace(cfg.GoogleServiceAccountFile)
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, &core.ConfigError{Missing: []string{"GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_FILE"}}
	}
}

// Upsert overwrites the row holding r.ID, or appends a new one.
func (c *Client) Upsert(ctx context.Context, r ports.Row) (string, error) {
	if r.ID <= 0 {
		return "", fmt.Errorf("row id must be positive, got %d", r.ID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	values := &gsheet.ValueRange{Values: [][]interface{}{r.Cells()}}

	n, found, err := c.findRow(ctx, r.ID)
	if err != nil {
		return "", err
	}
	if found {
		rng := c.rowRange(n)
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, values).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			c.rows.Delete(rowKey(r.ID))
			return "", fmt.Errorf("update row %d: %w", n, err)
		}
		c.logger.DebugContext(ctx, "Updated mirror row", "movement_id", r.ID, "range", rng)
		return rng, nil
	}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.sheet+"!A:"+lastColumn, values).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append row: %w", err)
	}
	var rng string
	if resp.Updates != nil {
		rng = resp.Updates.UpdatedRange
		if n, ok := parseRowNumber(rng); ok {
			c.rows.Set(rowKey(r.ID), n)
		}
	}
	c.logger.DebugContext(ctx, "Appended mirror row", "movement_id", r.ID, "range", rng)
	return rng, nil
}

// Delete blanks the row holding id.
func (c *Client) Delete(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, found, err := c.findRow(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.rowRange(n), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear row %d: %w", n, err)
	}
	c.rows.Delete(rowKey(id))
	return nil
}

// findRow locates the 1-based row number of id. A full scan of column A
// refreshes the cache for every id it sees.
func (c *Client) findRow(ctx context.Context, id int64) (int, bool, error) {
	if n, ok := c.rows.Get(rowKey(id)); ok {
		return n, true, nil
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.sheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("read id column: %w", err)
	}
	row, found := 0, false
	for i, cells := range resp.Values {
		if len(cells) == 0 {
			continue
		}
		seen, err := strconv.ParseInt(strings.TrimSpace(fmt.Sprint(cells[0])), 10, 64)
		if err != nil {
			continue
		}
		c.rows.Set(rowKey(seen), i+1)
		if seen == id && !found {
			row, found = i+1, true
		}
	}
	return row, found, nil
}

func (c *Client) rowRange(n int) string {
	return fmt.Sprintf("%s!A%d:%s%d", c.sheet, n, lastColumn, n)
}

func rowKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// parseRowNumber extracts the first row number from an A1 range such as
// "Movements!A12:H12".
func parseRowNumber(rng string) (int, bool) {
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		rng = rng[i+1:]
	}
	if i := strings.Index(rng, ":"); i >= 0 {
		rng = rng[:i]
	}
	digits := strings.TrimLeft(rng, "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz$")
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
