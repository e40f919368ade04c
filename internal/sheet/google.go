package sheet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/stellarlinkco/rosterbot/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	sheetsBaseURL  = "https://sheets.googleapis.com"
	readonlyScope  = "https://www.googleapis.com/auth/spreadsheets.readonly"
	requestTimeout = 30 * time.Second
)

// GoogleSheets reads one worksheet through the Sheets v4 values API.
type GoogleSheets struct {
	sheetID   string
	worksheet string
	client    *http.Client
	baseURL   string
}

// NewGoogleSheets authenticates with the service-account key in cfg.CredentialsFile.
func NewGoogleSheets(ctx context.Context, cfg config.SourceConfig) (*GoogleSheets, error) {
	if cfg.SheetID == "" {
		return nil, fmt.Errorf("sheets source: sheet id is required")
	}
	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, readonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	client := oauth2.NewClient(ctx, creds.TokenSource)
	client.Timeout = requestTimeout
	return NewGoogleSheetsWithClient(cfg.SheetID, cfg.Worksheet, client, sheetsBaseURL), nil
}

// NewGoogleSheetsWithClient uses client as is (for testing).
func NewGoogleSheetsWithClient(sheetID, worksheet string, client *http.Client, baseURL string) *GoogleSheets {
	return &GoogleSheets{
		sheetID:   sheetID,
		worksheet: worksheet,
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

type valueRange struct {
	Range          string  `json:"range"`
	MajorDimension string  `json:"majorDimension"`
	Values         [][]any `json:"values"`
}

func (g *GoogleSheets) FetchGrid(ctx context.Context) ([][]string, error) {
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s?majorDimension=ROWS&valueRenderOption=FORMATTED_VALUE",
		g.baseURL, url.PathEscape(g.sheetID), url.PathEscape(a1Range(g.worksheet)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build sheets request: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch sheet: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var vr valueRange
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("decode sheet values: %w", err)
	}

	grid := make([][]string, len(vr.Values))
	for i, row := range vr.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = cellString(v)
		}
		grid[i] = cells
	}
	return grid, nil
}

// a1Range turns a worksheet title into a range covering the whole sheet.
func a1Range(worksheet string) string {
	if worksheet == "" {
		return "A:ZZ"
	}
	return "'" + strings.ReplaceAll(worksheet, "'", "''") + "'"
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
