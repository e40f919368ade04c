package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stellarlinkco/rosterbot/internal/config"
	"github.com/stellarlinkco/rosterbot/internal/sheet"
)

const rosterCSV = "ID,,,Name,Status" + ",,,,,,,,,,,,,,,,,,Category\n" +
	"1,,,Ali Valiyev,faol" + ",,,,,,,,,,,,,,,,,,Math\n" +
	"2,,,Vali Aliyev,ketgan" + ",,,,,,,,,,,,,,,,,,Physics\n" +
	"3,,,Olim Karimov,faol" + ",,,,,,,,,,,,,,,,,,Math\n"

// setupEnv points config at a temp dir and a CSV roster.
func setupEnv(t *testing.T, csv string) string {
	t.Helper()
	dir := t.TempDir()
	for _, key := range []string{
		"ROSTERBOT_TELEGRAM_TOKEN", "BOT_TOKEN", "ROSTERBOT_WEBHOOK_URL", "ROSTERBOT_SHEET_ID",
		"ROSTERBOT_WORKSHEET", "ROSTERBOT_CREDENTIALS", "ROSTERBOT_REQUIRED_STATUS", "PORT", "ROSTERBOT_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("HOME", dir)
	t.Setenv("ROSTERBOT_CONFIG", filepath.Join(dir, "config.json"))

	path := filepath.Join(dir, "roster.csv")
	if err := os.WriteFile(path, []byte(csv), 0644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	t.Setenv("ROSTERBOT_SOURCE_TYPE", "csv")
	t.Setenv("ROSTERBOT_SOURCE_PATH", path)
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSearch(t *testing.T) {
	setupEnv(t, rosterCSV)

	out, err := run(t, "search", "ali")
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if !strings.Contains(out, "Ali Valiyev") || !strings.Contains(out, "Vali Aliyev") {
		t.Errorf("output missing matches:\n%s", out)
	}
	if !strings.Contains(out, "*Records found:* 2") {
		t.Errorf("output missing header:\n%s", out)
	}
}

func TestSearch_MultiWordAndPage(t *testing.T) {
	setupEnv(t, rosterCSV)

	out, err := run(t, "search", "olim", "karimov", "--page", "5")
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if !strings.Contains(out, "Olim Karimov") || !strings.Contains(out, "*Page:* 1/1") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestSearch_NothingFound(t *testing.T) {
	setupEnv(t, rosterCSV)

	out, err := run(t, "search", "nobody")
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if !strings.Contains(out, "Nothing found.") {
		t.Errorf("output = %q", out)
	}
}

func TestSearch_NoArgs(t *testing.T) {
	setupEnv(t, rosterCSV)

	if _, err := run(t, "search"); err == nil {
		t.Error("expected error without query")
	}
}

func TestSearch_SourceError(t *testing.T) {
	setupEnv(t, rosterCSV)
	orig := newSource
	defer func() { newSource = orig }()
	newSource = func(ctx context.Context, cfg config.SourceConfig) (sheet.Source, error) {
		return nil, errors.New("no credentials")
	}

	_, err := run(t, "search", "ali")
	if err == nil || !strings.Contains(err.Error(), "no credentials") {
		t.Errorf("err = %v", err)
	}
}

func TestStats(t *testing.T) {
	setupEnv(t, rosterCSV)

	out, err := run(t, "stats")
	if err != nil {
		t.Fatalf("stats error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want 4:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[1], "Math") || !strings.Contains(lines[1], "100.0") {
		t.Errorf("Math row = %q", lines[1])
	}
	if !strings.HasPrefix(lines[3], "All") || !strings.Contains(lines[3], "66.67") {
		t.Errorf("total row = %q", lines[3])
	}
}

func TestStats_EmptySheet(t *testing.T) {
	setupEnv(t, "ID,Name\n")

	out, err := run(t, "stats")
	if err != nil {
		t.Fatalf("stats error: %v", err)
	}
	if !strings.Contains(out, "The sheet is empty.") {
		t.Errorf("output = %q", out)
	}
}

func TestChart(t *testing.T) {
	dir := setupEnv(t, rosterCSV)
	path := filepath.Join(dir, "out.png")

	out, err := run(t, "chart", "-o", path)
	if err != nil {
		t.Fatalf("chart error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read chart: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")) {
		t.Error("output is not a PNG")
	}
	if !strings.Contains(out, "Wrote") {
		t.Errorf("output = %q", out)
	}
}

func TestChart_NoData(t *testing.T) {
	dir := setupEnv(t, "ID,Name\n1,Ali\n")

	if _, err := run(t, "chart", "-o", filepath.Join(dir, "out.png")); err == nil {
		t.Error("expected error without categories")
	}
}

func TestOnboard(t *testing.T) {
	dir := setupEnv(t, rosterCSV)

	out, err := run(t, "onboard")
	if err != nil {
		t.Fatalf("onboard error: %v", err)
	}
	if !strings.Contains(out, "Created config") {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.json")); err != nil {
		t.Errorf("config not written: %v", err)
	}

	out, _ = run(t, "onboard")
	if !strings.Contains(out, "already exists") {
		t.Errorf("second onboard output = %q", out)
	}
}

func TestStatus(t *testing.T) {
	setupEnv(t, rosterCSV)
	t.Setenv("ROSTERBOT_TELEGRAM_TOKEN", "123456:ABCDEFGHIJ")

	out, err := run(t, "status")
	if err != nil {
		t.Fatalf("status error: %v", err)
	}
	if !strings.Contains(out, "Token: 1234...GHIJ") {
		t.Errorf("token not masked:\n%s", out)
	}
	if strings.Contains(out, "ABCDEFGHIJ") {
		t.Error("full token leaked")
	}
	if !strings.Contains(out, "Ready: yes") {
		t.Errorf("expected ready:\n%s", out)
	}
}

func TestServe_NoToken(t *testing.T) {
	setupEnv(t, rosterCSV)

	_, err := run(t, "serve")
	if err == nil || !strings.Contains(err.Error(), "token") {
		t.Errorf("err = %v, want token error", err)
	}
}

func TestMaskToken(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "not set"},
		{"short", "set"},
		{"1234567890", "1234...7890"},
	}
	for _, tt := range tests {
		if got := maskToken(tt.in); got != tt.want {
			t.Errorf("maskToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
