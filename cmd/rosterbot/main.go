package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"github.com/stellarlinkco/rosterbot/internal/chart"
	"github.com/stellarlinkco/rosterbot/internal/config"
	"github.com/stellarlinkco/rosterbot/internal/gateway"
	"github.com/stellarlinkco/rosterbot/internal/render"
	"github.com/stellarlinkco/rosterbot/internal/roster"
	"github.com/stellarlinkco/rosterbot/internal/sheet"
)

// SourceFactory opens the configured grid source (replaced in tests).
type SourceFactory func(ctx context.Context, cfg config.SourceConfig) (sheet.Source, error)

var newSource SourceFactory = sheet.New

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rosterbot",
		Short:         "rosterbot - Telegram lookup bot over a roster sheet",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot (polling or webhook) with its HTTP server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the sheet and print one result page",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}
	searchCmd.Flags().IntP("page", "p", 1, "Page to print")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print totals per category",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}

	chartCmd := &cobra.Command{
		Use:   "chart",
		Short: "Write the category bar chart as PNG",
		Args:  cobra.NoArgs,
		RunE:  runChart,
	}
	chartCmd.Flags().StringP("output", "o", "chart.png", "Output file")

	onboardCmd := &cobra.Command{
		Use:   "onboard",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE:  runOnboard,
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show rosterbot configuration",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}

	root.AddCommand(serveCmd, searchCmd, statsCmd, chartCmd, onboardCmd, statusCmd)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token not set. Run 'rosterbot onboard' or set ROSTERBOT_TELEGRAM_TOKEN / BOT_TOKEN")
	}

	logger, closeLog := config.SetupLogger(cfg.Log.File, config.ParseLevel(cfg.Log.Level))
	defer closeLog()
	slog.SetDefault(logger)

	gw, err := gateway.NewWithOptions(cfg, gateway.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}
	return gw.Run(cmd.Context())
}

// loadGrid loads config and fetches the grid for the offline commands.
func loadGrid(ctx context.Context) (*config.Config, [][]string, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateSource(); err != nil {
		return nil, nil, err
	}
	src, err := newSource(ctx, cfg.Source)
	if err != nil {
		return nil, nil, fmt.Errorf("open source: %w", err)
	}
	grid, err := src.FetchGrid(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch grid: %w", err)
	}
	return cfg, grid, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	page, _ := cmd.Flags().GetInt("page")

	cfg, grid, err := loadGrid(cmd.Context())
	if err != nil {
		return err
	}

	query := args[0]
	for _, a := range args[1:] {
		query += " " + a
	}

	active := roster.NewStatusPredicate(cfg.Search.RequiredStatus)
	results := roster.NewMatcher(cfg.Fields, active).Match(grid, query)
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "Nothing found.")
		return nil
	}

	p := render.Pager{PageSize: cfg.Search.PageSize, Active: active}.Render(results, page)
	fmt.Fprintln(out, p.Text)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, grid, err := loadGrid(cmd.Context())
	if err != nil {
		return err
	}
	if len(grid) <= 1 {
		fmt.Fprintln(cmd.OutOrStdout(), "The sheet is empty.")
		return nil
	}

	active := roster.NewStatusPredicate(cfg.Search.RequiredStatus)
	report := roster.SummarizeByCategory(grid, cfg.Fields.Category, cfg.Fields.Status, active)
	printStatsTable(cmd.OutOrStdout(), report)
	return nil
}

// printStatsTable aligns by display width so wide runes line up.
func printStatsTable(w io.Writer, report roster.CategoryReport) {
	width := runewidth.StringWidth("Category")
	for _, c := range report.Categories {
		width = max(width, runewidth.StringWidth(c.Category))
	}

	row := func(name, total, active, pct string) {
		fmt.Fprintf(w, "%s  %7s  %7s  %7s\n", runewidth.FillRight(name, width), total, active, pct)
	}
	row("Category", "Total", "Active", "%")
	for _, c := range report.Categories {
		row(c.Category, strconv.Itoa(c.Total), strconv.Itoa(c.Active), render.FormatPercent(c.Percent))
	}
	o := report.Overall
	row("All", strconv.Itoa(o.Total), strconv.Itoa(o.Active), render.FormatPercent(o.Percent))
}

func runChart(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	cfg, grid, err := loadGrid(cmd.Context())
	if err != nil {
		return err
	}

	png, err := chart.NewRenderer().Render(roster.CountCategories(grid, cfg.Fields.Category))
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	if err := os.WriteFile(output, png, 0644); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", output, len(png))
	return nil
}

func runOnboard(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfgPath := config.ConfigPath()

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintf(out, "Created config: %s\n", cfgPath)
	} else {
		fmt.Fprintf(out, "Config already exists: %s\n", cfgPath)
	}

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintf(out, "  1. Edit %s to set the bot token and source\n", cfgPath)
	fmt.Fprintln(out, "  2. Or set ROSTERBOT_TELEGRAM_TOKEN and ROSTERBOT_SHEET_ID")
	fmt.Fprintln(out, "  3. Run 'rosterbot search <name>' to test the source")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(out, "Config: error (%v)\n", err)
		return nil
	}

	fmt.Fprintf(out, "Config: %s\n", config.ConfigPath())
	fmt.Fprintf(out, "Token: %s\n", maskToken(cfg.Telegram.Token))
	fmt.Fprintf(out, "Mode: %s\n", cfg.Telegram.Mode)
	fmt.Fprintf(out, "Source: %s\n", sourceDisplay(cfg.Source))
	fmt.Fprintf(out, "Required status: %s\n", cfg.Search.RequiredStatus)
	fmt.Fprintf(out, "Page size: %d\n", cfg.Search.PageSize)
	fmt.Fprintf(out, "Listen: %s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(out, "Ready: no (%v)\n", err)
	} else {
		fmt.Fprintln(out, "Ready: yes")
	}
	return nil
}

func maskToken(token string) string {
	switch {
	case token == "":
		return "not set"
	case len(token) > 8:
		return token[:4] + "..." + token[len(token)-4:]
	default:
		return "set"
	}
}

func sourceDisplay(src config.SourceConfig) string {
	switch src.Type {
	case config.SourceCSV, config.SourceXLSX:
		return src.Type + " " + src.Path
	default:
		if src.SheetID == "" {
			return "sheets (sheet id not set)"
		}
		return "sheets " + src.SheetID
	}
}
