// wagerboard is a terminal front end for the wager game-session server.
//
// It lists sessions newest first, with the session still in progress pinned
// to the top of every page, and opens the rounds played in a session.
//
// Usage:
//
//	wagerboard [flags]
//
// Flags:
//
//	-config string    Path to configuration file (default: ~/.config/wagerboard/config.toml)
//	-session int      Open the rounds of this session instead of the session list
//	-limit int        Rows per page (overrides table.limit)
//	-offset int       Initial offset
//	-total int        Known record count (0 = ask the server)
//	-refresh duration Reload the current page periodically (0 = never)
//	-use-mocks        Use generated data instead of the wager API
//	-mock-sessions int Number of mock sessions to generate (default: 25)
//	-mock-seed int    Random seed for mock data (0 = time based)
//	-plain            Print the first page once and exit
//	-verbose          Enable verbose logging
//	-version          Print version and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	zone "github.com/lrstanley/bubblezone"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"gitlab.com/tinyland/lab/wagerboard/pkg/components"
	"gitlab.com/tinyland/lab/wagerboard/pkg/config"
	"gitlab.com/tinyland/lab/wagerboard/pkg/pages"
	"gitlab.com/tinyland/lab/wagerboard/pkg/source"
	"gitlab.com/tinyland/lab/wagerboard/pkg/tui"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

// plainWidth is used when stdout is not a terminal.
const plainWidth = 100

func main() {
	var (
		configPath   = flag.String("config", "", "Path to configuration file")
		sessionID    = flag.Int("session", 0, "Open the rounds of this session")
		limit        = flag.Int("limit", 0, "Rows per page (0 = table.limit)")
		offset       = flag.Int("offset", 0, "Initial offset")
		total        = flag.Int("total", 0, "Known record count (0 = ask the server)")
		refresh      = flag.Duration("refresh", 0, "Reload the current page periodically (0 = never)")
		useMocks     = flag.Bool("use-mocks", false, "Use generated data instead of the wager API")
		mockSessions = flag.Int("mock-sessions", 25, "Number of mock sessions to generate (with -use-mocks)")
		mockSeed     = flag.Int64("mock-seed", 0, "Random seed for mock data (0 = time based)")
		plain        = flag.Bool("plain", false, "Print the first page once and exit")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
		showVersion  = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("wagerboard %s (%s) built %s\n", version, commit, date)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *limit != 0 {
		cfg.Table.Limit = *limit
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// Without a terminal there is nothing for the TUI to draw on.
	interactive := !*plain && isatty.IsTerminal(os.Stdout.Fd())

	level, _ := config.ParseLevel(cfg.General.LogLevel)
	if *verbose {
		level = slog.LevelDebug
	}
	logOut, closeLog, err := logWriter(cfg.General.LogFile, interactive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{
		Level: level,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	src, err := newSource(cfg, *useMocks, *mockSessions, *mockSeed, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create source: %v\n", err)
		os.Exit(1)
	}
	logger.Info("starting", "version", version, "source", src.Name(), "limit", cfg.Table.Limit)

	var zones *zone.Manager
	if interactive {
		zones = zone.New()
		defer zones.Close()
	}
	pcfg := pages.Config{
		Source:     src,
		Limit:      cfg.Table.Limit,
		Offset:     *offset,
		Total:      *total,
		TimeLayout: config.TimeLayoutPreset(cfg.Table.TimeLayout),
		IDPrefix:   cfg.Table.IDPrefix,
		Zones:      zones,
		Logger:     logger,
	}

	model := tui.New(tui.Options{
		PageSizes:    cfg.Table.PageSizes,
		Timeout:      cfg.API.Timeout.Duration,
		RefreshEvery: *refresh,
		Zones:        zones,
		Logger:       logger,
	})

	var root *pages.View
	if *sessionID > 0 {
		root, err = pages.NewRoundsView(ctx, pcfg, *sessionID, nil)
	} else {
		root, err = pages.NewSessionsView(ctx, pcfg, model.OpenSession)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build view: %v\n", err)
		os.Exit(1)
	}

	if !interactive {
		if err := printPlain(ctx, root); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		return
	}

	model.Push(root)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads path, or the default search path when empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFromFile(path)
}

// logWriter picks the log destination. The TUI owns the terminal, so
// interactive runs log to the file only.
func logWriter(logFile string, interactive bool) (io.Writer, func(), error) {
	if !interactive || logFile == "" {
		return os.Stderr, func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func newSource(cfg *config.Config, useMocks bool, sessions int, seed int64, logger *slog.Logger) (source.Source, error) {
	if useMocks {
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		logger.Info("using mock data", "sessions", sessions, "seed", seed)
		return source.NewMockSource(source.WithSessionCount(sessions), source.WithSeed(seed)), nil
	}
	return source.NewHTTPSource(source.HTTPConfig{
		BaseURL: cfg.API.BaseURL,
		Cookie:  cfg.API.Cookie,
		Timeout: cfg.API.Timeout.Duration,
		Logger:  logger,
	})
}

// printPlain renders the first page of v to stdout without color.
func printPlain(ctx context.Context, v *pages.View) error {
	lipgloss.SetColorProfile(termenv.Ascii)
	width := plainWidth
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		width = w
	}
	if err := v.Load(ctx); err != nil {
		return fmt.Errorf("load %s: %w", v.Title, err)
	}
	fmt.Println(v.Title)
	fmt.Println(v.Table.Render(width))
	if title, body := v.Detail(); title != "" {
		style := components.DefaultPanelStyle()
		style.Title = title
		fmt.Println(components.RenderPanel(body, min(width, 60), style))
	}
	cur, last := v.Table.Page()
	fmt.Printf("page %d of %d  ?%s\n", cur, last, v.Query.Encode())
	return nil
}
