// Package main is the tsunagu CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/tsunagu/internal/cli"
	"github.com/hyperjump/tsunagu/internal/config"
	"github.com/hyperjump/tsunagu/internal/keyword"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/server"
	"github.com/hyperjump/tsunagu/internal/service"
	"github.com/hyperjump/tsunagu/internal/watcher"
	"github.com/hyperjump/tsunagu/pkg/utils"
	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/tsunagu/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "tsunagu server" from the project dir uses the project's config (including debug).
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "suggest":
		runSuggest()
	case "apply":
		runApply()
	case "search":
		runSearch()
	case "backlinks":
		runBacklinks()
	case "detach":
		runDetach()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("tsunagu version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (note changes, suggestion generation, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := service.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize service", zap.Error(err))
	}
	defer svc.Close()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Notes.Watch {
		watchOpts := []watcher.WatcherOption{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc := watcher.NewWatcher(cfg.Notes.Dir, svc.MarkDirty, watchOpts...)
		if err := watchSvc.Start(gctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(svc, &cfg.Server, logger)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// initializeService builds a local service from the config at configPath.
// Used by subcommands running in direct mode (without a server).
func initializeService(configPath string) (*service.Service, *zap.Logger, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	svc, err := service.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize service: %w", err)
	}
	return svc, logger, nil
}

func parseOutputFormat(name string) (cli.OutputFormat, error) {
	switch name {
	case "json":
		return cli.OutputJSON, nil
	case "text":
		return cli.OutputText, nil
	default:
		return cli.OutputText, fmt.Errorf("unknown output format %q; use text or json", name)
	}
}

func runSuggest() {
	fs := flag.NewFlagSet("suggest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = direct mode)")
	all := fs.Bool("all", false, "generate suggestions for every note in the corpus")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if !*all && fs.NArg() < 1 {
		fmt.Println("Usage: tsunagu suggest [flags] <note-title>")
		fmt.Println("       tsunagu suggest --all [flags]")
		os.Exit(1)
	}

	if *serverURL != "" {
		if *all {
			allSuggestions, err := suggestAllViaHTTP(*serverURL)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Suggest failed: %v\n", err)
				os.Exit(1)
			}
			if err := cli.WriteSuggestionMap(os.Stdout, allSuggestions, format); err != nil {
				fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
				os.Exit(1)
			}
			return
		}
		title := fs.Arg(0)
		suggestions, err := suggestViaHTTP(*serverURL, title)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Suggest failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteSuggestions(os.Stdout, title, suggestions, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	svc, logger, err := initializeService(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer svc.Close()
	defer logger.Sync()

	if *all {
		allSuggestions, err := svc.SuggestAll(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Suggest failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteSuggestionMap(os.Stdout, allSuggestions, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	title := fs.Arg(0)
	suggestions, err := svc.Suggest(context.Background(), title)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Suggest failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSuggestions(os.Stdout, title, suggestions, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runApply() {
	fs := flag.NewFlagSet("apply", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	minConfidence := fs.Float64("min-confidence", 0, "apply only suggestions at or above this confidence")
	dryRun := fs.Bool("dry-run", false, "print the rewritten content without saving")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: tsunagu apply [flags] <note-title>")
		os.Exit(1)
	}
	title := fs.Arg(0)

	svc, logger, err := initializeService(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer svc.Close()
	defer logger.Sync()

	ctx := context.Background()
	suggestions, err := svc.Suggest(ctx, title)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Suggest failed: %v\n", err)
		os.Exit(1)
	}
	selected := suggestions[:0]
	for _, s := range suggestions {
		if s.Confidence >= *minConfidence {
			selected = append(selected, s)
		}
	}
	if len(selected) == 0 {
		fmt.Printf("%s: nothing to apply\n", title)
		return
	}
	if *dryRun {
		if err := cli.WriteSuggestions(os.Stdout, title, selected, cli.OutputText); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	content, err := svc.Apply(ctx, title, selected)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Apply failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Applied %d suggestion(s) to %s (%d bytes)\n", len(selected), title, len(content))
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = direct mode)")
	limit := fs.Int("limit", 10, "maximum number of hits")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Println("Usage: tsunagu search [flags] <query>")
		os.Exit(1)
	}
	query := strings.Join(fs.Args(), " ")

	if *serverURL != "" {
		hits, err := searchViaHTTP(*serverURL, query, *limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteNoteHits(os.Stdout, query, hits, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	svc, logger, err := initializeService(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer svc.Close()
	defer logger.Sync()

	hits, err := svc.SearchNotes(context.Background(), query, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteNoteHits(os.Stdout, query, hits, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runBacklinks() {
	fs := flag.NewFlagSet("backlinks", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = direct mode)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Println("Usage: tsunagu backlinks [flags] <note-title>")
		os.Exit(1)
	}
	title := fs.Arg(0)

	if *serverURL != "" {
		groups, err := backlinksViaHTTP(*serverURL, title)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Backlinks failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteBacklinks(os.Stdout, title, groups, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	svc, logger, err := initializeService(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer svc.Close()
	defer logger.Sync()

	if err := cli.WriteBacklinks(os.Stdout, title, svc.Backlinks(title), format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runDetach() {
	fs := flag.NewFlagSet("detach", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 2 {
		fmt.Println("Usage: tsunagu detach [flags] <origin-title> <destination-title>")
		os.Exit(1)
	}
	origin, destination := fs.Arg(0), fs.Arg(1)

	svc, logger, err := initializeService(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer svc.Close()
	defer logger.Sync()

	if err := svc.Detach(origin, destination); err != nil {
		fmt.Fprintf(os.Stderr, "Detach failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Detached: %s -> %s\n", origin, destination)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = direct mode)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status service.Status
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		svc, logger, err := initializeService(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer svc.Close()
		defer logger.Sync()
		res, err := svc.Status(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("notes:      %d   # notes loaded from the notes directory\n", status.Notes)
		fmt.Printf("indexed:    %d   # notes in the semantic corpus index\n", status.Indexed)
		fmt.Printf("backlinks:  %d   # registered backlink entries\n", status.Backlinks)
		fmt.Printf("embedder:   %s\n", status.Embedder)
		fmt.Printf("degraded:   %t   # literal-only mode when the embedder is unavailable\n", status.Degraded)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func suggestViaHTTP(serverURL, title string) ([]models.LinkSuggestion, error) {
	body, err := json.Marshal(map[string]string{"title": title})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/suggestions", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response struct {
		Suggestions []models.LinkSuggestion `json:"suggestions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return response.Suggestions, nil
}

func suggestAllViaHTTP(serverURL string) (map[string][]models.LinkSuggestion, error) {
	resp, err := http.Post(serverURL+"/api/v1/suggestions/all", "application/json", nil)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response struct {
		Suggestions map[string][]models.LinkSuggestion `json:"suggestions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return response.Suggestions, nil
}

func searchViaHTTP(serverURL, query string, limit int) ([]keyword.Hit, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	resp, err := http.Get(serverURL + "/api/v1/search?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response struct {
		Hits []keyword.Hit `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return response.Hits, nil
}

func backlinksViaHTTP(serverURL, title string) ([]models.BacklinkGroup, error) {
	resp, err := http.Get(serverURL + "/api/v1/backlinks/" + url.PathEscape(title))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response struct {
		Backlinks []models.BacklinkGroup `json:"backlinks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return response.Backlinks, nil
}

func statusViaHTTP(serverURL string) (*service.Status, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s service.Status
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func printUsage() {
	fmt.Println(`tsunagu - Semantic note linking engine

Usage:
  tsunagu server [flags]                     Start the HTTP server
  tsunagu suggest [flags] <note-title>       Generate link suggestions for a note
  tsunagu suggest --all [flags]              Generate link suggestions for all notes
  tsunagu apply [flags] <note-title>         Generate and apply suggestions in place
  tsunagu search [flags] <query>             Keyword search over the note corpus
  tsunagu backlinks [flags] <note-title>     Show backlinks pointing at a note
  tsunagu detach [flags] <origin> <dest>     Remove backlinks between two notes
  tsunagu status [flags]                     Show corpus and index status
  tsunagu version                            Show version
  tsunagu help                               Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/tsunagu/config.yaml)
  --debug            Enable debug logging (note changes, suggestion generation, etc.)

Suggest Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (empty = direct mode, default)
  --all              Generate suggestions for the whole corpus
  --output string    Output format: text or json (default: text)

Apply Flags:
  --config string           Config file path
  --min-confidence float    Apply only suggestions at or above this confidence
  --dry-run                 Print the selected suggestions without saving

Search Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (empty = direct mode, default)
  --limit int        Maximum number of hits (default: 10)
  --output string    Output format: text or json (default: text)

Backlinks Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (empty = direct mode, default)
  --output string    Output format: text or json (default: text)

Status Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct mode.
  --output string    Output format: text or json (default: text)

Examples:
  tsunagu server
  tsunagu suggest "minha nota"
  tsunagu suggest --all --output json
  tsunagu apply --min-confidence 0.6 "minha nota"
  tsunagu search "redes neurais"
  tsunagu backlinks "nota destino"
  tsunagu status --server "" --output json`)
}
