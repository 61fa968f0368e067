package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/tui"
	"go.uber.org/zap"
)

func runAsk(args []string) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL (empty = answer in-process)")
	topK := fs.Int("top-k", 0, "number of local documents to retrieve (0 = config default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	verbose := fs.Bool("verbose", false, "print retrieved context and stage outcomes")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(argsReorder(args))

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	req := models.AskRequest{Query: buildQuery(fs.Args()), TopK: *topK}
	if !req.Normalize() {
		fatalf("Usage: kotae ask [flags] <question>")
	}
	if err := models.Validate(&req); err != nil {
		fatalf("Invalid question: %v", err)
	}

	ctx := context.Background()
	var resp *models.AskResponse
	if *serverURL != "" {
		resp, err = cli.NewClient(*serverURL).Ask(ctx, req)
		if err != nil {
			fatalf("Ask failed: %v", err)
		}
	} else {
		withComponents(*configPath, *debug, func(c *Components, _ *zap.Logger) {
			answer := c.Answerer.AskWithTopK(ctx, req.Query, req.TopK)
			resp = models.NewAskResponse(answer)
		})
	}
	if err := cli.WriteAnswer(os.Stdout, resp, format, *verbose); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runIngest(args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	recursive := fs.Bool("recursive", true, "walk subdirectories")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(argsReorder(args))

	if fs.NArg() < 1 {
		fatalf("Usage: kotae ingest [flags] <file-or-directory>")
	}
	path := fs.Arg(0)
	info, err := os.Stat(path)
	if err != nil {
		fatalf("Failed to stat path: %v", err)
	}

	withComponents(*configPath, *debug, func(c *Components, logger *zap.Logger) {
		ctx := context.Background()
		if info.IsDir() {
			sum, err := c.Ingester.IngestDirectory(ctx, path, *recursive)
			if err != nil {
				// Keep what was ingested before the failure.
				if saveErr := c.SaveIndex(); saveErr != nil {
					logger.Error("index save failed", zap.Error(saveErr))
				}
				fatalf("Ingesting directory failed after %d file(s): %v", sum.Files, err)
			}
			fmt.Printf("Ingested %d file(s) from %s: %d chunk(s), %d unchanged, %d failed\n",
				sum.Files, path, sum.Chunks, sum.Skipped, sum.Failed)
		} else {
			res, err := c.Ingester.IngestFile(ctx, path)
			if err != nil {
				fatalf("Ingesting failed: %v", err)
			}
			if res.Skipped {
				fmt.Printf("Unchanged since last ingest: %s\n", res.Path)
				return
			}
			fmt.Printf("Ingested %s: %d chunk(s)\n", res.Path, res.Chunks)
		}
		if err := c.SaveIndex(); err != nil {
			fatalf("Saving index failed: %v", err)
		}
	})
}

func runWatch(args []string) {
	if len(args) > 0 && (args[0] == "add" || args[0] == "list") {
		runWatchRemote(args[0], args[1:])
		return
	}
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(argsReorder(args))

	withComponents(*configPath, *debug, func(c *Components, logger *zap.Logger) {
		dirs := c.Config.Ingest.Directories
		if fs.NArg() > 0 {
			dirs = fs.Args()
		}
		if len(dirs) == 0 {
			fatalf("No directories to watch; pass them as arguments or set ingest.directories")
		}
		w, err := newWatcher(c, dirs, logger)
		if err != nil {
			fatalf("Failed to create watcher: %v", err)
		}
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		if err := w.Start(ctx); err != nil {
			fatalf("Failed to start watcher: %v", err)
		}
		w.SyncExistingFiles(ctx)
		fmt.Printf("Watching %d director(ies); press Ctrl+C to stop\n", len(w.Directories()))
		<-ctx.Done()
		w.Stop()
		if err := c.SaveIndex(); err != nil {
			fatalf("Saving index failed: %v", err)
		}
	})
}

func runWatchRemote(sub string, args []string) {
	fs := flag.NewFlagSet("watch "+sub, flag.ExitOnError)
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL")
	_ = fs.Parse(argsReorder(args))
	client := cli.NewClient(*serverURL)
	ctx := context.Background()

	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fatalf("Usage: kotae watch add <path>")
		}
		path, err := filepath.Abs(fs.Arg(0))
		if err != nil {
			fatalf("Invalid path: %v", err)
		}
		if err := client.AddWatchDirectory(ctx, path); err != nil {
			fatalf("Add failed: %v", err)
		}
		fmt.Printf("Added: %s\n", path)
	case "list":
		dirs, err := client.WatchDirectories(ctx)
		if err != nil {
			fatalf("List failed: %v", err)
		}
		for _, d := range dirs {
			fmt.Println(d)
		}
	}
}

func runChat(args []string) {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	topK := fs.Int("top-k", 0, "number of local documents to retrieve (0 = config default)")
	_ = fs.Parse(args)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	// Log output would corrupt the alternate screen.
	components, err := initializeComponents(cfg, config.LoadSecrets(), zap.NewNop())
	if err != nil {
		fatalf("Failed to initialize: %v", err)
	}
	defer components.Close()

	k := *topK
	if k <= 0 {
		k = cfg.RAG.TopK
	}
	web := "off"
	if components.Answerer.WebEnabled() {
		web = "on"
	}
	summary := fmt.Sprintf("%d documents in index | top_k %d | web search %s",
		components.Index.DocumentCount(), k, web)
	if _, err := tea.NewProgram(tui.New(components.Answerer, k, summary), tea.WithAltScreen()).Run(); err != nil {
		fatalf("Chat failed: %v", err)
	}
}

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL (empty = read the index directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	var status *models.StatusResponse
	if *serverURL != "" {
		status, err = cli.NewClient(*serverURL).Status(context.Background())
		if err != nil {
			fatalf("Status failed: %v", err)
		}
	} else {
		withComponents(*configPath, false, func(c *Components, _ *zap.Logger) {
			status, err = c.Status(context.Background())
			if err != nil {
				fatalf("Status failed: %v", err)
			}
		})
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

// withComponents loads config, builds components, runs fn and releases everything.
func withComponents(configPath string, debug bool, fn func(*Components, *zap.Logger)) {
	cfg, _, logger, err := setup(configPath, debug)
	if err != nil {
		fatalf("%v", err)
	}
	defer logger.Sync()
	components, err := initializeComponents(cfg, config.LoadSecrets(), logger)
	if err != nil {
		fatalf("Failed to initialize: %v", err)
	}
	defer components.Close()
	fn(components, logger)
}
