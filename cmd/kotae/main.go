// Package main is the kotae CLI entry point.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory wins if present, and a missing default file yields built-in
// defaults. Returns the config and the path that was actually loaded ("" for defaults).
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
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// setup loads config and builds a logger. debug forces debug logging.
func setup(configPath string, debug bool) (*config.Config, string, *zap.Logger, error) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to load config: %w", err)
	}
	if debug {
		cfg.Debug = true
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, resolved, logger, nil
}

// buildQuery joins all positional args with spaces so multi-word questions work the
// same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the positional
// arguments to the front so that flag.Parse() sees them. Go's flag package stops at
// the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	args := os.Args[2:]
	switch command := os.Args[1]; command {
	case "server":
		runServer(args)
	case "ask":
		runAsk(args)
	case "ingest":
		runIngest(args)
	case "watch":
		runWatch(args)
	case "chat":
		runChat(args)
	case "status":
		runStatus(args)
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`kotae - news question answering over a local index and web search

Usage:
  kotae server [flags]              Start the HTTP server
  kotae ask [flags] <question>      Ask a question
  kotae ingest [flags] <path>       Ingest a file or directory and save the index
  kotae watch [flags] [dir...]      Ingest changes under directories until interrupted
  kotae watch <add|list> [path]     Manage a running server's watched directories
  kotae chat [flags]                Interactive terminal chat
  kotae status [flags]              Show index and ledger status
  kotae version                     Show version
  kotae help                        Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging

Ask Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" to answer in-process.
  --top-k int        Number of local documents to retrieve (default from config)
  --output string    Output format: text or json (default: text)
  --verbose          Print retrieved context and stage outcomes

Ingest / Watch Flags:
  --recursive        Walk subdirectories (default from config, true)

Status Flags:
  --server string    Server URL. Use --server "" to read the index directly.
  --output string    Output format: text or json

Environment:
  LLM_API_KEY, HUGGINGFACEHUB_API_TOKEN or OPENAI_API_KEY   language model credentials
  EMBEDDING_API_KEY or OPENAI_API_KEY                       embeddings (provider: openai)
  SERPER_API_KEY                                            web search
  A .env file in the working directory is loaded at startup.

Examples:
  kotae server
  kotae ingest ~/news
  kotae ask "Что произошло на саммите?"
  kotae ask --server "" --verbose --top-k 8 курс рубля
  kotae status --output json
  kotae watch add ~/news/feeds`)
}
