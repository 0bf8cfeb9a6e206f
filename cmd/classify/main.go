package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/grievai-platform/cmd/mainconfig"
	"github.com/wolfman30/grievai-platform/internal/app/bootstrap"
	"github.com/wolfman30/grievai-platform/internal/classification"
	appconfig "github.com/wolfman30/grievai-platform/internal/config"
	"github.com/wolfman30/grievai-platform/pkg/analyzeclient"
	"github.com/wolfman30/grievai-platform/pkg/classify"
	"github.com/wolfman30/grievai-platform/pkg/logging"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "classify:", err)
		os.Exit(1)
	}
}

type options struct {
	title     string
	location  string
	mode      string
	server    string
	token     string
	heuristic bool
	legacy    bool
	timeout   time.Duration
}

// run classifies the description given as arguments, or read from stdin,
// and prints the result as JSON.
func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	var opts options
	fs.StringVar(&opts.title, "title", "", "grievance title")
	fs.StringVar(&opts.location, "location", "", "location hint")
	fs.StringVar(&opts.mode, "mode", "text", "input mode: text, voice, image or location")
	fs.StringVar(&opts.server, "server", "", "classify through a running API at this base URL")
	fs.StringVar(&opts.token, "token", os.Getenv("GRIEVAI_TOKEN"), "bearer token for -server")
	fs.BoolVar(&opts.heuristic, "heuristic", false, "skip the LLM and use keyword rules only")
	fs.BoolVar(&opts.legacy, "legacy", false, "with -heuristic, use the legacy server rules")
	fs.DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	description := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if description == "" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		description = strings.TrimSpace(string(raw))
	}
	if description == "" {
		return fmt.Errorf("a description is required")
	}
	in := classify.Input{
		Title:        opts.title,
		Description:  description,
		LocationHint: opts.location,
		InputMode:    classify.InputMode(opts.mode),
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	start := time.Now()
	result, source, err := classifyWith(ctx, opts, in)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		classify.Result
		Source    string `json:"source"`
		ElapsedMS int64  `json:"elapsed_ms"`
	}{result, source, time.Since(start).Milliseconds()})
}

func classifyWith(ctx context.Context, opts options, in classify.Input) (classify.Result, string, error) {
	switch {
	case opts.heuristic:
		spec := classify.DefaultRules()
		if opts.legacy {
			spec = classify.LegacyServerRules()
		}
		rules, err := classify.Compile(spec)
		if err != nil {
			return classify.Result{}, "", err
		}
		return rules.Classify(in.Normalize()), "heuristic:" + spec.Name, nil

	case opts.server != "":
		client := analyzeclient.New(opts.server, analyzeclient.StaticToken(opts.token),
			analyzeclient.WithLogger(logging.NewWithWriter("warn", os.Stderr)))
		analysis, err := client.Analyze(ctx, in)
		if err != nil {
			return classify.Result{}, "", err
		}
		if analysis.Local {
			return analysis.Result, "client-fallback", nil
		}
		return analysis.Result, "server", nil

	default:
		cfg := appconfig.Load()
		logger := logging.NewWithWriter(cfg.LogLevel, os.Stderr)
		gateway, closeGateway, err := bootstrap.BuildGateway(ctx, cfg, mainconfig.LoadAWSConfig, logger)
		if err != nil {
			return classify.Result{}, "", err
		}
		defer closeGateway()
		svc := classification.NewService(gateway, logger, classification.WithTimeout(cfg.LLMTimeout))
		return svc.Analyze(ctx, in), svc.Provider(), nil
	}
}
