// Package main provides a command line entry point for one-off recommendations.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	"github.com/osa030/tunetaste/internal/app/analysis"
	"github.com/osa030/tunetaste/internal/domain/recommendation"
	"github.com/osa030/tunetaste/internal/infra/config"
	"github.com/osa030/tunetaste/internal/infra/logger"
)

var (
	app         = kingpin.New("tunetaste-analyze", "Recommend one song for a Spotify playlist")
	configPath  = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose     = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	jsonOutput  = app.Flag("json", "Print the result as JSON").Bool()
	playlistURL = app.Arg("playlist-url", "Spotify playlist URL").Required().String()
)

type output struct {
	Status         string  `json:"status"`
	Message        string  `json:"message"`
	Recommendation *string `json:"recommendation"`
	Code           string  `json:"code,omitempty"`
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	// Logs go to stderr so stdout carries only the result
	loggerConfig := logger.Config{Output: "stderr", Level: "warn"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if err := logger.Init(loggerConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	analyzer, err := analysis.NewFromConfig(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	result := analyzer.Analyze(ctx, *playlistURL)

	if *jsonOutput {
		printJSON(result)
	} else {
		printText(result)
	}

	if !result.OK() && result.Kind != recommendation.KindEmptyResult {
		os.Exit(1)
	}
}

func printText(result recommendation.Result) {
	if result.Recommendation == nil {
		fmt.Printf("%s\n", result.Message)
		return
	}
	fmt.Printf("%s\n\n  %s\n", result.Message, *result.Recommendation)
}

func printJSON(result recommendation.Result) {
	out := output{
		Status:         "success",
		Message:        result.Message,
		Recommendation: result.Recommendation,
	}
	if !result.OK() && result.Kind != recommendation.KindEmptyResult {
		out.Status = "error"
		out.Code = result.Kind.Code()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
