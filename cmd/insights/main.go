// Command insights builds and reads property market-insights archives.
//
//	insights write  [--file PATH]              < {"properties":[...]}
//	insights read   [--file PATH]
//	insights export [--file PATH] [--shp PATH]
//
// Results are printed to stdout as one JSON document. Failures print
// {"status":"error","message":...} to stderr and exit 1.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"property_insights/internal/adapters/observability"
	"property_insights/internal/adapters/shapefile"
	"property_insights/internal/app"
	"property_insights/internal/shared"
	"property_insights/internal/storage/archive"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type errorResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type invocation struct {
	op      string
	file    string
	shpFile string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel, stderr)
	reg := observability.InitRegistry()

	inv, err := parseArgs(args, cfg, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "insights: %v\nusage: insights <write|read|export> [--file PATH] [--shp PATH]\n", err)
		return exitUsage
	}

	out, err := execute(context.Background(), inv, stdin)

	if terr := observability.WriteTextfile(reg, cfg.MetricsTextfile); terr != nil {
		log.Warn().Err(terr).Str("path", cfg.MetricsTextfile).Msg("metrics textfile write failed")
	}
	if err != nil {
		log.Debug().Err(err).Str("op", inv.op).Msg("operation failed")
		writeJSON(stderr, errorResult{Status: "error", Message: err.Error()})
		return exitError
	}
	writeJSON(stdout, out)
	return exitOK
}

func execute(ctx context.Context, inv invocation, stdin io.Reader) (any, error) {
	store := archive.New()
	switch inv.op {
	case "write":
		props, err := app.DecodeProperties(stdin)
		if err != nil {
			return nil, err
		}
		return app.NewBuildService(store, nil).Build(ctx, props, inv.file)
	case "read":
		return app.NewQueryService(store, nil, 0).Summary(ctx, inv.file)
	case "export":
		return app.NewExportService(store, shapefile.New()).Export(ctx, inv.file, inv.shpFile)
	}
	return nil, fmt.Errorf("unknown operation %q", inv.op)
}

// parseArgs accepts the operation before or after the flags.
func parseArgs(args []string, cfg shared.Config, stderr io.Writer) (invocation, error) {
	inv := invocation{}
	fs := flag.NewFlagSet("insights", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&inv.file, "file", cfg.ArchivePath, "archive path")
	fs.StringVar(&inv.shpFile, "shp", cfg.ShapePath, "shapefile output path (export)")

	var positional []string
	for {
		if len(args) > 0 && (args[0] == "-" || !strings.HasPrefix(args[0], "-")) {
			positional = append(positional, args[0])
			args = args[1:]
			continue
		}
		if len(args) == 0 {
			break
		}
		if err := fs.Parse(args); err != nil {
			return inv, err
		}
		args = fs.Args()
		if len(args) == 0 {
			break
		}
	}

	switch len(positional) {
	case 0:
		return inv, errors.New("missing operation")
	case 1:
		inv.op = positional[0]
	default:
		return inv, fmt.Errorf("unexpected arguments: %s", strings.Join(positional[1:], " "))
	}
	switch inv.op {
	case "write", "read", "export":
	default:
		return inv, fmt.Errorf("invalid operation %q (choose from write, read, export)", inv.op)
	}
	return inv, nil
}

func writeJSON(w io.Writer, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON output failed")
	}
}
