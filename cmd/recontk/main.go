// Command recontk runs one reconnaissance operation through the
// toolkit and prints the result envelope.
//
// Usage:
//
//	recontk -tool network -op nslookup -target example.com
//	recontk -tool network -op dig -target example.com -opt type=NS
//	recontk -tool active_recon -op port_scan -target 10.0.0.5 -opt from=1 -opt to=1024
//	SHODAN_API_KEY=... recontk -tool shodan -op get_host_details -target 8.8.8.8
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"recontk/internal/audit"
	"recontk/internal/config"
	reconlog "recontk/internal/log"
	"recontk/internal/report"
	"recontk/internal/toolkit"
	"recontk/internal/tools/activerecon"
	"recontk/internal/tools/certsearch"
	"recontk/internal/tools/dorking"
	"recontk/internal/tools/forensics"
	"recontk/internal/tools/hostintel"
	"recontk/internal/tools/network"
)

type optFlags map[string]any

func (o optFlags) String() string { return fmt.Sprintf("%v", map[string]any(o)) }

func (o optFlags) Set(v string) error {
	k, val, ok := strings.Cut(v, "=")
	if !ok || k == "" {
		return fmt.Errorf("option must be key=value, got %q", v)
	}
	o[k] = val
	return nil
}

func main() {
	var (
		toolType   = flag.String("tool", "", "tool type (network, shodan, ipinfo, crtsh, dorking, active_recon, forensics)")
		operation  = flag.String("op", "", "operation name")
		target     = flag.String("target", "", "target domain, address or path")
		format     = flag.String("format", "normal", "output format: json, xml or normal")
		outputFile = flag.String("output", "", "write the report to this file instead of stdout")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	opts := optFlags{}
	flag.Var(opts, "opt", "operation option as key=value (repeatable)")
	flag.Parse()

	if *toolType == "" || *operation == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*toolType, *operation, *target, toolkit.Options(opts), *format, *outputFile, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "recontk:", err)
		os.Exit(1)
	}
}

func run(toolType, operation, target string, opts toolkit.Options, format, outputFile string, verbose bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logCfg := reconlog.Config{Level: slog.LevelInfo, JSON: cfg.LogJSON}
	if verbose || cfg.LogLevel == "debug" {
		logCfg.Level = slog.LevelDebug
	}
	logger := reconlog.New(logCfg)
	if cfg.LogFile != "" {
		if logger, err = reconlog.NewFile(cfg.LogFile, logCfg); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder, closeRecorder, err := buildRecorder(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRecorder()

	tk := buildToolkit(cfg, logger, recorder)

	result := tk.Execute(ctx, toolType, operation, target, opts)

	out := map[string]any{
		"tool":      toolType,
		"operation": operation,
		"target":    target,
		"success":   result.Success,
	}
	if result.Success {
		out["data"] = result.Data
	} else {
		out["error"] = result.Error
	}
	if outputFile != "" {
		return report.WriteFile(out, format, outputFile)
	}
	return report.Print(out, format)
}

func buildRecorder(ctx context.Context, cfg *config.Config, logger *slog.Logger) (toolkit.Recorder, func(), error) {
	if cfg.AuditDSN == "" {
		return audit.NewSlogRecorder(logger), func() {}, nil
	}
	pg, err := audit.NewPostgresRecorder(ctx, cfg.AuditDSN, logger)
	if err != nil {
		return nil, nil, err
	}
	return pg, func() { _ = pg.Close() }, nil
}

// buildToolkit assembles every tool. Tools whose construction fails
// for a missing credential are logged and left out; the rest of the
// toolkit stays usable.
func buildToolkit(cfg *config.Config, logger *slog.Logger, recorder toolkit.Recorder) *toolkit.Toolkit {
	tools := []toolkit.Tool{
		network.New(cfg, logger, recorder),
		certsearch.New(cfg, logger, recorder),
		dorking.New(cfg, logger, recorder),
		activerecon.New(cfg, logger, recorder),
		forensics.New(cfg, logger, recorder),
	}

	if t, err := hostintel.NewShodan(cfg, logger, recorder); err != nil {
		logWarn(logger, hostintel.ShodanToolName, err)
	} else {
		tools = append(tools, t)
	}
	if t, err := hostintel.NewIPInfo(cfg, logger, recorder); err != nil {
		logWarn(logger, hostintel.IPInfoToolName, err)
	} else {
		tools = append(tools, t)
	}

	return toolkit.New(logger, tools...)
}

func logWarn(logger *slog.Logger, tool string, err error) {
	if errors.Is(err, toolkit.ErrMissingCredential) {
		logger.Warn("tool disabled", "tool", tool, "reason", err)
		return
	}
	logger.Error("tool construction failed", "tool", tool, "error", err)
}
