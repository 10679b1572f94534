package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	ledgerbridge "github.com/wippyai/ledger-bridge"
	"github.com/wippyai/ledger-bridge/engine"
	"github.com/wippyai/ledger-bridge/ledger"
	"github.com/wippyai/ledger-bridge/registry"
)

// argList collects repeated -arg flags.
type argList []string

func (a *argList) String() string { return strings.Join(*a, ",") }

func (a *argList) Set(v string) error {
	*a = append(*a, v)
	return nil
}

func main() {
	var (
		engineKind  = flag.String("engine", "sim", "Engine to drive (sim or wasm)")
		wasmFile    = flag.String("wasm", "", "Guest module for -engine wasm (default: built-in echo guest)")
		opName      = flag.String("op", "", "Operation to call")
		list        = flag.Bool("list", false, "List operations and exit")
		timeout     = flag.Duration("timeout", 10*time.Second, "Time to wait for each completion")
		count       = flag.Int("n", 1, "Number of calls to issue")
		concurrency = flag.Int("c", 32, "Maximum calls in flight with -n")
		metricsAddr = flag.String("metrics", "", "Serve Prometheus metrics on this address")
		scenario    = flag.String("scenario", "", "YAML file configuring the simulated engine")
		verbose     = flag.Bool("v", false, "Verbose logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		args        argList
	)
	flag.Var(&args, "arg", "Operation argument, in parameter order (repeatable)")
	flag.Parse()

	if *list {
		printCatalog()
		return
	}

	if *verbose {
		if err := setupLogging(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	cfg, err := buildConfig(*engineKind, *wasmFile, *scenario)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(cfg, *timeout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *concurrency < 1 {
		fmt.Fprintf(os.Stderr, "Error: -c must be at least 1, got %d\n", *concurrency)
		os.Exit(2)
	}

	if *opName == "" {
		fmt.Fprintln(os.Stderr, "Usage: ledgerctl -op <operation> [-arg value ...] [-engine sim|wasm]")
		fmt.Fprintln(os.Stderr, "       ledgerctl -list")
		fmt.Fprintln(os.Stderr, "       ledgerctl -op <operation> -n 1000 [-c 32]  (load)")
		fmt.Fprintln(os.Stderr, "       ledgerctl -i  (interactive mode)")
		os.Exit(1)
	}

	if err := run(cfg, *opName, args, *timeout, *count, *concurrency, *metricsAddr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging() error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	ledgerbridge.SetLogger(logger)
	registry.SetLogger(logger)
	engine.SetLogger(logger)
	ledger.SetLogger(logger)
	return nil
}

func buildConfig(engineKind, wasmFile, scenarioFile string) (*ledgerbridge.Config, error) {
	cfg := &ledgerbridge.Config{Engine: ledgerbridge.EngineKind(engineKind)}

	if wasmFile != "" {
		data, err := os.ReadFile(wasmFile)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		cfg.GuestModule = data
	}

	if scenarioFile != "" {
		sc, err := loadScenario(scenarioFile)
		if err != nil {
			return nil, err
		}
		if err := sc.apply(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func printCatalog() {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Operation", "Parameters", "Result"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	for _, op := range ledger.Operations() {
		table.Append([]string{
			fmt.Sprint(op.ID),
			op.Name,
			formatParams(op),
			op.Result.String(),
		})
	}
	table.Render()
}

func formatParams(op ledger.Operation) string {
	params := make([]string, len(op.Params))
	for i, p := range op.Params {
		name := p.Name
		if p.Kind == ledger.ParamOptional {
			name += "?"
		}
		params[i] = name + ": " + ledger.TypeName(p.Type)
	}
	return strings.Join(params, ", ")
}

// parseArgs converts textual arguments into operation values. Missing
// trailing optional parameters, and empty optional ones, are absent.
func parseArgs(op ledger.Operation, raw []string) ([]any, error) {
	if len(raw) > len(op.Params) {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", op.Name, len(op.Params), len(raw))
	}
	values := make([]any, len(op.Params))
	for i, p := range op.Params {
		if i >= len(raw) || (p.Kind == ledger.ParamOptional && raw[i] == "") {
			if p.Kind != ledger.ParamOptional {
				return nil, fmt.Errorf("missing argument %s", p.Name)
			}
			continue
		}
		v, err := p.Parse(raw[i])
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func run(cfg *ledgerbridge.Config, opName string, rawArgs []string, timeout time.Duration, count, concurrency int, metricsAddr string) error {
	ctx := context.Background()

	op, ok := ledger.Lookup(opName)
	if !ok {
		return fmt.Errorf("unknown operation %q (use -list)", opName)
	}
	values, err := parseArgs(op, rawArgs)
	if err != nil {
		return err
	}

	var srv *http.Server
	if metricsAddr != "" {
		promReg := prometheus.NewRegistry()
		cfg.Metrics = promReg
		srv = &http.Server{
			Addr:              metricsAddr,
			Handler:           promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
			}
		}()
		defer srv.Shutdown(ctx)
	}

	b, err := ledgerbridge.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create bridge: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := b.Close(closeCtx); err != nil {
			fmt.Fprintf(os.Stderr, "close: %v\n", err)
		}
	}()

	if count <= 1 {
		fields, err := call(ctx, b.Client(), op, values, timeout)
		if err != nil {
			return err
		}
		for _, f := range fields {
			fmt.Println(f)
		}
		return nil
	}
	return load(ctx, b, op, values, timeout, count, concurrency)
}

func call(ctx context.Context, c *ledger.Client, op ledger.Operation, values []any, timeout time.Duration) ([]string, error) {
	fut, err := c.Call(ctx, op, values...)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", op.Name, err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	fields, err := fut.Wait(waitCtx)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", op.Name, err)
	}
	return fields, nil
}

func load(ctx context.Context, b *ledgerbridge.Bridge, op ledger.Operation, values []any, timeout time.Duration, count, concurrency int) error {
	if concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", concurrency)
	}

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	start := time.Now()
	for i := 0; i < count; i++ {
		g.Go(func() error {
			if _, err := call(gctx, b.Client(), op, values, timeout); err != nil {
				failed.Add(1)
				ledgerbridge.Logger().Debug("call failed", zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	stats := b.Registry().Stats()
	rate := float64(count) / elapsed.Seconds()
	fmt.Printf("%s calls to %s in %s (%s calls/s)\n",
		humanize.Comma(int64(count)), op.Name, elapsed.Round(time.Millisecond),
		humanize.CommafWithDigits(rate, 1))
	fmt.Printf("completed %s, failed %s, cancelled %s, closed %s, anomalies %s\n",
		humanize.Comma(int64(stats.Completed)),
		humanize.Comma(failed.Load()),
		humanize.Comma(int64(stats.Cancelled)),
		humanize.Comma(int64(stats.Closed)),
		humanize.Comma(int64(stats.Anomalies)))
	return nil
}
