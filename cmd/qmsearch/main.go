// Command qmsearch serves and prints the search integration diagnostic
// panels.
//
//	qmsearch serve   --config qmsearch.yaml
//	qmsearch collect --config qmsearch.yaml --request req.json --format text
//	qmsearch mcp     --config qmsearch.yaml
//	qmsearch purge   --config qmsearch.yaml
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/qmsearch/horosafe"
	"github.com/hazyhaar/qmsearch/host"
	"github.com/hazyhaar/qmsearch/idgen"
	"github.com/hazyhaar/qmsearch/kit"
	"github.com/hazyhaar/qmsearch/searchpanel"
)

var version = "dev"

var (
	configPath  string
	logLevel    string
	requestPath string
	format      string
	topics      []string
	fresh       bool
)

func main() {
	root := &cobra.Command{
		Use:           "qmsearch",
		Short:         "Diagnostic panels for the hosted search integration",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "qmsearch.yaml", "YAML config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the panels over HTTP",
		RunE:  runServe,
	}

	collectCmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect the panels once and print them",
		RunE:  runCollect,
	}
	collectCmd.Flags().StringVarP(&requestPath, "request", "r", "", "host request JSON file (- for stdin); empty uses the config only")
	collectCmd.Flags().StringVarP(&format, "format", "f", "text", "text, json or html")
	collectCmd.Flags().StringSliceVarP(&topics, "topic", "t", nil, "topics to collect (default all)")
	collectCmd.Flags().BoolVar(&fresh, "fresh", false, "bypass cached remote data")

	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the panel tools over MCP on stdio",
		RunE:  runMCP,
	}

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every cached remote lookup",
		RunE:  runPurge,
	}

	root.AddCommand(serveCmd, collectCmd, mcpCmd, purgeCmd)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := root.ExecuteContext(ctx); err != nil {
		slog.Error("qmsearch", "error", err)
		os.Exit(1)
	}
}

func setupLogging(w io.Writer) {
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})))
}

func openPanel() (*searchpanel.Panel, *searchpanel.Config, error) {
	cfg, err := searchpanel.LoadConfigFile(configPath)
	if err != nil {
		return nil, nil, err
	}
	slog.Debug("config loaded", "path", configPath, "app_id", cfg.Search.AppID, "api_key", horosafe.Redact(cfg.Search.APIKey))
	p, err := searchpanel.New(cfg, searchpanel.WithLogger(slog.Default()))
	if err != nil {
		return nil, nil, err
	}
	return p, cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	p, cfg, err := openPanel()
	if err != nil {
		return err
	}
	defer p.Close()
	p.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           p.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      2 * time.Minute,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("qmsearch: listening", "addr", cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		slog.Info("qmsearch: stopped")
	}
	return nil
}

func runCollect(cmd *cobra.Command, _ []string) error {
	req, err := readRequest(cmd.InOrStdin())
	if err != nil {
		return err
	}
	p, _, err := openPanel()
	if err != nil {
		return err
	}
	defer p.Close()

	ctx := kit.WithTransport(kit.WithRequestID(cmd.Context(), idgen.New()), "cli")
	if fresh {
		ctx = kit.WithForceFresh(ctx, true)
	}
	res, err := p.Collect(ctx, req, topics...)
	if err != nil {
		return err
	}
	views := p.Render(res)

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	case "html":
		return searchpanel.WriteHTML(out, views)
	case "text":
		return searchpanel.WriteText(out, views)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func readRequest(stdin io.Reader) (*host.Request, error) {
	req := &host.Request{}
	if requestPath == "" {
		return req, nil
	}
	var data []byte
	var err error
	if requestPath == "-" {
		data, err = horosafe.LimitedReadAll(stdin, 1<<20)
	} else {
		data, err = os.ReadFile(requestPath)
	}
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	if err := json.Unmarshal(data, req); err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	return req, nil
}

func runMCP(cmd *cobra.Command, _ []string) error {
	p, _, err := openPanel()
	if err != nil {
		return err
	}
	defer p.Close()
	p.Start(cmd.Context())

	srv := mcp.NewServer(&mcp.Implementation{Name: "qmsearch", Version: version}, nil)
	p.RegisterMCP(srv)
	return srv.Run(cmd.Context(), &mcp.StdioTransport{})
}

func runPurge(cmd *cobra.Command, _ []string) error {
	p, _, err := openPanel()
	if err != nil {
		return err
	}
	defer p.Close()

	n, err := p.Purge(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "purged %d cache entries\n", n)
	return nil
}
