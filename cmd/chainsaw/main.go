package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kluth/chainsaw/internal/audit"
	"github.com/kluth/chainsaw/internal/config"
	"github.com/kluth/chainsaw/internal/github"
	"github.com/kluth/chainsaw/internal/osv"
	"github.com/kluth/chainsaw/internal/registry"
	"github.com/kluth/chainsaw/internal/reporter"
	"github.com/kluth/chainsaw/internal/server"
	"github.com/kluth/chainsaw/internal/sigstore"
	"github.com/kluth/chainsaw/internal/telemetry"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	cfgFile      string
	listenAddr   string
	registryURL  string
	githubToken  string
	outputFormat string
	outputFile   string
	debug        bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chainsaw",
		Short: "Audit npm packages for supply-chain risks",
		Long: fmt.Sprintf(`chainsaw audits npm packages against the registry, GitHub,
OSV.dev and the npm attestation log, and aggregates the findings into
a single risk score with a four-axis radar breakdown.

Build Info: Commit %s

Examples:  chainsaw audit lodash
  chainsaw audit expresss --format json
  chainsaw compare lodash 4.17.11 4.17.21
  chainsaw serve --addr :8000`, commit),
		Version: version,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default chainsaw.yaml)")
	rootCmd.PersistentFlags().StringVar(&registryURL, "registry", "", "npm registry URL override")
	rootCmd.PersistentFlags().StringVar(&githubToken, "github-token", "", "GitHub API token override")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	auditCmd := &cobra.Command{
		Use:   "audit <package>[@version]",
		Short: "Audit a single npm package",
		Args:  cobra.ExactArgs(1),
		RunE:  runAudit,
	}
	auditCmd.Flags().StringVarP(&outputFormat, "format", "f", "terminal", "output format (terminal, json, markdown, pdf)")
	auditCmd.Flags().StringVarP(&outputFile, "output", "o", "", "write report to file instead of stdout")

	compareCmd := &cobra.Command{
		Use:   "compare <package> <version-a> <version-b>",
		Short: "Compare the risk of two versions of a package",
		Args:  cobra.ExactArgs(3),
		RunE:  runCompare,
	}
	compareCmd.Flags().StringVarP(&outputFormat, "format", "f", "terminal", "output format (terminal, json)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the audit HTTP API",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address (default :8000)")

	rootCmd.AddCommand(auditCmd, compareCmd, serveCmd, newMcpCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if registryURL != "" {
		cfg.RegistryURL = registryURL
	}
	if githubToken != "" {
		cfg.GitHubToken = githubToken
	}
	if debug {
		cfg.Debug = true
	}
	return cfg, nil
}

func buildAuditor(cfg *config.Config, metrics *telemetry.Metrics) *audit.Auditor {
	reg := registry.NewClient(cfg.RegistryURL, cfg.CallTimeout)
	gh := github.NewClient(cfg.GitHubAPIURL, cfg.GitHubToken, cfg.CallTimeout, cfg.CacheTTL)
	ov := osv.NewClient(cfg.OSVAPIURL, cfg.CallTimeout, cfg.CacheTTL)
	sig := sigstore.NewClient(cfg.SigstoreURL, cfg.CallTimeout, cfg.CacheTTL)

	return audit.NewAuditor(reg, gh, ov, sig, audit.Config{
		AuditTimeout: cfg.AuditTimeout,
		Metrics:      metrics,
	})
}

// splitPackageArg splits "name@version", leaving scoped names intact.
func splitPackageArg(arg string) (name, version string) {
	if i := strings.LastIndex(arg, "@"); i > 0 {
		return arg[:i], arg[i+1:]
	}
	return arg, ""
}

func outputWriter() (*os.File, func(), error) {
	if outputFile == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	telemetry.InitLogger(cfg.Debug)

	name, ver := splitPackageArg(args[0])
	id, err := audit.ParseIdentity(name, ver)
	if err != nil {
		return err
	}

	auditor := buildAuditor(cfg, nil)
	report, err := auditor.Audit(cmd.Context(), id)
	if err != nil {
		return err
	}

	w, closeFn, err := outputWriter()
	if err != nil {
		return err
	}
	defer closeFn()

	return reporter.New(w, outputFormat).Render(report)
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	telemetry.InitLogger(cfg.Debug)

	auditor := buildAuditor(cfg, nil)
	cmp, err := auditor.Compare(cmd.Context(), args[0], args[1], args[2])
	if err != nil {
		return err
	}

	return reporter.New(os.Stdout, outputFormat).RenderComparison(cmp)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	telemetry.InitLogger(cfg.Debug)

	metrics := telemetry.NewMetrics()
	auditor := buildAuditor(cfg, metrics)
	server.Version = version
	srv := server.New(auditor, metrics, slog.Default())

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.ListenAddr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
