// Package main provides the paperfetch CLI entry point.
package main

import (
	"fmt"
	"net/url"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/LLLin000/paper-fetcher/internal/cache"
	"github.com/LLLin000/paper-fetcher/internal/config"
	"github.com/LLLin000/paper-fetcher/internal/extract"
	"github.com/LLLin000/paper-fetcher/internal/fetch"
	"github.com/LLLin000/paper-fetcher/internal/orchestrator"
	"github.com/LLLin000/paper-fetcher/internal/proxy"
	"github.com/LLLin000/paper-fetcher/internal/sources"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

// verbose enables debug logging on stderr
var verbose bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		// This ensures Cobra errors (like missing required flags) are visible
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "paperfetch",
	Short: "Fetch academic papers by DOI, arXiv ID, PMID, or URL",
	Long: `paperfetch retrieves academic paper full text and metadata.

Given a DOI, arXiv ID, PMID, PMCID, or article URL, it tries open
access sources first (Unpaywall, arXiv, Europe PMC), then an
institutional proxy (EZproxy or WebVPN) if one is configured, and
falls back to metadata-only when no full text is reachable.

Results are cached on disk; fetched PDFs land in the papers directory.
All commands output JSON by default.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Version = Version
}

// newLogger builds the CLI logger. Logs go to stderr so stdout stays
// clean for command output.
func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(out).With().Timestamp().Logger().Level(level)
}

// mustLoadConfig loads configuration, exits on error.
// PAPER_FETCHER_HOME overrides the default ~/.paper-fetcher base directory.
func mustLoadConfig() *config.Config {
	baseDir := os.Getenv("PAPER_FETCHER_HOME")
	if baseDir == "" {
		var err error
		baseDir, err = config.DefaultBaseDir()
		if err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
	}
	cfg, err := config.Load(baseDir)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustBuildProxy builds the proxy session manager for the configured
// institution, or nil when none is configured. Exits on a broken
// institutions file or an unknown institution name.
func mustBuildProxy(cfg *config.Config, limiter *fetch.HostLimiter, logger zerolog.Logger) *proxy.Manager {
	if cfg.Institution == "" {
		return nil
	}
	insts, err := config.LoadInstitutions(cfg.InstitutionsPath())
	if err != nil {
		exitWithError(ExitConfigError, "loading institutions: %v", err)
	}
	inst := insts.Find(cfg.Institution)
	if inst == nil {
		exitWithError(ExitConfigError, "institution %q not found in %s", cfg.Institution, cfg.InstitutionsPath())
	}

	auth := &proxy.BrowserAuthenticator{CookieDomain: proxyCookieDomain(inst)}
	store := proxy.NewSessionStore(cfg.SessionsPath())
	mgr, err := proxy.NewManager(inst, store, auth, limiter, proxy.WithManagerLogger(logger))
	if err != nil {
		exitWithError(ExitConfigError, "configuring proxy: %v", err)
	}
	return mgr
}

// proxyCookieDomain returns the host harvested cookies are scoped to.
func proxyCookieDomain(inst *config.Institution) string {
	if inst.ProxyHost != "" {
		return inst.ProxyHost
	}
	u, err := url.Parse(inst.ProxyBase)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// mustBuildOrchestrator wires the full fetch stack from configuration.
// With useProxy false the proxy layer is skipped even when an
// institution is configured.
func mustBuildOrchestrator(cfg *config.Config, useProxy bool) *orchestrator.Orchestrator {
	logger := newLogger()

	if err := cfg.EnsureDirs(); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	limiter := fetch.NewHostLimiter(cfg.DelayMin(), cfg.DelayMax())
	client := fetch.NewClient(limiter, fetch.WithLogger(logger))
	pipeline := extract.NewPipeline(logger)

	resultCache, err := cache.New(cfg.CachePath())
	if err != nil {
		exitWithError(ExitConfigError, "opening cache: %v", err)
	}

	email := cfg.Email
	if email == "" {
		email = sources.DefaultEmail
	}
	providers := []sources.Provider{
		sources.NewUnpaywall(email, sources.WithUnpaywallLogger(logger)),
		sources.NewArXiv(sources.WithArXivLogger(logger)),
		sources.NewPubMed(email, sources.WithPubMedLogger(logger)),
		sources.NewEuropePMC(sources.WithEuropePMCLogger(logger)),
		sources.NewSemanticScholar(
			sources.WithSemanticScholarAPIKey(cfg.S2APIKey),
			sources.WithSemanticScholarLogger(logger),
		),
	}

	opts := []orchestrator.Option{
		orchestrator.WithProviders(providers...),
		orchestrator.WithArXiv(sources.NewArXiv(sources.WithArXivLogger(logger))),
		orchestrator.WithResolver(sources.NewResolver(sources.WithResolverLogger(logger))),
		orchestrator.WithCache(resultCache),
		orchestrator.WithPapersDir(cfg.PapersPath()),
		orchestrator.WithLogger(logger),
	}
	if useProxy {
		if mgr := mustBuildProxy(cfg, limiter, logger); mgr != nil {
			opts = append(opts, orchestrator.WithProxy(mgr))
		}
	}

	return orchestrator.New(client, pipeline, opts...)
}
