package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/LLLin000/paper-fetcher/internal/fetch"
	"github.com/LLLin000/paper-fetcher/internal/proxy"
)

var loginForce bool

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Establish an institutional proxy session",
	Long: `Log in to the configured institution's proxy.

A persisted session that still validates is reused without any
interaction. Otherwise the proxy login page opens in your browser;
after signing in, paste the session cookies back when prompted.

Set the institution first with 'paperfetch config institution <name>'.

Examples:
  paperfetch login
  paperfetch login --force`,
	Args: cobra.NoArgs,
	Run:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Drop the institutional proxy session",
	Args:  cobra.NoArgs,
	Run:   runLogout,
}

func init() {
	loginCmd.Flags().BoolVar(&loginForce, "force", false, "Discard any persisted session and log in again")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

// mustProxyManager builds the proxy manager, exiting when no
// institution is configured.
func mustProxyManager() *proxy.Manager {
	cfg := mustLoadConfig()
	logger := newLogger()
	limiter := fetch.NewHostLimiter(cfg.DelayMin(), cfg.DelayMax())
	mgr := mustBuildProxy(cfg, limiter, logger)
	if mgr == nil {
		exitWithError(ExitConfigError, "no institution configured; run 'paperfetch config institution <name>'")
	}
	return mgr
}

func runLogin(cmd *cobra.Command, args []string) {
	mgr := mustProxyManager()

	if err := mgr.Login(context.Background(), loginForce); err != nil {
		if proxy.IsAuthError(err) {
			exitWithError(ExitAuthError, "%v", err)
		}
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		outputHuman("Logged in to %s\n", mgr.Institution())
	} else {
		outputJSON(StatusResponse{Status: "logged_in", Path: mgr.Institution()})
	}
}

func runLogout(cmd *cobra.Command, args []string) {
	mgr := mustProxyManager()

	if err := mgr.Logout(); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		outputHuman("Logged out of %s\n", mgr.Institution())
	} else {
		outputJSON(StatusResponse{Status: "logged_out", Path: mgr.Institution()})
	}
}
