package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LLLin000/paper-fetcher/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set configuration values",
	Long: `Get or set configuration values.

Usage:
  paperfetch config                          # Show all config
  paperfetch config email                    # Get specific value
  paperfetch config email you@example.edu    # Set value
  paperfetch config institution hku          # Select institution from institutions.yml
  paperfetch config output-dir ~/papers      # Set PDF output directory

Keys:
  email        Contact email sent to Unpaywall and NCBI (polite pools)
  institution  Institution name from institutions.yml, for proxy access
  output-dir   Directory fetched PDFs are saved into
  cache-dir    Result cache directory
  delay-min    Minimum delay between requests to one host, in seconds
  delay-max    Maximum delay between requests to one host, in seconds`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

// ConfigResponse is the response for config get commands.
type ConfigResponse struct {
	Email       string  `json:"email,omitempty"`
	Institution string  `json:"institution,omitempty"`
	OutputDir   string  `json:"output_dir"`
	CacheDir    string  `json:"cache_dir"`
	DelayMin    float64 `json:"delay_min_seconds"`
	DelayMax    float64 `json:"delay_max_seconds"`
}

// UpdateResponse is the response for config set commands.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	// No args: show all config
	if len(args) == 0 {
		if humanOutput {
			fmt.Printf("email:       %s\n", cfg.Email)
			fmt.Printf("institution: %s\n", cfg.Institution)
			fmt.Printf("output-dir:  %s\n", cfg.PapersPath())
			fmt.Printf("cache-dir:   %s\n", cfg.CachePath())
			fmt.Printf("delay-min:   %.1fs\n", cfg.DelayMin().Seconds())
			fmt.Printf("delay-max:   %.1fs\n", cfg.DelayMax().Seconds())
		} else {
			outputJSON(ConfigResponse{
				Email:       cfg.Email,
				Institution: cfg.Institution,
				OutputDir:   cfg.PapersPath(),
				CacheDir:    cfg.CachePath(),
				DelayMin:    cfg.DelayMin().Seconds(),
				DelayMax:    cfg.DelayMax().Seconds(),
			})
		}
		return nil
	}

	key := normalizeKey(args[0])

	// One arg: get specific value
	if len(args) == 1 {
		var value string
		switch key {
		case "email":
			value = cfg.Email
		case "institution":
			value = cfg.Institution
		case "output-dir":
			value = cfg.PapersPath()
		case "cache-dir":
			value = cfg.CachePath()
		case "delay-min":
			value = strconv.FormatFloat(cfg.DelayMin().Seconds(), 'f', -1, 64)
		case "delay-max":
			value = strconv.FormatFloat(cfg.DelayMax().Seconds(), 'f', -1, 64)
		default:
			exitWithError(ExitError, "unknown configuration key: %s", args[0])
		}
		if humanOutput {
			fmt.Println(value)
		} else {
			outputJSON(map[string]string{strings.ReplaceAll(key, "-", "_"): value})
		}
		return nil
	}

	// Two args: set value
	value := args[1]

	switch key {
	case "email":
		cfg.Email = value

	case "institution":
		insts, err := config.LoadInstitutions(cfg.InstitutionsPath())
		if err != nil {
			exitWithError(ExitConfigError, "loading institutions: %v", err)
		}
		if insts.Find(value) == nil {
			exitWithError(ExitConfigError, "institution %q not found in %s", value, cfg.InstitutionsPath())
		}
		cfg.Institution = value

	case "output-dir":
		cfg.OutputDir = value

	case "cache-dir":
		cfg.CacheDir = value

	case "delay-min":
		secs, err := strconv.ParseFloat(value, 64)
		if err != nil || secs < 0 {
			exitWithError(ExitError, "delay-min must be a non-negative number of seconds")
		}
		cfg.DelayMinSecs = secs

	case "delay-max":
		secs, err := strconv.ParseFloat(value, 64)
		if err != nil || secs < 0 {
			exitWithError(ExitError, "delay-max must be a non-negative number of seconds")
		}
		cfg.DelayMaxSecs = secs

	default:
		exitWithError(ExitError, "unknown configuration key: %s", args[0])
	}

	if err := cfg.Save(); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	if humanOutput {
		fmt.Printf("Updated %s to %s\n", key, value)
	} else {
		outputJSON(UpdateResponse{
			Status: "updated",
			Key:    key,
			Value:  value,
		})
	}

	return nil
}

// normalizeKey converts key formats (output-dir, output_dir) to consistent format
func normalizeKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "_", "-")
	return key
}
