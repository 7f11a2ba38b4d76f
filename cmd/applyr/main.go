package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/applyr/internal/app"
	"github.com/ternarybob/applyr/internal/common"
	"github.com/ternarybob/applyr/internal/models"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	jobFile      = flag.String("job", "", "JSON file describing the job posting to apply to")
	profileFile  = flag.String("profile", "", "JSON file with the applicant profile")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	config *common.Config
	logger arbor.ILogger
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Applyr version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Initialize logger
	// 3. Print banner
	// 4. Wire services
	if len(configFiles) == 0 {
		if _, err := os.Stat("applyr.toml"); err == nil {
			configFiles = append(configFiles, "applyr.toml")
		} else if _, err := os.Stat("deployments/local/applyr.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/applyr.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.NewApp(ctx, config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	// Single-application mode: apply to one job and exit with the result.
	if *jobFile != "" {
		if err := runSingleApplication(ctx, application); err != nil {
			logger.Error().Err(err).Msg("Application run failed")
			os.Exit(1)
		}
		return
	}

	// Daemon mode: keep the registry hot-reloading and metrics flushing
	// until interrupted.
	logger.Info().
		Int("strategies", len(application.Registry.GetAllStrategies())).
		Msg("Applyr running, waiting for shutdown signal")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("Shutdown signal received")
}

// runSingleApplication executes one job application from the -job and
// -profile files and prints the result as JSON.
func runSingleApplication(ctx context.Context, application *app.App) error {
	job, err := readJSON[models.JobPosting](*jobFile)
	if err != nil {
		return fmt.Errorf("failed to load job file: %w", err)
	}
	if *profileFile == "" {
		return fmt.Errorf("-profile is required with -job")
	}
	profile, err := readJSON[models.UserProfile](*profileFile)
	if err != nil {
		return fmt.Errorf("failed to load profile file: %w", err)
	}
	if job.ID == "" {
		job.ID = common.NewExecutionID()
	}

	result, err := application.Registry.ExecuteStrategy(ctx, job, profile)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if !result.Success {
		return fmt.Errorf("application did not complete: %s", result.Error)
	}
	return nil
}

func readJSON[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
