// Package main provides the aclguard command line entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aclguard/backend/internal/config"
	"github.com/aclguard/backend/internal/features"
	"github.com/aclguard/backend/internal/model"
	"github.com/aclguard/backend/internal/risk"
	"github.com/aclguard/backend/internal/worker"
	"github.com/aclguard/backend/pkg/models"
)

var version = "dev"

var (
	configPath string
	cfg        *config.Config
	logger     zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "aclguard",
	Short:   "ACL injury-risk scoring service",
	Long:    "aclguard scores ACL injury risk from wearable daily metrics and retrains its model from user feedback.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadOrDefault(configPath)
		if err != nil {
			return err
		}

		level, err := zerolog.ParseLevel(cfg.Logging.Level)
		if err != nil {
			level = zerolog.InfoLevel
		}
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).
			With().Timestamp().Logger()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("aclguard", version)
	},
}

// --- serve command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP worker service",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info().Str("version", version).Msg("starting aclguard worker")

		svc, err := worker.NewService(cfg, version, logger)
		if err != nil {
			return fmt.Errorf("creating service: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return svc.Start(ctx)
	},
}

// --- train command ---

var (
	trainKey  string
	bootstrap bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Run one training pass for a key",
	Long:  "Fits a model from the positive-feedback corpus for --key, or a synthetic-prior model with --bootstrap.",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := worker.NewService(cfg, version, logger)
		if err != nil {
			return fmt.Errorf("creating service: %w", err)
		}
		defer func() { _ = svc.Shutdown() }()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Training.Timeout+time.Minute)
		defer cancel()

		res, err := svc.TrainOnce(ctx, trainKey, bootstrap)
		if err != nil {
			return fmt.Errorf("training %s: %w", trainKey, err)
		}

		fmt.Printf("Key: %s\n", res.Key)
		fmt.Printf("Status: %s\n", res.Status)
		if res.ModelVersion != "" {
			fmt.Printf("Model: %s (%s)\n", res.ModelVersion, res.Provenance)
			fmt.Printf("Samples: %d (test %d)\n", res.SampleCount, res.TestCount)
			fmt.Printf("MSE: %.5f  R2: %.3f\n", res.MSE, res.R2)
		} else {
			fmt.Printf("Samples: %d of %d required\n", res.SampleCount, res.MinRequired)
		}
		return nil
	},
}

// --- score command ---

var scoreInput string

// scoreFile is the stateless scoring input document.
type scoreFile struct {
	Profile models.UserProfile   `json:"profile"`
	Metrics []models.DailyMetric `json:"metrics"`
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a profile and metric window from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(scoreInput)
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		var in scoreFile
		if err := json.Unmarshal(data, &in); err != nil {
			return fmt.Errorf("parsing input: %w", err)
		}

		modelStore, err := model.NewStore(cfg.Models.Dir)
		if err != nil {
			return err
		}
		registry, err := model.NewRegistry(modelStore, logger)
		if err != nil {
			return err
		}

		extractor := features.NewExtractor(cfg.Features)
		scorer := risk.NewScorer(cfg.Risk, registry, logger)
		recommender := risk.NewRecommender(cfg.Recommendations)

		fv, err := extractor.Extract(in.Metrics, in.Profile, time.Now())
		if err != nil {
			return err
		}
		result, err := scorer.Score(in.Profile.UserID, fv)
		if err != nil {
			return err
		}
		result.Recommendations = recommender.Generate(result, in.Profile)

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	trainCmd.Flags().StringVar(&trainKey, "key", models.GlobalTrainingKey, "Training key: a user id or \"global\"")
	trainCmd.Flags().BoolVar(&bootstrap, "bootstrap", false, "Fit a synthetic-prior model instead of using feedback")

	scoreCmd.Flags().StringVar(&scoreInput, "input", "", "Path to a JSON file with profile and metrics")
	_ = scoreCmd.MarkFlagRequired("input")
}
