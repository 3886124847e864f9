package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/jobsync/internal/bootstrap"
	"alfredoptarigan/jobsync/internal/config"
	"alfredoptarigan/jobsync/internal/logger"
	"alfredoptarigan/jobsync/internal/models"
	"alfredoptarigan/jobsync/internal/services"
)

var rootCmd = &cobra.Command{
	Use:   "ingest-jobs",
	Short: "Bulk-create job postings (with their embeddings) from a JSON file",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringP("file", "f", "./reference_docs/jobs.json", "JSON array of job postings")
	rootCmd.Flags().Bool("dry-run", false, "validate the file without writing anything")
	rootCmd.Flags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.Flags().BoolP("json", "j", false, "json format for logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	debug, _ := cmd.Flags().GetBool("debug")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	path, _ := cmd.Flags().GetString("file")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	zl, err := logger.New(jsonLogs, debug)
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer zl.Sync()

	zl.Info("🚀 Starting job ingestion...", zap.String("file", path), zap.Bool("dry_run", dryRun))

	jobs, err := readJobs(path)
	if err != nil {
		return err
	}
	zl.Info("📄 Job postings loaded", zap.Int("count", len(jobs)))

	if dryRun {
		invalid := 0
		for i, req := range jobs {
			if err := services.ValidateJobRequest(req); err != nil {
				zl.Warn("⚠️ invalid job posting", zap.Int("index", i), zap.String("title", req.Title), zap.Error(err))
				invalid++
			}
		}
		zl.Info("✅ Dry run finished", zap.Int("valid", len(jobs)-invalid), zap.Int("invalid", invalid))
		if invalid > 0 {
			return fmt.Errorf("%d invalid job postings", invalid)
		}
		return nil
	}

	ctx := context.Background()
	container, err := bootstrap.New(ctx, config.Load(), zl)
	if err != nil {
		return err
	}
	defer container.Close()

	successCount := 0
	failCount := 0

	for i, req := range jobs {
		job, err := container.Matching.CreateJob(ctx, req)
		if err != nil {
			zl.Error("❌ Failed to create job", zap.Int("index", i), zap.String("title", req.Title), zap.Error(err))
			failCount++
			continue
		}
		zl.Debug("✅ Job created", zap.String("id", job.ID.String()), zap.String("title", job.Title))
		successCount++
	}

	zl.Info(strings.Repeat("=", 60))
	zl.Info("📊 Ingestion Summary", zap.Int("successful", successCount), zap.Int("failed", failCount))
	zl.Info(strings.Repeat("=", 60))

	if failCount > 0 {
		return fmt.Errorf("%d job postings failed to ingest", failCount)
	}

	zl.Info("✅ All job postings ingested successfully!")
	return nil
}

func readJobs(path string) ([]models.CreateJobRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var jobs []models.CreateJobRequest
	if err := json.Unmarshal(raw, &jobs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return jobs, nil
}
