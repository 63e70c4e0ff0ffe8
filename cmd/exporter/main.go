package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"retail-reports/internal/config"
	"retail-reports/internal/domain"
	"retail-reports/internal/gateway"
	"retail-reports/internal/usecase"
)

func main() {
	// Define command-line flags
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	reportsStr := flag.String("reports", "all", "Comma-separated list of reports to generate (products,inventory,sales,ecommerce,entries) or 'all'")
	startStr := flag.String("start", "", "Start of the date window (YYYY-MM-DD, optional)")
	endStr := flag.String("end", "", "End of the date window (YYYY-MM-DD, optional)")
	branch := flag.String("branch", "", "Branch code or branch-group name to scope the run to (optional)")
	strict := flag.Bool("strict", false, "Fail the run on ambiguous reference data instead of degrading silently")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	if *verbose {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)
	log.AddHook(&runIDHook{runID: uuid.NewString()})

	reports, err := parseReports(*reportsStr)
	if err != nil {
		log.Fatalf("Invalid -reports value: %v", err)
	}
	scope, err := parseScope(*startStr, *endStr, cfg, *branch)
	if err != nil {
		log.Fatalf("Invalid scope: %v", err)
	}

	// --- Dependency Injection (Wiring the application) ---

	repo, err := gateway.NewSQLDatasetRepository(cfg.DSN)
	if err != nil {
		log.Fatalf("Failed to open source database: %v", err)
	}
	defer repo.Close()

	writer := gateway.NewReportFileWriter(cfg.OutputDir, log)
	var distributor usecase.ArtifactDistributor
	if len(cfg.Destinations) > 0 {
		distributor = gateway.NewCopyDistributor(cfg.Destinations, log)
	}

	exportUseCase := usecase.NewExportUseCase(repo, writer, usecase.Options{
		Strict:      *strict,
		Distributor: distributor,
		Logger:      log,
	})

	// --- Execute the Usecase ---

	started := time.Now()
	results, err := exportUseCase.Export(context.Background(), reports, scope)
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	totalRows := 0
	for _, result := range results {
		totalRows += result.Frame.Len()
	}
	log.WithFields(logrus.Fields{
		"reports":    len(results),
		"rows":       totalRows,
		"elapsed_ms": time.Since(started).Milliseconds(),
	}).Info("export finished")
}

// runIDHook stamps every log entry with the run identifier so a run's lines
// can be collated across reports.
type runIDHook struct {
	runID string
}

func (h *runIDHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *runIDHook) Fire(entry *logrus.Entry) error {
	entry.Data["run_id"] = h.runID
	return nil
}

func parseReports(value string) ([]domain.ReportName, error) {
	if value == "" || value == "all" {
		return domain.AllReports(), nil
	}
	var reports []domain.ReportName
	for _, part := range strings.Split(value, ",") {
		name := domain.ReportName(strings.TrimSpace(part))
		if _, ok := domain.Catalog(name); !ok {
			return nil, fmt.Errorf("unknown report %q", name)
		}
		reports = append(reports, name)
	}
	return reports, nil
}

func parseScope(startStr, endStr string, cfg *config.Config, branch string) (domain.Scope, error) {
	var scope domain.Scope
	var err error
	if startStr != "" {
		if scope.Start, err = time.Parse(time.DateOnly, startStr); err != nil {
			return scope, fmt.Errorf("invalid start date %q: %w", startStr, err)
		}
	}
	if endStr != "" {
		if scope.End, err = time.Parse(time.DateOnly, endStr); err != nil {
			return scope, fmt.Errorf("invalid end date %q: %w", endStr, err)
		}
	}
	if !scope.Start.IsZero() && !scope.End.IsZero() && scope.End.Before(scope.Start) {
		return scope, fmt.Errorf("end date %s precedes start date %s", endStr, startStr)
	}
	scope.Branches = cfg.ResolveBranches(branch)
	return scope, nil
}
