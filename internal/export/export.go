package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ataxdi-dev/solana-token-monitor/internal/monitor"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format     ExportFormat
	StartTime  time.Time
	EndTime    time.Time
	MintFilter string // Filter by token mint
	OutputDir  string
}

// LaunchExporter writes the launches detected during a session to disk.
type LaunchExporter struct {
	logger *zap.Logger
}

// NewLaunchExporter creates a new launch exporter
func NewLaunchExporter(logger *zap.Logger) *LaunchExporter {
	return &LaunchExporter{
		logger: logger,
	}
}

// ExportLaunches exports launches based on the provided options
func (le *LaunchExporter) ExportLaunches(launches []monitor.TokenLaunch, options ExportOptions) (string, error) {
	filtered := le.filterLaunches(launches, options)

	if len(filtered) == 0 {
		return "", fmt.Errorf("no launches match the export criteria")
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].DetectedAt.Before(filtered[j].DetectedAt)
	})

	filename := le.generateFilename(options)
	outputPath := filepath.Join(options.OutputDir, filename)

	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	switch options.Format {
	case FormatCSV:
		err = le.exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = le.exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}

	if err != nil {
		return "", err
	}

	le.logger.Info("Launches exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

// filterLaunches applies filters to the launch list
func (le *LaunchExporter) filterLaunches(launches []monitor.TokenLaunch, options ExportOptions) []monitor.TokenLaunch {
	var filtered []monitor.TokenLaunch

	for _, launch := range launches {
		if !options.StartTime.IsZero() && launch.DetectedAt.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && launch.DetectedAt.After(options.EndTime) {
			continue
		}
		if options.MintFilter != "" && launch.Mint != options.MintFilter {
			continue
		}

		filtered = append(filtered, launch)
	}

	return filtered
}

// generateFilename creates a filename based on export options
func (le *LaunchExporter) generateFilename(options ExportOptions) string {
	timestamp := time.Now().Format("20060102_150405")

	prefix := "launches"
	if options.MintFilter != "" && len(options.MintFilter) >= 8 {
		prefix += "_" + options.MintFilter[:8]
	}

	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, options.Format)
}

// CSVHeaders returns the column names for CSV export
func CSVHeaders() []string {
	return []string{"mint", "detected_at", "accumulated_sol", "transaction_count", "source"}
}

func launchToCSV(launch monitor.TokenLaunch) []string {
	return []string{
		launch.Mint,
		launch.DetectedAt.Format(time.RFC3339),
		strconv.FormatFloat(launch.AccumulatedSOL, 'f', 9, 64),
		strconv.Itoa(launch.TransactionCount),
		launch.Source,
	}
}

// exportToCSV exports launches to CSV format
func (le *LaunchExporter) exportToCSV(launches []monitor.TokenLaunch, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, launch := range launches {
		if err := writer.Write(launchToCSV(launch)); err != nil {
			return fmt.Errorf("failed to write launch: %w", err)
		}
	}

	return nil
}

// exportToJSON exports launches to JSON format
func (le *LaunchExporter) exportToJSON(launches []monitor.TokenLaunch, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime  time.Time             `json:"export_time"`
		LaunchCount int                   `json:"launch_count"`
		Launches    []monitor.TokenLaunch `json:"launches"`
		Summary     ExportSummary         `json:"summary"`
	}{
		ExportTime:  time.Now(),
		LaunchCount: len(launches),
		Launches:    launches,
		Summary:     le.calculateSummary(launches),
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

// calculateSummary calculates summary statistics for the export
func (le *LaunchExporter) calculateSummary(launches []monitor.TokenLaunch) ExportSummary {
	summary := ExportSummary{
		TotalLaunches: len(launches),
	}

	if len(launches) == 0 {
		return summary
	}

	summary.StartDate = launches[0].DetectedAt
	summary.EndDate = launches[len(launches)-1].DetectedAt

	mintSet := make(map[string]bool)
	for _, launch := range launches {
		mintSet[launch.Mint] = true
		summary.TotalSOL += launch.AccumulatedSOL
		summary.TotalTransactions += launch.TransactionCount
	}

	summary.UniqueMints = len(mintSet)
	summary.AvgSOLPerLaunch = summary.TotalSOL / float64(len(launches))

	return summary
}

// ExportSummary contains summary statistics for exported launches
type ExportSummary struct {
	TotalLaunches     int       `json:"total_launches"`
	UniqueMints       int       `json:"unique_mints"`
	TotalSOL          float64   `json:"total_sol"`
	TotalTransactions int       `json:"total_transactions"`
	AvgSOLPerLaunch   float64   `json:"avg_sol_per_launch"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
}
