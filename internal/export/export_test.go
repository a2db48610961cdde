package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ataxdi-dev/solana-token-monitor/internal/monitor"
)

func sampleLaunches(base time.Time) []monitor.TokenLaunch {
	return []monitor.TokenLaunch{
		{
			Mint:             "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
			DetectedAt:       base.Add(time.Minute),
			AccumulatedSOL:   6.5,
			TransactionCount: 3,
			Source:           "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P",
		},
		{
			Mint:             "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
			DetectedAt:       base,
			AccumulatedSOL:   12.0,
			TransactionCount: 5,
			Source:           "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P",
		},
	}
}

func TestExportLaunchesJSON(t *testing.T) {
	exporter := NewLaunchExporter(zap.NewNop())
	base := time.Now().Add(-time.Hour)

	path, err := exporter.ExportLaunches(sampleLaunches(base), ExportOptions{
		Format:    FormatJSON,
		OutputDir: t.TempDir(),
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded struct {
		LaunchCount int                   `json:"launch_count"`
		Launches    []monitor.TokenLaunch `json:"launches"`
		Summary     ExportSummary         `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, 2, decoded.LaunchCount)
	require.Len(t, decoded.Launches, 2)
	// Sorted by detection time, so the later launch comes second.
	assert.Equal(t, "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", decoded.Launches[1].Mint)
	assert.Equal(t, 2, decoded.Summary.UniqueMints)
	assert.InDelta(t, 18.5, decoded.Summary.TotalSOL, 1e-9)
	assert.Equal(t, 8, decoded.Summary.TotalTransactions)
}

func TestExportLaunchesCSV(t *testing.T) {
	exporter := NewLaunchExporter(zap.NewNop())
	base := time.Now().Add(-time.Hour)

	path, err := exporter.ExportLaunches(sampleLaunches(base), ExportOptions{
		Format:    FormatCSV,
		OutputDir: t.TempDir(),
	})
	require.NoError(t, err)

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3) // header + 2 launches
	assert.Equal(t, CSVHeaders(), rows[0])
	assert.Equal(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", rows[1][0])
}

func TestExportLaunchesMintFilter(t *testing.T) {
	exporter := NewLaunchExporter(zap.NewNop())
	base := time.Now().Add(-time.Hour)

	path, err := exporter.ExportLaunches(sampleLaunches(base), ExportOptions{
		Format:     FormatJSON,
		MintFilter: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		OutputDir:  t.TempDir(),
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded struct {
		LaunchCount int `json:"launch_count"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 1, decoded.LaunchCount)
}

func TestExportLaunchesEmpty(t *testing.T) {
	exporter := NewLaunchExporter(zap.NewNop())

	_, err := exporter.ExportLaunches(nil, ExportOptions{
		Format:    FormatJSON,
		OutputDir: t.TempDir(),
	})
	assert.Error(t, err)
}

func TestExportLaunchesUnsupportedFormat(t *testing.T) {
	exporter := NewLaunchExporter(zap.NewNop())
	base := time.Now()

	_, err := exporter.ExportLaunches(sampleLaunches(base), ExportOptions{
		Format:    ExportFormat("xml"),
		OutputDir: t.TempDir(),
	})
	assert.Error(t, err)
}
