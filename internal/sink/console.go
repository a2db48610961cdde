// internal/sink/console.go
package sink

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ataxdi-dev/solana-token-monitor/internal/logger"
	"github.com/ataxdi-dev/solana-token-monitor/internal/monitor"
)

// ConsoleAnnouncer prints one colored line per confirmed launch, for a human
// watching the session alongside the automated consumers.
type ConsoleAnnouncer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleAnnouncer writes to stdout.
func NewConsoleAnnouncer() *ConsoleAnnouncer {
	return &ConsoleAnnouncer{out: os.Stdout}
}

// Announce implements monitor.LaunchListener.
func (a *ConsoleAnnouncer) Announce(launch monitor.TokenLaunch) {
	a.mu.Lock()
	defer a.mu.Unlock()

	fmt.Fprintf(a.out, "%s🚀 LAUNCH%s %s%s%s  %.3f SOL over %d txs  at %s\n",
		logger.ColorGreen+logger.ColorBold, logger.ColorReset,
		logger.ColorCyan, launch.Mint, logger.ColorReset,
		launch.AccumulatedSOL,
		launch.TransactionCount,
		launch.DetectedAt.Format("15:04:05"))
}
