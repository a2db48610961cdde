// internal/monitor/tracker.go
package monitor

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// minConfirmingTransactions gates confirmation on a second corroborating
// transaction: one large transfer followed by silence never confirms.
const minConfirmingTransactions = 2

// TokenTracker owns all live TrackedToken state. Record and Scan are the
// only mutation paths; both take the single mutex, preserving the
// one-writer-at-a-time discipline between the poll and scan loops.
type TokenTracker struct {
	mu                sync.Mutex
	tokens            map[string]*TrackedToken
	minValueSOL       float64
	confirmationDelay time.Duration
	source            string
	logger            *zap.Logger
}

// NewTokenTracker creates a tracker. source tags emitted launches with the
// watched program address.
func NewTokenTracker(minValueSOL float64, confirmationDelay time.Duration, source string, logger *zap.Logger) *TokenTracker {
	return &TokenTracker{
		tokens:            make(map[string]*TrackedToken),
		minValueSOL:       minValueSOL,
		confirmationDelay: confirmationDelay,
		source:            source,
		logger:            logger.Named("tracker"),
	}
}

// Record registers one attributed transaction against a mint, creating the
// tracking entry on first sight.
func (t *TokenTracker) Record(mint, signature string, amountSOL float64, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	token, exists := t.tokens[mint]
	if !exists {
		token = &TrackedToken{
			Mint:      mint,
			FirstSeen: now,
		}
		t.tokens[mint] = token
		t.logger.Debug("Tracking new candidate token", zap.String("mint", mint))
	}

	token.Transactions = append(token.Transactions, AttributedTransaction{
		Signature:  signature,
		AmountSOL:  amountSOL,
		ObservedAt: now,
	})
	token.AccumulatedSOL += amountSOL
	token.LastChecked = now

	t.logger.Debug("Recorded attributed transaction",
		zap.String("mint", mint),
		zap.Float64("amount_sol", amountSOL),
		zap.Float64("accumulated_sol", token.AccumulatedSOL),
		zap.Int("tx_count", len(token.Transactions)))
}

// Scan confirms every tracked mint whose accumulated inflow crossed the
// threshold, whose first sighting is older than the confirmation delay and
// which has at least two attributed transactions. Confirmed entries are
// removed; a later reappearance of the same mint restarts tracking from
// zero.
func (t *TokenTracker) Scan(now time.Time) []TokenLaunch {
	t.mu.Lock()
	defer t.mu.Unlock()

	var launches []TokenLaunch
	for mint, token := range t.tokens {
		if token.AccumulatedSOL < t.minValueSOL {
			continue
		}
		if now.Sub(token.FirstSeen) < t.confirmationDelay {
			continue
		}
		if len(token.Transactions) < minConfirmingTransactions {
			continue
		}

		launches = append(launches, TokenLaunch{
			Mint:             mint,
			DetectedAt:       now,
			AccumulatedSOL:   token.AccumulatedSOL,
			TransactionCount: len(token.Transactions),
			Source:           t.source,
		})
		delete(t.tokens, mint)
	}

	return launches
}

// Tracked returns a copy of the live state for one mint.
func (t *TokenTracker) Tracked(mint string) (TrackedToken, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	token, ok := t.tokens[mint]
	if !ok {
		return TrackedToken{}, false
	}

	snapshot := *token
	snapshot.Transactions = make([]AttributedTransaction, len(token.Transactions))
	copy(snapshot.Transactions, token.Transactions)
	return snapshot, true
}

// TrackedCount returns the number of live entries.
func (t *TokenTracker) TrackedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tokens)
}
