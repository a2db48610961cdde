// internal/monitor/extractor.go
package monitor

import (
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/ataxdi-dev/solana-token-monitor/internal/blockchain"
)

const (
	// LamportsPerSOL is the native unit conversion factor.
	LamportsPerSOL = 1_000_000_000

	// noiseFloorSOL filters dust-level balance deltas out of attribution.
	noiseFloorSOL = 0.001

	// nominalAmountSOL is substituted when a fee-paying transaction yields
	// a computed inflow of exactly zero. Tunable policy, not a correctness
	// requirement; it biases toward not under-counting ambiguous activity.
	nominalAmountSOL = 0.01
)

// Candidate positions for the mint address, tried strictly in order.
// For the pump.fun create layout the mint is typically the second entry of
// the transaction account list; the instruction-level fallback covers
// transactions where the account list is reordered by lookup tables.
var (
	accountListMintPositions = []int{1, 2, 4}
	instructionMintPositions = []int{0, 1}
)

// MintStrategy tries to extract a mint address from a transaction record.
// Returns ("", false) when it cannot.
type MintStrategy interface {
	ExtractMint(record *blockchain.TransactionRecord) (string, bool)
}

// Extractor applies ordered mint strategies and balance-delta attribution
// to opaque transaction records. All extraction is heuristic and
// best-effort: failure means "unknown", never an error.
type Extractor struct {
	program    string
	strategies []MintStrategy
	logger     *zap.Logger
}

// NewExtractor creates an extractor for the given source program address.
func NewExtractor(programAddress string, logger *zap.Logger) *Extractor {
	return &Extractor{
		program: programAddress,
		strategies: []MintStrategy{
			&accountListStrategy{program: programAddress, positions: accountListMintPositions},
			&programInstructionStrategy{program: programAddress, positions: instructionMintPositions},
		},
		logger: logger.Named("extractor"),
	}
}

// Extract runs both heuristics over one record. mint is "" when no candidate
// validated; amountSOL is 0 when no value could be attributed. A panic inside
// either heuristic is recovered and reported as an empty extraction.
func (e *Extractor) Extract(record *blockchain.TransactionRecord) (mint string, amountSOL float64) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Debug("Extraction panic, treating as empty",
				zap.String("signature", record.Signature),
				zap.Any("panic", r))
			mint = ""
			amountSOL = 0
		}
	}()

	for _, strategy := range e.strategies {
		if candidate, ok := strategy.ExtractMint(record); ok {
			mint = candidate
			break
		}
	}

	amountSOL = e.attributableSOL(record)
	return mint, amountSOL
}

// attributableSOL sums positive lamport deltas over accounts that either are
// the source program or pass the address shape check, ignoring dust. A
// fee-paying transaction with zero computed inflow gets the nominal amount.
func (e *Extractor) attributableSOL(record *blockchain.TransactionRecord) float64 {
	n := len(record.PreBalances)
	if len(record.PostBalances) < n {
		n = len(record.PostBalances)
	}

	var total float64
	for i := 0; i < n; i++ {
		delta := int64(record.PostBalances[i]) - int64(record.PreBalances[i])
		if delta <= 0 {
			continue
		}
		if i >= len(record.AccountKeys) {
			continue
		}
		addr := record.AccountKeys[i]
		if addr != e.program && !looksLikeAddress(addr) {
			continue
		}
		deltaSOL := float64(delta) / LamportsPerSOL
		if deltaSOL > noiseFloorSOL {
			total += deltaSOL
		}
	}

	if total == 0 && record.Fee > 0 {
		return nominalAmountSOL
	}
	return total
}

// accountListStrategy tries fixed positions in the transaction account list.
type accountListStrategy struct {
	program   string
	positions []int
}

func (s *accountListStrategy) ExtractMint(record *blockchain.TransactionRecord) (string, bool) {
	for _, pos := range s.positions {
		if pos >= len(record.AccountKeys) {
			continue
		}
		candidate := record.AccountKeys[pos]
		if candidate != s.program && looksLikeAddress(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// programInstructionStrategy falls back to the first instruction executed by
// the source program and tries fixed positions in its account list.
type programInstructionStrategy struct {
	program   string
	positions []int
}

func (s *programInstructionStrategy) ExtractMint(record *blockchain.TransactionRecord) (string, bool) {
	for _, ix := range record.Instructions {
		if ix.ProgramID != s.program {
			continue
		}
		for _, pos := range s.positions {
			if pos >= len(ix.Accounts) {
				continue
			}
			candidate := ix.Accounts[pos]
			if candidate != s.program && looksLikeAddress(candidate) {
				return candidate, true
			}
		}
	}
	return "", false
}

// looksLikeAddress reports whether s is a syntactically well-formed Solana
// address: base58 text of plausible length decoding to 32 bytes.
func looksLikeAddress(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	decoded, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(decoded) == 32
}
