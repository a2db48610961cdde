// internal/monitor/detector_test.go
package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ataxdi-dev/solana-token-monitor/internal/blockchain"
)

type fakeSource struct {
	sigs []blockchain.SignatureInfo
	err  error
}

func (f *fakeSource) RecentSignatures(_ context.Context, _ int) ([]blockchain.SignatureInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]blockchain.SignatureInfo, len(f.sigs))
	copy(out, f.sigs)
	return out, nil
}

type fakeFetcher struct {
	records map[string]*blockchain.TransactionRecord
	errs    map[string]error
	calls   map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		records: make(map[string]*blockchain.TransactionRecord),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (f *fakeFetcher) FetchTransaction(_ context.Context, signature string) (*blockchain.TransactionRecord, error) {
	f.calls[signature]++
	if err, ok := f.errs[signature]; ok {
		return nil, err
	}
	return f.records[signature], nil
}

// inflowRecord builds a record attributing amountSOL to mint.
func inflowRecord(signature, mint string, amountSOL float64) *blockchain.TransactionRecord {
	return &blockchain.TransactionRecord{
		Signature:    signature,
		AccountKeys:  []string{testPayer, mint},
		PreBalances:  []uint64{solToLamports(100), solToLamports(1)},
		PostBalances: []uint64{solToLamports(100 - amountSOL), solToLamports(1 + amountSOL)},
		Fee:          5000,
	}
}

func newTestDetector(t *testing.T, source SignatureSource, fetcher TransactionFetcher) *LaunchDetector {
	t.Helper()
	d, err := NewLaunchDetector(Config{
		ProgramAddress:    testProgram,
		MinValueToTrack:   5.0,
		ConfirmationDelay: 2 * time.Second,
		Source:            source,
		Fetcher:           fetcher,
		Logger:            zap.NewNop(),
	})
	require.NoError(t, err)
	return d
}

func TestDetectorConfigValidation(t *testing.T) {
	source := &fakeSource{}
	fetcher := newFakeFetcher()

	_, err := NewLaunchDetector(Config{MinValueToTrack: 1, ConfirmationDelay: time.Second, Source: source, Fetcher: fetcher})
	assert.Error(t, err, "missing program address")

	_, err = NewLaunchDetector(Config{ProgramAddress: testProgram, MinValueToTrack: 1, ConfirmationDelay: time.Second, Fetcher: fetcher})
	assert.Error(t, err, "missing source")

	_, err = NewLaunchDetector(Config{ProgramAddress: testProgram, MinValueToTrack: 0, ConfirmationDelay: time.Second, Source: source, Fetcher: fetcher})
	assert.Error(t, err, "non-positive threshold")
}

func TestDetectorDedupIdempotence(t *testing.T) {
	base := time.Now()
	source := &fakeSource{sigs: []blockchain.SignatureInfo{{Signature: "sigA"}}}
	fetcher := newFakeFetcher()
	fetcher.records["sigA"] = inflowRecord("sigA", testMint, 1.0)

	d := newTestDetector(t, source, fetcher)
	d.startTime = base

	d.pollTick(context.Background())
	d.pollTick(context.Background())
	d.pollTick(context.Background())

	assert.Equal(t, 1, fetcher.calls["sigA"], "a signature is fetched at most once per run")
}

func TestDetectorTimeFilter(t *testing.T) {
	base := time.Now()
	old := base.Add(-time.Minute)
	unknown := blockchain.SignatureInfo{Signature: "sigNoTime"}
	stale := blockchain.SignatureInfo{Signature: "sigOld", BlockTime: &old}

	source := &fakeSource{sigs: []blockchain.SignatureInfo{stale, unknown}}
	fetcher := newFakeFetcher()
	fetcher.records["sigOld"] = inflowRecord("sigOld", testMint, 1.0)
	fetcher.records["sigNoTime"] = inflowRecord("sigNoTime", testMint, 1.0)

	d := newTestDetector(t, source, fetcher)
	d.startTime = base

	d.pollTick(context.Background())

	assert.Zero(t, fetcher.calls["sigOld"], "transactions older than the start time are never extracted")
	assert.Equal(t, 1, fetcher.calls["sigNoTime"], "unknown block time passes the time filter")
}

func TestDetectorFetchFailureIsAtMostOnce(t *testing.T) {
	source := &fakeSource{sigs: []blockchain.SignatureInfo{{Signature: "sigA"}}}
	fetcher := newFakeFetcher()
	fetcher.errs["sigA"] = errors.New("rpc timeout")

	d := newTestDetector(t, source, fetcher)
	d.startTime = time.Now()

	d.pollTick(context.Background())
	d.pollTick(context.Background())

	assert.Equal(t, 1, fetcher.calls["sigA"], "a failed fetch is not retried on the next tick")
	assert.Zero(t, d.tracker.TrackedCount())
}

func TestDetectorAbsentTransactionNeverTracked(t *testing.T) {
	source := &fakeSource{sigs: []blockchain.SignatureInfo{{Signature: "sigA"}}}
	fetcher := newFakeFetcher() // no record registered: fetch returns (nil, nil)

	d := newTestDetector(t, source, fetcher)
	d.startTime = time.Now()

	d.pollTick(context.Background())

	assert.Zero(t, d.tracker.TrackedCount())
}

func TestDetectorSkipsFailedSignatures(t *testing.T) {
	source := &fakeSource{sigs: []blockchain.SignatureInfo{{Signature: "sigA", Failed: true}}}
	fetcher := newFakeFetcher()
	fetcher.records["sigA"] = inflowRecord("sigA", testMint, 1.0)

	d := newTestDetector(t, source, fetcher)
	d.startTime = time.Now()

	d.pollTick(context.Background())

	assert.Zero(t, fetcher.calls["sigA"])
}

func TestDetectorEndToEndLaunch(t *testing.T) {
	base := time.Now()
	now := base
	source := &fakeSource{}
	fetcher := newFakeFetcher()
	fetcher.records["sigA"] = inflowRecord("sigA", testMint, 3.0)
	fetcher.records["sigB"] = inflowRecord("sigB", testMint, 3.0)

	d := newTestDetector(t, source, fetcher)
	d.startTime = base
	d.nowFn = func() time.Time { return now }

	var received []TokenLaunch
	d.RegisterListener(func(launch TokenLaunch) {
		received = append(received, launch)
	})

	source.sigs = []blockchain.SignatureInfo{{Signature: "sigA"}}
	d.pollTick(context.Background())

	now = base.Add(500 * time.Millisecond)
	source.sigs = []blockchain.SignatureInfo{{Signature: "sigB"}, {Signature: "sigA"}}
	d.pollTick(context.Background())

	// Before the confirmation delay elapses, no event.
	now = base.Add(1 * time.Second)
	d.scanTick(context.Background())
	assert.Empty(t, received)

	now = base.Add(2100 * time.Millisecond)
	d.scanTick(context.Background())

	require.Len(t, received, 1)
	assert.Equal(t, testMint, received[0].Mint)
	assert.InDelta(t, 6.0, received[0].AccumulatedSOL, 1e-9)
	assert.Equal(t, 2, received[0].TransactionCount)
	assert.Equal(t, testProgram, received[0].Source)

	// Emitted at most once per tracked lifetime.
	d.scanTick(context.Background())
	assert.Len(t, received, 1)
}

func TestDetectorListenerIsolation(t *testing.T) {
	base := time.Now()
	now := base
	source := &fakeSource{}
	fetcher := newFakeFetcher()
	fetcher.records["sigA"] = inflowRecord("sigA", testMint, 3.0)
	fetcher.records["sigB"] = inflowRecord("sigB", testMint, 3.0)

	d := newTestDetector(t, source, fetcher)
	d.startTime = base
	d.nowFn = func() time.Time { return now }

	d.RegisterListener(func(TokenLaunch) {
		panic("broken listener")
	})

	var delivered int
	d.RegisterListener(func(TokenLaunch) {
		delivered++
	})

	source.sigs = []blockchain.SignatureInfo{{Signature: "sigA"}, {Signature: "sigB"}}
	d.pollTick(context.Background())

	now = base.Add(3 * time.Second)
	require.NotPanics(t, func() {
		d.scanTick(context.Background())
	})

	assert.Equal(t, 1, delivered, "a panicking listener must not block later listeners")
	assert.Zero(t, d.tracker.TrackedCount(), "tracker state unaffected by listener failure")
}

func TestDetectorStartStopIdempotent(t *testing.T) {
	source := &fakeSource{}
	fetcher := newFakeFetcher()

	d, err := NewLaunchDetector(Config{
		ProgramAddress:    testProgram,
		PollInterval:      10 * time.Millisecond,
		MinValueToTrack:   5.0,
		ConfirmationDelay: time.Second,
		Source:            source,
		Fetcher:           fetcher,
		Logger:            zap.NewNop(),
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, d.Start(ctx))
	require.NoError(t, d.Start(ctx), "double start warns and no-ops")

	time.Sleep(30 * time.Millisecond)

	d.Stop()
	d.Stop() // stopping a stopped detector is a no-op
}
