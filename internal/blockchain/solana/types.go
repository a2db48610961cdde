// internal/blockchain/solana/types.go
package solana

import (
	"sync"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
)

const (
	defaultTimeout = 10 * time.Second
	maxRetries     = 3
	retryDelay     = 250 * time.Millisecond
)

// RPCMetrics накапливает статистику по одному RPC узлу
type RPCMetrics struct {
	mu          sync.Mutex
	Requests    uint64
	Failures    uint64
	LastLatency time.Duration
	LastSuccess time.Time
	LastFailure time.Time
}

// RPCClient оборачивает один RPC узел с флагом активности
type RPCClient struct {
	Client  *rpc.Client
	URL     string
	mu      sync.RWMutex
	active  bool
	metrics *RPCMetrics
}

func (rc *RPCClient) isActive() bool {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.active
}

func (rc *RPCClient) setActive(active bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.active = active
}

func (rc *RPCClient) updateMetrics(success bool, latency time.Duration) {
	rc.metrics.mu.Lock()
	defer rc.metrics.mu.Unlock()

	rc.metrics.Requests++
	rc.metrics.LastLatency = latency
	if success {
		rc.metrics.LastSuccess = time.Now()
	} else {
		rc.metrics.Failures++
		rc.metrics.LastFailure = time.Now()
	}
}
