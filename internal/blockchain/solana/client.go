// internal/blockchain/solana/client.go
package solana

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/ataxdi-dev/solana-token-monitor/internal/blockchain"
)

// Client round-robins over a list of RPC nodes and exposes the two read
// operations the monitor needs: recent signatures for the watched program
// and full transaction bodies.
type Client struct {
	rpcClients []*RPCClient
	program    solana.PublicKey
	mutex      sync.Mutex
	currIndex  int
	logger     *zap.Logger
}

// NewClient создает новый экземпляр клиента Solana
func NewClient(rpcURLs []string, programAddress string, logger *zap.Logger) (*Client, error) {
	if len(rpcURLs) == 0 {
		return nil, errors.New("empty RPC URL list")
	}

	program, err := solana.PublicKeyFromBase58(programAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid program address %q: %w", programAddress, err)
	}

	var clients []*RPCClient
	for _, urlStr := range rpcURLs {
		if _, err := url.Parse(urlStr); err != nil {
			logger.Warn("Invalid RPC URL", zap.String("url", urlStr), zap.Error(err))
			continue
		}

		clients = append(clients, &RPCClient{
			Client:  rpc.New(urlStr),
			URL:     urlStr,
			active:  true,
			metrics: &RPCMetrics{},
		})
	}

	if len(clients) == 0 {
		return nil, errors.New("no valid RPC URLs provided")
	}

	c := &Client{
		rpcClients: clients,
		program:    program,
		logger:     logger.Named("solana_client"),
	}

	if err := c.validateConnections(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to validate connections: %w", err)
	}

	return c, nil
}

// testConnection проверяет подключение к RPC узлу
func (c *Client) testConnection(ctx context.Context, rpcClient *RPCClient) error {
	version, err := rpcClient.Client.GetVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get version: %w", err)
	}

	c.logger.Debug("Successfully connected to RPC",
		zap.String("url", rpcClient.URL),
		zap.String("solana_core", version.SolanaCore))

	return nil
}

func (c *Client) validateConnections(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, client := range c.rpcClients {
		wg.Add(1)
		go func(rpcClient *RPCClient) {
			defer wg.Done()

			var lastErr error
			for attempt := 0; attempt < maxRetries; attempt++ {
				start := time.Now()
				if err := c.testConnection(ctx, rpcClient); err != nil {
					lastErr = err
					rpcClient.updateMetrics(false, time.Since(start))
					time.Sleep(retryDelay)
					continue
				}
				rpcClient.updateMetrics(true, time.Since(start))
				return
			}
			if lastErr != nil {
				c.logger.Warn("RPC node unreachable, marking inactive",
					zap.String("url", rpcClient.URL), zap.Error(lastErr))
				rpcClient.setActive(false)
			}
		}(client)
	}
	wg.Wait()

	if !c.hasActiveClients() {
		return errors.New("no active RPC connections available")
	}

	return nil
}

// RecentSignatures возвращает последние сигнатуры для отслеживаемой программы
func (c *Client) RecentSignatures(ctx context.Context, limit int) ([]blockchain.SignatureInfo, error) {
	operation := func() ([]*rpc.TransactionSignature, error) {
		client := c.getNextClient()
		if client == nil {
			return nil, backoff.Permanent(errors.New("no active RPC clients available"))
		}

		start := time.Now()
		out, err := client.Client.GetSignaturesForAddressWithOpts(ctx, c.program,
			&rpc.GetSignaturesForAddressOpts{
				Limit:      &limit,
				Commitment: rpc.CommitmentConfirmed,
			})
		client.updateMetrics(err == nil, time.Since(start))
		if err != nil {
			client.setActive(false)
			return nil, err
		}
		return out, nil
	}

	sigs, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxRetries),
		backoff.WithNotify(func(err error, d time.Duration) {
			c.logger.Debug("Retrying signature fetch", zap.Error(err), zap.Duration("backoff", d))
		}))
	if err != nil {
		return nil, fmt.Errorf("failed to list signatures: %w", err)
	}

	infos := make([]blockchain.SignatureInfo, 0, len(sigs))
	for _, sig := range sigs {
		info := blockchain.SignatureInfo{
			Signature: sig.Signature.String(),
			Failed:    sig.Err != nil,
		}
		if sig.BlockTime != nil {
			t := sig.BlockTime.Time()
			info.BlockTime = &t
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// FetchTransaction загружает и разбирает транзакцию по сигнатуре.
// Возвращает (nil, nil), если узел еще не знает транзакцию.
func (c *Client) FetchTransaction(ctx context.Context, signature string) (*blockchain.TransactionRecord, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature %q: %w", signature, err)
	}

	maxVersion := uint64(0)
	operation := func() (*rpc.GetTransactionResult, error) {
		client := c.getNextClient()
		if client == nil {
			return nil, backoff.Permanent(errors.New("no active RPC clients available"))
		}

		start := time.Now()
		out, err := client.Client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
			Encoding:                       solana.EncodingBase64,
			Commitment:                     rpc.CommitmentConfirmed,
			MaxSupportedTransactionVersion: &maxVersion,
		})
		client.updateMetrics(err == nil, time.Since(start))
		if err != nil {
			if errors.Is(err, rpc.ErrNotFound) {
				return nil, backoff.Permanent(rpc.ErrNotFound)
			}
			client.setActive(false)
			return nil, err
		}
		return out, nil
	}

	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxRetries),
		backoff.WithNotify(func(err error, d time.Duration) {
			c.logger.Debug("Retrying transaction fetch",
				zap.String("signature", shortSig(signature)), zap.Error(err), zap.Duration("backoff", d))
		}))
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch transaction: %w", err)
	}
	if result == nil || result.Meta == nil || result.Transaction == nil {
		return nil, nil
	}

	return c.toRecord(signature, result)
}

// toRecord переводит RPC результат в плоскую запись для экстрактора
func (c *Client) toRecord(signature string, result *rpc.GetTransactionResult) (*blockchain.TransactionRecord, error) {
	tx, err := result.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	accountKeys := make([]string, 0, len(tx.Message.AccountKeys))
	for _, key := range tx.Message.AccountKeys {
		accountKeys = append(accountKeys, key.String())
	}

	instructions := make([]blockchain.InstructionRecord, 0, len(tx.Message.Instructions))
	for _, ix := range tx.Message.Instructions {
		rec := blockchain.InstructionRecord{}
		if int(ix.ProgramIDIndex) < len(accountKeys) {
			rec.ProgramID = accountKeys[ix.ProgramIDIndex]
		}
		for _, idx := range ix.Accounts {
			if int(idx) < len(accountKeys) {
				rec.Accounts = append(rec.Accounts, accountKeys[idx])
			}
		}
		instructions = append(instructions, rec)
	}

	record := &blockchain.TransactionRecord{
		Signature:    signature,
		AccountKeys:  accountKeys,
		Instructions: instructions,
		PreBalances:  result.Meta.PreBalances,
		PostBalances: result.Meta.PostBalances,
		Fee:          result.Meta.Fee,
	}
	if result.BlockTime != nil {
		t := result.BlockTime.Time()
		record.BlockTime = &t
	}

	return record, nil
}

// Вспомогательные методы для Client
func (c *Client) hasActiveClients() bool {
	for _, client := range c.rpcClients {
		if client.isActive() {
			return true
		}
	}
	return false
}

func (c *Client) getNextClient() *RPCClient {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	initialIndex := c.currIndex
	for {
		c.currIndex = (c.currIndex + 1) % len(c.rpcClients)
		if c.rpcClients[c.currIndex].isActive() {
			return c.rpcClients[c.currIndex]
		}
		if c.currIndex == initialIndex {
			return nil
		}
	}
}

func shortSig(sig string) string {
	if len(sig) > 8 {
		return sig[:8]
	}
	return sig
}
