package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// Client is the consumed surface of the ledger RPC node. The indexer
// assumes these calls are provided as-is; no retry or backoff here.
type Client interface {
	// Signatures lists transaction signatures for an address, newest
	// first, optionally paging with a `before` signature.
	Signatures(ctx context.Context, address, before string, limit int) ([]SignatureInfo, error)

	// Transaction fetches one confirmed transaction with its program log.
	Transaction(ctx context.Context, signature string) (*Transaction, error)

	// AccountData fetches the raw account bytes for an address.
	AccountData(ctx context.Context, address string) ([]byte, error)
}

type SignatureInfo struct {
	Signature string
	Slot      uint64
	BlockTime int64
	Failed    bool
}

// Transaction is one fetched transaction. LogData holds the base64
// payloads the exchange program emitted, in emission order; empty when
// the transaction carried no decodable event log.
type Transaction struct {
	Slot      uint64
	BlockTime int64
	Failed    bool
	LogData   [][]byte
}

// RPCClient talks JSON-RPC 2.0 to a Solana node.
type RPCClient struct {
	endpoint   string
	commitment string
	httpClient *http.Client
	logger     *slog.Logger
	nextID     atomic.Uint64
}

// Option configures an RPCClient.
type Option func(*RPCClient)

func WithTimeout(d time.Duration) Option {
	return func(c *RPCClient) { c.httpClient.Timeout = d }
}

func WithCommitment(commitment string) Option {
	return func(c *RPCClient) { c.commitment = commitment }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *RPCClient) { c.logger = logger }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *RPCClient) { c.httpClient = hc }
}

func NewRPCClient(endpoint string, opts ...Option) *RPCClient {
	c := &RPCClient{
		endpoint:   endpoint,
		commitment: "confirmed",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (c *RPCClient) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%s: %w", method, rpcResp.Error)
	}
	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
	}
	return nil
}

type signatureResult struct {
	Signature string          `json:"signature"`
	Slot      uint64          `json:"slot"`
	BlockTime *int64          `json:"blockTime"`
	Err       json.RawMessage `json:"err"`
}

func (c *RPCClient) Signatures(ctx context.Context, address, before string, limit int) ([]SignatureInfo, error) {
	opts := map[string]interface{}{
		"limit":      limit,
		"commitment": c.commitment,
	}
	if before != "" {
		opts["before"] = before
	}

	var results []signatureResult
	if err := c.call(ctx, "getSignaturesForAddress", []interface{}{address, opts}, &results); err != nil {
		return nil, err
	}

	infos := make([]SignatureInfo, 0, len(results))
	for _, r := range results {
		info := SignatureInfo{
			Signature: r.Signature,
			Slot:      r.Slot,
			Failed:    !isJSONNull(r.Err),
		}
		if r.BlockTime != nil {
			info.BlockTime = *r.BlockTime
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// programDataPrefix marks log lines carrying base64 event payloads.
const programDataPrefix = "Program data: "

type transactionResult struct {
	Slot      uint64 `json:"slot"`
	BlockTime *int64 `json:"blockTime"`
	Meta      *struct {
		Err         json.RawMessage `json:"err"`
		LogMessages []string        `json:"logMessages"`
	} `json:"meta"`
}

func (c *RPCClient) Transaction(ctx context.Context, signature string) (*Transaction, error) {
	opts := map[string]interface{}{
		"commitment":                     c.commitment,
		"maxSupportedTransactionVersion": 0,
	}

	var result *transactionResult
	if err := c.call(ctx, "getTransaction", []interface{}{signature, opts}, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("getTransaction: %s not found", signature)
	}

	tx := &Transaction{Slot: result.Slot}
	if result.BlockTime != nil {
		tx.BlockTime = *result.BlockTime
	}
	if result.Meta == nil {
		return tx, nil
	}
	tx.Failed = !isJSONNull(result.Meta.Err)

	for _, line := range result.Meta.LogMessages {
		if !strings.HasPrefix(line, programDataPrefix) {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(line, programDataPrefix))
		if err != nil {
			c.logger.Debug("skipping undecodable program data line", "signature", signature)
			continue
		}
		tx.LogData = append(tx.LogData, data)
	}
	return tx, nil
}

type accountInfoResult struct {
	Value *struct {
		Data []string `json:"data"`
	} `json:"value"`
}

func (c *RPCClient) AccountData(ctx context.Context, address string) ([]byte, error) {
	opts := map[string]interface{}{
		"encoding":   "base64",
		"commitment": c.commitment,
	}

	var result accountInfoResult
	if err := c.call(ctx, "getAccountInfo", []interface{}{address, opts}, &result); err != nil {
		return nil, err
	}
	if result.Value == nil || len(result.Value.Data) == 0 {
		return nil, fmt.Errorf("getAccountInfo: account %s not found", address)
	}
	data, err := base64.StdEncoding.DecodeString(result.Value.Data[0])
	if err != nil {
		return nil, fmt.Errorf("getAccountInfo: decode account data: %w", err)
	}
	return data, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
