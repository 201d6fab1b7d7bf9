package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// Error wraps a node RPC failure (transport or a JSON-RPC error object),
// treated as transient by the chain follower.
type Error struct {
	Method string
	Cause  error
}

func (e *Error) Error() string { return fmt.Sprintf("rpc: %s: %v", e.Method, e.Cause) }
func (e *Error) Unwrap() error { return e.Cause }

// Client is a minimal JSON-RPC 2.0 client to the node.
type Client struct {
	url        string
	httpClient *http.Client
	requestID  atomic.Uint64
}

// NewClient builds a Client against the node's RPC URL with the given
// per-call timeout.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetBlockByNumber fetches the block at the given height, encoded as a
// 0x-prefixed hex string. Returns (nil, nil) if the node has no such block
// yet.
func (c *Client) GetBlockByNumber(ctx context.Context, hexNumber string) (*Block, error) {
	result, err := c.call(ctx, "get_block_by_number", []any{hexNumber})
	if err != nil {
		return nil, &Error{Method: "get_block_by_number", Cause: err}
	}
	if result == nil || string(result) == "null" {
		return nil, nil
	}
	var block Block
	if err := json.Unmarshal(result, &block); err != nil {
		return nil, &Error{Method: "get_block_by_number", Cause: fmt.Errorf("decode block: %w", err)}
	}
	return &block, nil
}

// GetTransaction fetches a transaction and its confirmation status by hash.
// Returns (nil, nil) if the node has no record of the hash.
func (c *Client) GetTransaction(ctx context.Context, hexHash string) (*TransactionWithStatus, error) {
	result, err := c.call(ctx, "get_transaction", []any{hexHash})
	if err != nil {
		return nil, &Error{Method: "get_transaction", Cause: err}
	}
	if result == nil || string(result) == "null" {
		return nil, nil
	}
	var out TransactionWithStatus
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, &Error{Method: "get_transaction", Cause: fmt.Errorf("decode transaction: %w", err)}
	}
	if out.Transaction == nil {
		return nil, nil
	}
	return &out, nil
}

func (c *Client) call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	id := c.requestID.Add(1)

	request := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
		"params":  params,
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var response struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      uint64          `json:"id"`
		Result  json.RawMessage `json:"result"`
		Error   *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != nil {
		return nil, fmt.Errorf("node returned error %d: %s", response.Error.Code, response.Error.Message)
	}

	return response.Result, nil
}
