package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	sdkmath "cosmossdk.io/math"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/impactvault/ivm/internal/logger"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidEndpoint  = errors.New("endpoint is invalid")
	ErrRPCRequestFailed = errors.New("RPC request failed")
	ErrInvalidResponse  = errors.New("response data is invalid")
	ErrInvalidAmount    = errors.New("amount is invalid")
)

var liveLogger = logger.GetForComponent("venue_client")

// JSON-RPC structures for the venue gateway.

// rpcRequest defines the structure of a JSON-RPC request.
type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int            `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

// rpcResponse defines the structure of a JSON-RPC response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError defines the structure of a JSON-RPC error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// amountResult is the common result payload carrying an integer amount string.
type amountResult struct {
	Amount string `json:"amount"`
}

// LiveClient talks to one external venue through its JSON-RPC gateway, and
// checks venue health over the standard gRPC health protocol.
type LiveClient struct {
	venueName   string
	rpcEndpoint string
	account     string
	httpClient  *http.Client
	grpcConn    *grpc.ClientConn
	health      grpc_health_v1.HealthClient
}

// NewLiveClient connects to a venue gateway. rpcEndpoint serves the JSON-RPC
// query/execute surface; grpcEndpoint serves the standard health service.
func NewLiveClient(venueName, rpcEndpoint, grpcEndpoint, account string) (*LiveClient, error) {
	if rpcEndpoint == "" || grpcEndpoint == "" {
		return nil, ErrInvalidEndpoint
	}

	conn, err := grpc.NewClient(grpcEndpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to venue gRPC endpoint: %w", err)
	}

	liveLogger.Info().
		Str("venue", venueName).
		Str("rpcEndpoint", rpcEndpoint).
		Str("grpcEndpoint", grpcEndpoint).
		Msg("Venue client connected")

	return &LiveClient{
		venueName:   venueName,
		rpcEndpoint: rpcEndpoint,
		account:     account,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		grpcConn:    conn,
		health:      grpc_health_v1.NewHealthClient(conn),
	}, nil
}

// call performs one JSON-RPC request against the venue gateway.
func (c *LiveClient) call(method string, params map[string]any) (json.RawMessage, error) {
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal RPC request: %w", err)
	}

	resp, err := c.httpClient.Post(c.rpcEndpoint, "application/json", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRPCRequestFailed, method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", ErrRPCRequestFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned HTTP %d", ErrRPCRequestFailed, method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %w", ErrInvalidResponse, err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("%w: %s: %s (code %d)", ErrRPCRequestFailed, method, rpcResp.Error.Message, rpcResp.Error.Code)
	}
	return rpcResp.Result, nil
}

// callAmount performs an RPC call whose result carries a single integer amount.
func (c *LiveClient) callAmount(method string, params map[string]any) (sdkmath.Int, error) {
	result, err := c.call(method, params)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	var payload amountResult
	if err := json.Unmarshal(result, &payload); err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: failed to decode amount: %w", ErrInvalidResponse, err)
	}
	amount, ok := sdkmath.NewIntFromString(payload.Amount)
	if !ok || amount.IsNegative() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %q", ErrInvalidAmount, payload.Amount)
	}
	return amount, nil
}

// Supply deploys amount into the venue.
func (c *LiveClient) Supply(asset string, amount sdkmath.Int) (sdkmath.Int, error) {
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.ZeroInt(), ErrInvalidAmount
	}
	return c.callAmount("venue_supply", map[string]any{
		"venue":   c.venueName,
		"asset":   asset,
		"amount":  amount.String(),
		"account": c.account,
	})
}

// Withdraw pulls amount out of the venue to the given address.
func (c *LiveClient) Withdraw(asset string, amount sdkmath.Int, to string) (sdkmath.Int, error) {
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.ZeroInt(), ErrInvalidAmount
	}
	return c.callAmount("venue_withdraw", map[string]any{
		"venue":  c.venueName,
		"asset":  asset,
		"amount": amount.String(),
		"to":     to,
	})
}

// DeployedBalance returns the principal currently deployed in the venue.
func (c *LiveClient) DeployedBalance(asset string) (sdkmath.Int, error) {
	return c.callAmount("venue_deployed_balance", map[string]any{
		"venue":   c.venueName,
		"asset":   asset,
		"account": c.account,
	})
}

// IsHealthy checks the venue gateway over the standard gRPC health protocol.
func (c *LiveClient) IsHealthy() (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := c.health.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: c.venueName})
	if err != nil {
		return false, fmt.Errorf("%w: health check: %w", ErrRPCRequestFailed, err)
	}
	return resp.Status == grpc_health_v1.HealthCheckResponse_SERVING, nil
}

// Close releases the gRPC connection.
func (c *LiveClient) Close() error {
	if c.grpcConn != nil {
		return c.grpcConn.Close()
	}
	return nil
}

// ClaimAll claims every pending reward for the adapter through the gateway.
// Implements the RewardClaimer collaborator contract.
func (c *LiveClient) ClaimAll(adapterID string) ([]RewardBalance, error) {
	result, err := c.call("venue_claim_rewards", map[string]any{
		"venue":   c.venueName,
		"adapter": adapterID,
		"account": c.account,
	})
	if err != nil {
		return nil, err
	}

	var payload []struct {
		Token  string `json:"token"`
		Amount string `json:"amount"`
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		return nil, fmt.Errorf("%w: failed to decode rewards: %w", ErrInvalidResponse, err)
	}

	rewards := make([]RewardBalance, 0, len(payload))
	for _, item := range payload {
		amount, ok := sdkmath.NewIntFromString(item.Amount)
		if !ok || amount.IsNegative() {
			return nil, fmt.Errorf("%w: reward %s amount %q", ErrInvalidAmount, item.Token, item.Amount)
		}
		rewards = append(rewards, RewardBalance{Token: item.Token, Amount: amount})
	}
	return rewards, nil
}

// ConvertToSettlement swaps a reward token into the settlement asset through
// the gateway. Implements the SwapService collaborator contract.
func (c *LiveClient) ConvertToSettlement(token string, amount sdkmath.Int) (sdkmath.Int, error) {
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.ZeroInt(), ErrInvalidAmount
	}
	return c.callAmount("venue_swap_to_settlement", map[string]any{
		"venue":   c.venueName,
		"token":   token,
		"amount":  amount.String(),
		"account": c.account,
	})
}

// Borrow draws debt against supplied collateral. Implements the
// BorrowingVenueClient extension for venues that support it.
func (c *LiveClient) Borrow(asset string, amount sdkmath.Int) (sdkmath.Int, error) {
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.ZeroInt(), ErrInvalidAmount
	}
	return c.callAmount("venue_borrow", map[string]any{
		"venue":   c.venueName,
		"asset":   asset,
		"amount":  amount.String(),
		"account": c.account,
	})
}

// Repay pays down outstanding debt.
func (c *LiveClient) Repay(asset string, amount sdkmath.Int) (sdkmath.Int, error) {
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.ZeroInt(), ErrInvalidAmount
	}
	return c.callAmount("venue_repay", map[string]any{
		"venue":   c.venueName,
		"asset":   asset,
		"amount":  amount.String(),
		"account": c.account,
	})
}
