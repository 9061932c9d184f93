package venue

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newGatewayServer serves canned JSON-RPC results keyed by method name.
func newGatewayServer(t *testing.T, results map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2.0", req.JSONRPC)

		result, ok := results[req.Method]
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0", "id": req.ID,
				"error": map[string]any{"code": -32601, "message": "method not found"},
			})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": req.ID, "result": result,
		})
	}))
}

func newGatewayClient(t *testing.T, server *httptest.Server) *LiveClient {
	t.Helper()
	client, err := NewLiveClient("aave", server.URL, "localhost:9090", "ivm-treasury")
	require.NoError(t, err)
	return client
}

func TestLiveClientSupply(t *testing.T) {
	server := newGatewayServer(t, map[string]any{
		"venue_supply": map[string]string{"amount": "980000"},
	})
	defer server.Close()
	client := newGatewayClient(t, server)
	defer client.Close()

	got, err := client.Supply("usdc", sdkmath.NewInt(980_000))
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(980_000), got)

	_, err = client.Supply("usdc", sdkmath.ZeroInt())
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestLiveClientRPCError(t *testing.T) {
	server := newGatewayServer(t, nil)
	defer server.Close()
	client := newGatewayClient(t, server)
	defer client.Close()

	_, err := client.DeployedBalance("usdc")
	assert.ErrorIs(t, err, ErrRPCRequestFailed)
}

func TestLiveClientClaimAll(t *testing.T) {
	server := newGatewayServer(t, map[string]any{
		"venue_claim_rewards": []map[string]string{
			{"token": "arb", "amount": "30000"},
			{"token": "comp", "amount": "20000"},
		},
	})
	defer server.Close()
	client := newGatewayClient(t, server)
	defer client.Close()

	rewards, err := client.ClaimAll("aave-usdc")
	require.NoError(t, err)
	require.Len(t, rewards, 2)
	assert.Equal(t, "arb", rewards[0].Token)
	assert.Equal(t, sdkmath.NewInt(30_000), rewards[0].Amount)
	assert.Equal(t, sdkmath.NewInt(20_000), rewards[1].Amount)
}

func TestLiveClientRejectsMalformedAmount(t *testing.T) {
	server := newGatewayServer(t, map[string]any{
		"venue_deployed_balance": map[string]string{"amount": "not-a-number"},
	})
	defer server.Close()
	client := newGatewayClient(t, server)
	defer client.Close()

	_, err := client.DeployedBalance("usdc")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestNewLiveClientValidatesEndpoints(t *testing.T) {
	_, err := NewLiveClient("aave", "", "localhost:9090", "ivm-treasury")
	assert.ErrorIs(t, err, ErrInvalidEndpoint)

	_, err = NewLiveClient("aave", "http://localhost:8545", "", "ivm-treasury")
	assert.ErrorIs(t, err, ErrInvalidEndpoint)
}
