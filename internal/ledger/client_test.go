package ledger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcServer answers JSON-RPC calls from a method-to-result table and
// records each request for assertions.
type rpcServer struct {
	t       *testing.T
	results map[string]string
	calls   []rpcRequest
}

func (s *rpcServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(s.t, json.NewDecoder(r.Body).Decode(&req))
		s.calls = append(s.calls, req)

		result, ok := s.results[req.Method]
		if !ok {
			result = `null`
		}
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  json.RawMessage(result),
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(s.t, json.NewEncoder(w).Encode(resp))
	}
}

func newRPCServer(t *testing.T, results map[string]string) (*rpcServer, *RPCClient) {
	s := &rpcServer{t: t, results: results}
	ts := httptest.NewServer(s.handler())
	t.Cleanup(ts.Close)
	return s, NewRPCClient(ts.URL)
}

func TestSignatures(t *testing.T) {
	srv, client := newRPCServer(t, map[string]string{
		"getSignaturesForAddress": `[
			{"signature": "sig2", "slot": 200, "blockTime": 1700000060, "err": null},
			{"signature": "sig1", "slot": 100, "blockTime": 1700000000, "err": {"InstructionError": [0, "Custom"]}}
		]`,
	})

	infos, err := client.Signatures(context.Background(), "prog", "", 1000)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	assert.Equal(t, "sig2", infos[0].Signature)
	assert.Equal(t, uint64(200), infos[0].Slot)
	assert.Equal(t, int64(1700000060), infos[0].BlockTime)
	assert.False(t, infos[0].Failed)
	assert.True(t, infos[1].Failed, "a non-null err marks the transaction failed")

	require.Len(t, srv.calls, 1)
	call := srv.calls[0]
	assert.Equal(t, "getSignaturesForAddress", call.Method)
	assert.Equal(t, "prog", call.Params[0])
	opts := call.Params[1].(map[string]interface{})
	assert.Equal(t, float64(1000), opts["limit"])
	assert.Equal(t, "confirmed", opts["commitment"])
	_, hasBefore := opts["before"]
	assert.False(t, hasBefore, "empty before must be omitted")
}

func TestSignaturesBeforePaging(t *testing.T) {
	srv, client := newRPCServer(t, map[string]string{"getSignaturesForAddress": `[]`})

	_, err := client.Signatures(context.Background(), "prog", "sig5", 10)
	require.NoError(t, err)

	opts := srv.calls[0].Params[1].(map[string]interface{})
	assert.Equal(t, "sig5", opts["before"])
}

func TestTransactionExtractsProgramData(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte{0x01, 0x02, 0x03})
	_, client := newRPCServer(t, map[string]string{
		"getTransaction": `{
			"slot": 123,
			"blockTime": 1700000000,
			"meta": {
				"err": null,
				"logMessages": [
					"Program PhoeNiXZ8ByJGLkxNfZRnkUfjvmuYqLR89jjFHGqdXY invoke [1]",
					"Program data: ` + payload + `",
					"Program log: not event data",
					"Program data: !!!not-base64!!!",
					"Program PhoeNiXZ8ByJGLkxNfZRnkUfjvmuYqLR89jjFHGqdXY success"
				]
			}
		}`,
	})

	tx, err := client.Transaction(context.Background(), "sig1")
	require.NoError(t, err)
	assert.Equal(t, uint64(123), tx.Slot)
	assert.Equal(t, int64(1700000000), tx.BlockTime)
	assert.False(t, tx.Failed)

	// Only the decodable "Program data: " line survives.
	require.Len(t, tx.LogData, 1)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, tx.LogData[0])
}

func TestTransactionFailedFlag(t *testing.T) {
	_, client := newRPCServer(t, map[string]string{
		"getTransaction": `{"slot": 1, "meta": {"err": {"InstructionError": [2, "Custom"]}, "logMessages": []}}`,
	})

	tx, err := client.Transaction(context.Background(), "sig1")
	require.NoError(t, err)
	assert.True(t, tx.Failed)
	assert.Empty(t, tx.LogData)
}

func TestTransactionNotFound(t *testing.T) {
	_, client := newRPCServer(t, map[string]string{"getTransaction": `null`})

	_, err := client.Transaction(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestAccountData(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("market header bytes"))
	_, client := newRPCServer(t, map[string]string{
		"getAccountInfo": `{"value": {"data": ["` + encoded + `", "base64"]}}`,
	})

	data, err := client.AccountData(context.Background(), "market-a")
	require.NoError(t, err)
	assert.Equal(t, []byte("market header bytes"), data)
}

func TestAccountDataMissing(t *testing.T) {
	_, client := newRPCServer(t, map[string]string{"getAccountInfo": `{"value": null}`})

	_, err := client.AccountData(context.Background(), "market-a")
	require.Error(t, err)
}

func TestCallErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc": "2.0", "id": 1, "error": {"code": -32602, "message": "invalid params"}}`))
	}))
	t.Cleanup(ts.Close)

	client := NewRPCClient(ts.URL)
	_, err := client.Signatures(context.Background(), "prog", "", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid params")
}

func TestCallHTTPStatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(ts.Close)

	client := NewRPCClient(ts.URL)
	_, err := client.Signatures(context.Background(), "prog", "", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestCommitmentOption(t *testing.T) {
	srv, client := newRPCServer(t, map[string]string{"getSignaturesForAddress": `[]`})
	client = NewRPCClient(client.endpoint, WithCommitment("finalized"))

	_, err := client.Signatures(context.Background(), "prog", "", 10)
	require.NoError(t, err)

	opts := srv.calls[0].Params[1].(map[string]interface{})
	assert.Equal(t, "finalized", opts["commitment"])
}
