package admission

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := newFixture(t)
	router := gin.New()
	NewHandlers(f.svc).RegisterRoutes(router)
	return router, f
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func (f *fixture) submitBody(t *testing.T, score, ts uint64) map[string]interface{} {
	return map[string]interface{}{
		"score":                 score,
		"wallet_address":        f.wallet,
		"timestamp_ms":          ts,
		"environment_signature": hex.EncodeToString(environmentSign(t, f.oracleKey, score, f.wallet, ts)),
		"wallet_signature":      hex.EncodeToString(ownershipSign(t, f.walletKey, score, f.wallet, ts)),
	}
}

func TestSubmitScoreEndpoint(t *testing.T) {
	router, f := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/v1/scores", f.submitBody(t, 705, 1700000000000))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var rec ScoreRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, uint64(705), rec.Score)

	// Duplicate timestamp conflicts.
	w = doJSON(router, http.MethodPost, "/v1/scores", f.submitBody(t, 705, 1700000000000))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSubmitScoreEndpointRejectsOwnershipMismatch(t *testing.T) {
	router, f := newTestRouter(t)

	body := f.submitBody(t, 705, 1000)
	other := newFixture(t) // different wallet key
	body["wallet_signature"] = hex.EncodeToString(ownershipSign(t, other.walletKey, 705, f.wallet, 1000))

	w := doJSON(router, http.MethodPost, "/v1/scores", body)
	require.Equal(t, http.StatusForbidden, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ownership_mismatch", resp["error"])
}

func TestSubmitScoreEndpointValidation(t *testing.T) {
	router, f := newTestRouter(t)

	body := f.submitBody(t, 705, 1000)
	body["wallet_address"] = "not-an-address"
	w := doJSON(router, http.MethodPost, "/v1/scores", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body = f.submitBody(t, 705, 1000)
	body["environment_signature"] = "zzzz"
	w = doJSON(router, http.MethodPost, "/v1/scores", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLatestEndpoint(t *testing.T) {
	router, f := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/v1/scores/latest", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "empty ledger must 404")

	require.Equal(t, http.StatusCreated,
		doJSON(router, http.MethodPost, "/v1/scores", f.submitBody(t, 705, 2000)).Code)

	w = doJSON(router, http.MethodGet, "/v1/scores/latest", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var rec ScoreRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, uint64(2000), rec.TimestampMS)
}

func TestHistoryEndpoint(t *testing.T) {
	router, f := newTestRouter(t)

	for i := uint64(1); i <= 3; i++ {
		require.Equal(t, http.StatusCreated,
			doJSON(router, http.MethodPost, "/v1/scores", f.submitBody(t, 100*i, 1000*i)).Code)
	}

	w := doJSON(router, http.MethodGet, fmt.Sprintf("/v1/scores/%s?limit=2", f.wallet), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Records []ScoreRecord `json:"records"`
		Count   int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, uint64(3000), resp.Records[0].TimestampMS, "newest first")

	// Malformed wallet param is rejected by middleware.
	w = doJSON(router, http.MethodGet, "/v1/scores/0xZZ", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterSignerEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	// Fixture already registered one signer; register a second under the
	// same measurements.
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	doc := json.RawMessage(attestationDoc(t, testMeasurements(), key))

	w := doJSON(router, http.MethodPost, "/v1/signers", map[string]interface{}{
		"attestation_document": doc,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Mismatched measurements are forbidden.
	tampered := testMeasurements()
	tampered[0][0] ^= 0x01
	key2, err := crypto.GenerateKey()
	require.NoError(t, err)
	w = doJSON(router, http.MethodPost, "/v1/signers", map[string]interface{}{
		"attestation_document": json.RawMessage(attestationDoc(t, tampered, key2)),
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateConfigEndpoint(t *testing.T) {
	router, f := newTestRouter(t)

	next := testMeasurements()
	next[1][1] ^= 0xFF
	hexM := make([]string, len(next))
	for i, m := range next {
		hexM[i] = hex.EncodeToString(m)
	}

	w := doJSON(router, http.MethodPut, "/v1/config", map[string]interface{}{
		"capability":   "wrong-token",
		"measurements": hexM,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(router, http.MethodPut, "/v1/config", map[string]interface{}{
		"capability":   f.capability,
		"measurements": hexM,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Version int64 `json:"version"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.Version)
}
