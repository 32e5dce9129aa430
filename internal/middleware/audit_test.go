package middleware

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactAuditBodyWithdrawals(t *testing.T) {
	body := []byte(`{"wallet_id":"w1","amount":"500","bank_account_ref":"HDFC000123456789","nested":{"iban":"DE89370400440532013000","api_key":"k"}}`)
	out := redactAuditBody("/v1/withdrawals", body)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	assert.Equal(t, "***6789", data["bank_account_ref"])
	assert.Equal(t, "w1", data["wallet_id"])
	nested, ok := data["nested"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "***3000", nested["iban"])
	assert.Equal(t, "***", nested["api_key"])
}

func TestRedactAuditBodyArrays(t *testing.T) {
	out := redactAuditBody("/v1/admin/withdrawals/abc/approve", []byte(`[{"bank_account_ref":"abc"}]`))
	assert.JSONEq(t, `[{"bank_account_ref":"***"}]`, out)
}

func TestRedactAuditBodyNonSensitivePath(t *testing.T) {
	body := []byte(`{"ok":true}`)
	assert.Equal(t, string(body), redactAuditBody("/health", body))
}

func TestRedactAuditBodyInvalidJSON(t *testing.T) {
	assert.Equal(t, "[redacted]", redactAuditBody("/v1/withdrawals", []byte("not-json")))
}
