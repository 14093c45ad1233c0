package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/plasmx/referral-ledger/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLooseString(t *testing.T) {
	var req struct {
		A looseString `json:"a"`
		B looseString `json:"b"`
		C looseString `json:"c"`
		D looseString `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"800","b":123456789012345678901234567890,"c":null,"d":-1.5}`), &req))
	assert.Equal(t, looseString("800"), req.A)
	assert.Equal(t, looseString("123456789012345678901234567890"), req.B, "no float rounding")
	assert.Equal(t, looseString(""), req.C)
	assert.Equal(t, looseString("-1.5"), req.D)
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"insufficient", &service.Error{Kind: service.KindInsufficientBalance, Message: "too much", Payable: "800", Requested: "801"}, http.StatusBadRequest, "INSUFFICIENT_BALANCE"},
		{"not configured", &service.Error{Kind: service.KindNotConfigured, Message: "off"}, http.StatusServiceUnavailable, "NOT_CONFIGURED"},
		{"untyped", errors.New("pq: password authentication failed for user admin"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/api/sign-voucher", nil)
			respondError(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tc.code, body["code"])
			assert.NotContains(t, w.Body.String(), "password")
		})
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/sign-voucher", nil)
	respondError(c, &service.Error{Kind: service.KindInsufficientBalance, Payable: "800", Requested: "801"})
	assert.JSONEq(t, `{"success":false,"error":"","code":"INSUFFICIENT_BALANCE","payable":"800","requested":"801"}`, w.Body.String())
}
