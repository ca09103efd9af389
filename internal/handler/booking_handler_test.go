package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consultly/consultly-api/pkg/response"
)

func newTestContext(t *testing.T, method, target string, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	if body != "" {
		c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
	} else {
		c.Request = httptest.NewRequest(method, target, nil)
	}
	return c, recorder
}

func decodeEnvelope(t *testing.T, recorder *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	return envelope
}

func TestBookingCreateRejectsMalformedJSON(t *testing.T) {
	handler := NewBookingHandler(nil)
	c, recorder := newTestContext(t, http.MethodPost, "/bookings", "{not json")

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	envelope := decodeEnvelope(t, recorder)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "invalid payload", envelope.Error.Message)
}

func TestBookingCancelRejectsMalformedJSON(t *testing.T) {
	handler := NewBookingHandler(nil)
	c, recorder := newTestContext(t, http.MethodPost, "/bookings/b-1/cancel", "[]")

	handler.Cancel(c)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestBookingListRejectsBadTimeBounds(t *testing.T) {
	handler := NewBookingHandler(nil)

	c, recorder := newTestContext(t, http.MethodGet, "/bookings?from=yesterday", "")
	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	c, recorder = newTestContext(t, http.MethodGet, "/bookings?from=2026-03-01T00:00:00Z&to=later", "")
	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestParseIntQueryFallbacks(t *testing.T) {
	c, _ := newTestContext(t, http.MethodGet, "/bookings?page=7&pageSize=abc&zero=0", "")

	assert.Equal(t, 7, parseIntQuery(c, "page", 1))
	assert.Equal(t, 20, parseIntQuery(c, "pageSize", 20))
	assert.Equal(t, 5, parseIntQuery(c, "zero", 5))
	assert.Equal(t, 3, parseIntQuery(c, "missing", 3))
}
