package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSubscriptionRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.Default()
	handler := NewHandler(nil, Options{})
	r.PUT("/subscriptions", handler.PutSubscription)
	return r
}

func TestPutSubscription_BadRequest(t *testing.T) {
	router := setupSubscriptionRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/subscriptions", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())
}

func TestSubscriptionLifecycle(t *testing.T) {
	router, s := newTestRouter(t)

	machine := createTestMachine(t, s, "Fraiseuse Mazak", "CNC-01")

	put := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/subscriptions", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		return w
	}

	w := put(`{"endpoint":"https://example.com/push","p256dh":"k","auth":"a","subscribed_machines":[` +
		int64String(machine.ID) + `]}`)
	require.Equal(t, http.StatusCreated, w.Code)

	// Re-registering the same endpoint replaces keys and machine set.
	w = put(`{"endpoint":"https://example.com/push","p256dh":"k2","auth":"a2","subscribed_machines":[]}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/subscriptions?endpoint=https://example.com/push", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subscribed_machines":[]}`, w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("DELETE", "/subscriptions", strings.NewReader(`{"endpoint":"https://example.com/push"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/subscriptions?endpoint=https://example.com/push", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetVAPIDPublicKey_Unconfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.Default()
	handler := NewHandler(nil, Options{})
	r.GET("/vapid_public_key", handler.GetVAPIDPublicKey)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/vapid_public_key", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
