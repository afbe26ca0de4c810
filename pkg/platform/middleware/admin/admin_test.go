package admin

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

var discard = slog.New(slog.DiscardHandler)

func serve(mw func(http.Handler) http.Handler, header, token string) int {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/credentials", nil)
	if header != "" {
		req.Header.Set(header, token)
	}
	w := httptest.NewRecorder()
	mw(next).ServeHTTP(w, req)
	return w.Code
}

func TestRequireServiceToken(t *testing.T) {
	mw := RequireServiceToken("svc", discard)

	assert.Equal(t, http.StatusUnauthorized, serve(mw, "", ""))
	assert.Equal(t, http.StatusUnauthorized, serve(mw, ServiceTokenHeader, "wrong"))
	assert.Equal(t, http.StatusUnauthorized, serve(mw, AdminTokenHeader, "svc"), "admin header must not satisfy the service guard")
	assert.Equal(t, http.StatusNoContent, serve(mw, ServiceTokenHeader, "svc"))
}

func TestEmptyTokenDisablesRoutes(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, serve(RequireServiceToken("", discard), ServiceTokenHeader, ""))
	assert.Equal(t, http.StatusUnauthorized, serve(RequireAdminToken("", discard), AdminTokenHeader, ""))
}
