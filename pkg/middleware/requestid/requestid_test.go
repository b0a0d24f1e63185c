package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serve(header string) (*httptest.ResponseRecorder, string) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	var seen string
	r.GET("/", func(c *gin.Context) { seen = Value(c) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(headerKey, header)
	}
	r.ServeHTTP(w, req)
	return w, seen
}

func TestMiddlewareKeepsClientID(t *testing.T) {
	w, seen := serve("trace-123")
	assert.Equal(t, "trace-123", seen)
	assert.Equal(t, "trace-123", w.Header().Get(headerKey))
}

func TestMiddlewareReplacesMalformedID(t *testing.T) {
	for _, raw := range []string{"", "has space", strings.Repeat("a", maxLength+1)} {
		w, seen := serve(raw)
		assert.Len(t, seen, 36, raw)
		assert.Equal(t, seen, w.Header().Get(headerKey))
	}
}
