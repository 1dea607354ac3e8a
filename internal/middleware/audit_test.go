package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/huangang/projecthub/internal/services"
)

func TestAuditContext_PopulatesClientInfo(t *testing.T) {
	var got services.ClientInfo
	router := gin.New()
	router.Use(AuditContext())
	router.GET("/x", func(c *gin.Context) {
		got = services.ClientInfoFrom(c.Request.Context())
		c.Status(200)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/x", nil)
	req.RemoteAddr = "10.1.2.3:4567"
	req.Header.Set("User-Agent", "test-agent/1.0")
	router.ServeHTTP(w, req)

	if got.IP != "10.1.2.3" {
		t.Errorf("IP = %q, expected %q", got.IP, "10.1.2.3")
	}
	if got.UserAgent != "test-agent/1.0" {
		t.Errorf("UserAgent = %q, expected %q", got.UserAgent, "test-agent/1.0")
	}
	if w.Header().Get(HeaderRequestID) == "" {
		t.Error("expected a generated request id")
	}
}

func TestAuditContext_RequestID(t *testing.T) {
	router := gin.New()
	router.Use(AuditContext())
	router.GET("/x", func(c *gin.Context) { c.Status(200) })

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"kept", "abc-123", true},
		{"too long replaced", strings.Repeat("a", 100), false},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/x", nil)
		req.Header.Set(HeaderRequestID, tt.incoming)
		router.ServeHTTP(w, req)

		got := w.Header().Get(HeaderRequestID)
		if (got == tt.incoming) != tt.keep {
			t.Errorf("%s: request id = %q", tt.name, got)
		}
	}
}
