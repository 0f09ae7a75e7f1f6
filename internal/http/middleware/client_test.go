package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestClientIdentity_HeaderAndFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		header string
		want   string
	}{
		{"absent", "", AnonymousClient},
		{"blank", "   ", AnonymousClient},
		{"set", "publisher-bot", "publisher-bot"},
		{"trimmed", "  cli  ", "cli"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(ClientIdentity())
			var got string
			r.GET("/x", func(c *gin.Context) {
				got = ClientID(c)
				c.Status(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tc.header != "" {
				req.Header.Set(HeaderClientID, tc.header)
			}
			r.ServeHTTP(httptest.NewRecorder(), req)
			if got != tc.want {
				t.Fatalf("ClientID = %q; want %q", got, tc.want)
			}
		})
	}
}

func TestClientID_NilContext(t *testing.T) {
	if got := ClientID(nil); got != AnonymousClient {
		t.Fatalf("ClientID(nil) = %q", got)
	}
}
