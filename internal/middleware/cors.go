package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/funzone-backend/internal/common/config"
)

// originMatcher 支持 "*"、精确源与 "https://*.example.com" 形式的子域通配
type originMatcher struct {
	any      bool
	exact    map[string]struct{}
	suffixes []string // "https://" + ".example.com"
}

func newOriginMatcher(origins []string) *originMatcher {
	m := &originMatcher{exact: make(map[string]struct{})}
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch {
		case o == "*":
			m.any = true
		case strings.Contains(o, "://*."):
			scheme, host, _ := strings.Cut(o, "://*")
			m.suffixes = append(m.suffixes, scheme+"://", host)
		case o != "":
			m.exact[o] = struct{}{}
		}
	}
	return m
}

func (m *originMatcher) allowed(origin string) bool {
	if origin == "" {
		return false
	}
	if m.any {
		return true
	}
	if _, ok := m.exact[origin]; ok {
		return true
	}
	for i := 0; i+1 < len(m.suffixes); i += 2 {
		scheme, host := m.suffixes[i], m.suffixes[i+1]
		if strings.HasPrefix(origin, scheme) && strings.HasSuffix(origin, host) && len(origin) > len(scheme)+len(host) {
			return true
		}
	}
	return false
}

// CORSFromConfig 跨域中间件
// 允许任意源且需要凭证时回显请求的 Origin，浏览器不接受 "*" 搭配凭证
func CORSFromConfig(cfg *config.CORSConfig) gin.HandlerFunc {
	matcher := newOriginMatcher(cfg.AllowedOrigins)
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	exposed := strings.Join(cfg.ExposedHeaders, ", ")
	maxAge := ""
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(cfg.MaxAge)
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		h := c.Writer.Header()
		h.Add("Vary", "Origin")

		if matcher.allowed(origin) {
			if matcher.any && !cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
			}
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if exposed != "" {
				h.Set("Access-Control-Expose-Headers", exposed)
			}
			if c.Request.Method == http.MethodOptions {
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				if maxAge != "" {
					h.Set("Access-Control-Max-Age", maxAge)
				}
			}
		}

		if c.Request.Method == http.MethodOptions && origin != "" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
