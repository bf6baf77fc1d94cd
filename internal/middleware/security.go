package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// SecurityHeadersConfig selects the protective response headers set on every response.
type SecurityHeadersConfig struct {
	// EnableHSTS is only meaningful when the console is served over TLS.
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool

	// FrameOptions is the X-Frame-Options value (DENY, SAMEORIGIN). Empty disables it.
	FrameOptions string

	EnableContentTypeOptions bool

	ContentSecurityPolicy string
	ReferrerPolicy        string
	PermissionsPolicy     string

	// CrossOriginResourcePolicy must be relaxed to "cross-origin" on routes serving
	// promotional images to a dashboard hosted on another origin.
	CrossOriginResourcePolicy string
}

// APISecurityHeadersConfig returns the headers used for the JSON admin API.
func APISecurityHeadersConfig(tls bool) SecurityHeadersConfig {
	return SecurityHeadersConfig{
		EnableHSTS:                tls,
		HSTSMaxAge:                31536000,
		HSTSIncludeSubdomains:     true,
		FrameOptions:              "DENY",
		EnableContentTypeOptions:  true,
		ContentSecurityPolicy:     "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:            "no-referrer",
		PermissionsPolicy:         "geolocation=(), microphone=(), camera=()",
		CrossOriginResourcePolicy: "same-origin",
	}
}

// MediaSecurityHeadersConfig returns the headers used for locally served images.
func MediaSecurityHeadersConfig(tls bool) SecurityHeadersConfig {
	cfg := APISecurityHeadersConfig(tls)
	cfg.ContentSecurityPolicy = "default-src 'none'; img-src 'self'; sandbox"
	cfg.CrossOriginResourcePolicy = "cross-origin"
	return cfg
}

// SecurityHeadersMiddleware adds the configured security headers to all responses.
func SecurityHeadersMiddleware(config SecurityHeadersConfig) gin.HandlerFunc {
	hsts := ""
	if config.EnableHSTS {
		hsts = "max-age=" + strconv.Itoa(config.HSTSMaxAge)
		if config.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
		if config.HSTSPreload {
			hsts += "; preload"
		}
	}

	return func(c *gin.Context) {
		if hsts != "" {
			c.Header("Strict-Transport-Security", hsts)
		}
		if config.FrameOptions != "" {
			c.Header("X-Frame-Options", config.FrameOptions)
		}
		if config.EnableContentTypeOptions {
			c.Header("X-Content-Type-Options", "nosniff")
		}
		if config.ContentSecurityPolicy != "" {
			c.Header("Content-Security-Policy", config.ContentSecurityPolicy)
		}
		if config.ReferrerPolicy != "" {
			c.Header("Referrer-Policy", config.ReferrerPolicy)
		}
		if config.PermissionsPolicy != "" {
			c.Header("Permissions-Policy", config.PermissionsPolicy)
		}
		if config.CrossOriginResourcePolicy != "" {
			c.Header("Cross-Origin-Resource-Policy", config.CrossOriginResourcePolicy)
		}
		c.Header("X-Permitted-Cross-Domain-Policies", "none")
		c.Header("Cross-Origin-Opener-Policy", "same-origin")

		c.Next()
	}
}
