package demo

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/tesserabio/tessera-cli/pkg/cli"
	"github.com/tesserabio/tessera-cli/pkg/metrics"
)

const (
	AuthHeaderKey = "Authorization"
)

type AuthHandler struct {
	jwks *keyfunc.JWKS
	log  *zap.SugaredLogger
}

// NewAuth fetches the identity provider's JWKS and returns a handler whose
// Middleware validates bearer tokens against it.
func NewAuth(log *zap.SugaredLogger, cfg *cli.Config) (*AuthHandler, error) {
	url := cfg.ResolveJWKSURL()
	if url == "" {
		return nil, fmt.Errorf("no JWKS endpoint configured: set --authority or --jwks-url")
	}

	options := keyfunc.Options{
		RefreshInterval: time.Hour,
		RefreshTimeout:  time.Second * 10,
		RefreshErrorHandler: func(err error) {
			log.Errorf("failed to refresh JWKS configuration: %v", err)
		},
	}

	// When a CA bundle is provided, validate the JWKS endpoint against it;
	// otherwise rely on system roots.
	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA bundle %s: %w", cfg.CAFile, err)
		}
		pool := x509.NewCertPool()
		if ok := pool.AppendCertsFromPEM(pem); !ok {
			return nil, fmt.Errorf("no certificates parsed from CA bundle %s", cfg.CAFile)
		}
		transport := &http.Transport{TLSClientConfig: &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}}
		options.Client = &http.Client{Transport: transport}
	}

	jwks, err := keyfunc.Get(url, options)
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS from %s: %w", url, err)
	}

	return &AuthHandler{jwks: jwks, log: log}, nil
}

func (a *AuthHandler) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		authHeader := c.GetHeader(AuthHeaderKey)
		// delete the header to avoid logging it by accident
		c.Request.Header.Del(AuthHeaderKey)
		if !strings.HasPrefix(authHeader, "Bearer ") {
			metrics.AuthFailure.WithLabelValues("missing_bearer").Inc()
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "No Bearer token provided in Authorization header",
			})
			c.Abort()
			return
		}
		bearer := authHeader[7:]

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(bearer, &claims, a.jwks.Keyfunc)
		if err != nil {
			// Attempt single forced JWKS refresh if kid missing
			if strings.Contains(err.Error(), "key ID") {
				c.Set("jwks_refresh_attempt", true)
				if rErr := a.jwks.Refresh(context.Background(), keyfunc.RefreshOptions{}); rErr == nil {
					metrics.JWKSRefresh.WithLabelValues("ok").Inc()
					token, err = jwt.ParseWithClaims(bearer, &claims, a.jwks.Keyfunc)
				} else {
					metrics.JWKSRefresh.WithLabelValues("error").Inc()
				}
			}
		}
		if err != nil {
			metrics.AuthFailure.WithLabelValues("invalid_token").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": err.Error(),
			})
			c.Abort()
			return
		}
		if !token.Valid {
			metrics.AuthFailure.WithLabelValues("invalid_token").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "token is not valid",
			})
			c.Abort()
			return
		}

		issuer, _ := claims["iss"].(string)
		metrics.AuthSuccess.WithLabelValues(issuer).Inc()

		// The raw bearer is kept in the context so handlers can forward it
		// to the platform API on the caller's behalf.
		c.Set("bearer", bearer)
		c.Set("user_id", claims["sub"])
		c.Set("email", claims["email"])
		c.Set("username", claims["preferred_username"])
		if issuer != "" {
			c.Set("issuer", issuer)
		}

		c.Next()
	}
}
