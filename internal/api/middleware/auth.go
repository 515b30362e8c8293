package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/d60-Lab/habbo-feed/config"
	"github.com/d60-Lab/habbo-feed/internal/api/handler"
	"github.com/d60-Lab/habbo-feed/pkg/response"
)

// Viewer 解析请求的 viewer id。配置了 jwt.secret 时取 Bearer token 的 sub，
// 否则取 viewer 查询参数
func Viewer(cfg config.JWTConfig) gin.HandlerFunc {
	if cfg.Secret == "" {
		return func(c *gin.Context) {
			viewer := strings.TrimSpace(c.Query("viewer"))
			if viewer == "" {
				response.Unauthorized(c, "viewer is required")
				return
			}
			c.Set(handler.ViewerKey, viewer)
			c.Next()
		}
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)
	key := []byte(cfg.Secret)

	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			response.Unauthorized(c, "missing bearer token")
			return
		}
		var claims jwt.RegisteredClaims
		_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			response.Unauthorized(c, msg)
			return
		}
		if claims.Subject == "" {
			response.Unauthorized(c, "token has no subject")
			return
		}
		c.Set(handler.ViewerKey, claims.Subject)
		c.Next()
	}
}
