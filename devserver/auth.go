package devserver

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var jwtSecret = []byte("dev-secret")

// SetJWTSecret 启动时用配置覆盖
func SetJWTSecret(secret string) {
	jwtSecret = []byte(secret)
}

// GenerateToken 签发 24h 有效的 Bearer 凭证
func GenerateToken(usuario *Usuario) (string, error) {
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(usuario.ID), 10),
		"rol": usuario.Rol,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ParseToken 校验并取出用户
func ParseToken(tokenString string) (*Usuario, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil {
		return nil, jwt.ErrTokenInvalidSubject
	}

	var usuario Usuario
	if err := DB.First(&usuario, uint(id)).Error; err != nil {
		return nil, err
	}
	return &usuario, nil
}

// TokenAuthMiddleware 校验 Authorization: Bearer xxx，把用户放进上下文
func TokenAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			RespondError(c, http.StatusUnauthorized, "no_token", "Missing or invalid Authorization header")
			c.Abort()
			return
		}
		usuario, err := ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			RespondError(c, http.StatusUnauthorized, "bad_token", "Invalid or expired token")
			c.Abort()
			return
		}
		c.Set("usuario", usuario)
		c.Next()
	}
}

// currentUsuario 从上下文取当前用户
func currentUsuario(c *gin.Context) (*Usuario, bool) {
	v, exists := c.Get("usuario")
	if !exists {
		return nil, false
	}
	usuario, ok := v.(*Usuario)
	return usuario, ok
}
