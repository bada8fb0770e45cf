package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/user/moviebot/internal/utils"
)

// tokenCookie 管理 API 也接受从该 Cookie 读取 Token
const tokenCookie = "token"

// ctxOwnerID 上下文中保存已认证 owner ID 的键
const ctxOwnerID = "owner_id"

// Claims JWT 声明
type Claims struct {
	OwnerID int64 `json:"owner_id"`
	jwt.RegisteredClaims
}

// RequireOwner 必须持有 owner Token 的中间件
func RequireOwner(jwtSecret string, ownerID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := extractClaims(c, jwtSecret)
		if err != nil {
			utils.Unauthorized(c, "invalid or missing token")
			c.Abort()
			return
		}
		if claims.OwnerID != ownerID {
			utils.Unauthorized(c, "token is not for the bot owner")
			c.Abort()
			return
		}

		// 将 owner 信息存入上下文
		c.Set(ctxOwnerID, claims.OwnerID)
		c.Next()
	}
}

// GetOwnerID 获取当前 owner ID，未认证时返回 0
func GetOwnerID(c *gin.Context) int64 {
	if id, ok := c.Get(ctxOwnerID); ok {
		return id.(int64)
	}
	return 0
}

// extractClaims 从请求中提取 JWT Claims
// 优先读取 Authorization 头，其次读取 Cookie
func extractClaims(c *gin.Context, jwtSecret string) (*Claims, error) {
	var tokenString string

	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		tokenString = strings.TrimPrefix(auth, "Bearer ")
	} else if cookie, err := c.Cookie(tokenCookie); err == nil {
		tokenString = cookie
	}

	if tokenString == "" {
		return nil, jwt.ErrTokenMalformed
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// GenerateToken 生成 owner 的 API Token
func GenerateToken(ownerID int64, jwtSecret string, expiry time.Duration) (string, error) {
	if ownerID == 0 {
		return "", errors.New("owner id is required")
	}
	now := time.Now()
	claims := &Claims{
		OwnerID: ownerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}
