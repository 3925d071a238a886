package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig JWT配置
type JWTConfig struct {
	Secret     string
	ExpireTime time.Duration
}

// NewJWTConfig 创建JWT配置
func NewJWTConfig(secret string) *JWTConfig {
	return &JWTConfig{
		Secret:     secret,
		ExpireTime: 24 * time.Hour,
	}
}

// GenerateToken 为用户生成 JWT token
func (c *JWTConfig) GenerateToken(userID int64) (string, error) {
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(userID, 10),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(c.ExpireTime).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(c.Secret))
}

// ParseToken 解析 JWT token 并返回用户ID
func (c *JWTConfig) ParseToken(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(c.Secret), nil
	})
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("invalid token")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return 0, fmt.Errorf("invalid token subject: %v", err)
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("invalid user id in token")
	}

	return userID, nil
}

// ValidateToken 校验 JWT token 是否有效
func (c *JWTConfig) ValidateToken(tokenString string) bool {
	_, err := c.ParseToken(tokenString)
	return err == nil
}
