package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"video-api/pkg/errno"
	"video-api/pkg/restapi"
)

// AuthMiddleware 解析外部身份服务签发的Bearer JWT（HS256），
// 将subject写入上下文。仅角色接口使用，转码流水线接口不做鉴权。
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		if !strings.HasPrefix(raw, "Bearer ") {
			restapi.Failed(c, errno.ErrIdentityRequired)
			c.Abort()
			return
		}

		token, err := jwt.Parse(strings.TrimPrefix(raw, "Bearer "), func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			restapi.Failed(c, errno.ErrUnauthorized)
			c.Abort()
			return
		}

		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			restapi.Failed(c, errno.ErrIdentityRequired)
			c.Abort()
			return
		}

		c.Set("user_uuid", sub)
		c.Next()
	}
}
