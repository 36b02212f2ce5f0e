package restapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"video-api/pkg/errno"
)

// 前端轮询客户端约定的错误响应体为 {"detail": "..."}，成功响应直接返回业务JSON。

// Success 返回成功响应
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, data)
}

// Failed 返回失败响应，按错误码映射HTTP状态
func Failed(ctx *gin.Context, err error) {
	status, detail := classify(err)
	ctx.JSON(status, gin.H{"detail": detail})
}

func classify(err error) (int, string) {
	var e *errno.Errno
	if errors.As(err, &e) {
		return httpStatus(e), e.Message
	}
	var biz *errno.BizError
	if errors.As(err, &biz) {
		return httpStatus(biz.Errno), biz.Errno.Message
	}
	return http.StatusInternalServerError, err.Error()
}

func httpStatus(e *errno.Errno) int {
	switch e {
	case errno.ErrMissingFile, errno.ErrUploadNotVideo, errno.ErrInvalidParam, errno.ErrRoleInvalid:
		return http.StatusBadRequest
	case errno.ErrUploadTooLarge:
		return http.StatusRequestEntityTooLarge
	case errno.ErrUnauthorized, errno.ErrIdentityRequired:
		return http.StatusUnauthorized
	case errno.ErrNotFound, errno.ErrJobNotFound:
		return http.StatusNotFound
	case errno.ErrQueueUnavailable:
		return http.StatusServiceUnavailable
	case errno.ErrInternalServer, errno.ErrDatabase:
		return http.StatusInternalServerError
	default:
		if e.Code >= 400 && e.Code < 600 {
			return e.Code
		}
		return http.StatusInternalServerError
	}
}
