package http

import (
	"github.com/gin-gonic/gin"

	"video-api/ddd/application/app"
	"video-api/ddd/application/cqe"
	"video-api/pkg/errno"
	"video-api/pkg/restapi"
)

// UserController 用户角色控制器
type UserController struct {
	userApp app.UserApp
}

// NewUserController 创建用户控制器
func NewUserController(userApp app.UserApp) *UserController {
	return &UserController{userApp: userApp}
}

func userUUIDFrom(ctx *gin.Context) (string, bool) {
	v, ok := ctx.Get("user_uuid")
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// GetRole 查询当前用户角色
func (c *UserController) GetRole(ctx *gin.Context) {
	userUUID, ok := userUUIDFrom(ctx)
	if !ok {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrIdentityRequired, nil))
		return
	}
	resp, err := c.userApp.GetRole(ctx.Request.Context(), userUUID)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, resp)
}

// SetRole 登记当前用户角色
func (c *UserController) SetRole(ctx *gin.Context) {
	userUUID, ok := userUUIDFrom(ctx)
	if !ok {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrIdentityRequired, nil))
		return
	}
	var req cqe.SetRoleReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrRoleInvalid, err))
		return
	}
	resp, err := c.userApp.SetRole(ctx.Request.Context(), userUUID, &req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, resp)
}
