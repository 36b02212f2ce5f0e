package app

import (
	"context"

	"video-api/ddd/application/cqe"
	"video-api/ddd/application/dto"
	"video-api/ddd/domain/gateway"
	"video-api/ddd/domain/vo"
	"video-api/pkg/errno"
)

type UserApp interface {
	// GetRole 查询用户角色
	GetRole(ctx context.Context, userUUID string) (*dto.RoleDTO, error)
	// SetRole 登记用户角色
	SetRole(ctx context.Context, userUUID string, req *cqe.SetRoleReq) (*dto.RoleDTO, error)
}

type userAppImpl struct {
	roles gateway.RoleProvider
}

// NewUserApp 创建用户应用服务
func NewUserApp(roles gateway.RoleProvider) UserApp {
	return &userAppImpl{roles: roles}
}

func (u *userAppImpl) GetRole(ctx context.Context, userUUID string) (*dto.RoleDTO, error) {
	if userUUID == "" {
		return nil, errno.NewBizError(errno.ErrIdentityRequired, nil)
	}
	role, err := u.roles.GetRole(ctx, userUUID)
	if err != nil {
		return nil, err
	}
	return &dto.RoleDTO{UserUUID: userUUID, Role: role.String()}, nil
}

func (u *userAppImpl) SetRole(ctx context.Context, userUUID string, req *cqe.SetRoleReq) (*dto.RoleDTO, error) {
	if userUUID == "" {
		return nil, errno.NewBizError(errno.ErrIdentityRequired, nil)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	role := vo.Role(req.Role)
	if !role.IsValid() {
		return nil, errno.NewBizError(errno.ErrRoleInvalid, nil)
	}
	if err := u.roles.SetRole(ctx, userUUID, role); err != nil {
		return nil, err
	}
	return &dto.RoleDTO{UserUUID: userUUID, Role: role.String()}, nil
}
