package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"video-api/ddd/domain/gateway"
	"video-api/ddd/domain/vo"
	"video-api/ddd/infrastructure/database/dao"
	"video-api/ddd/infrastructure/database/po"
	"video-api/pkg/errno"
)

// RoleRepositoryImpl 用户角色仓储实现
type RoleRepositoryImpl struct {
	dao *dao.UserRoleDAO
}

var _ gateway.RoleProvider = (*RoleRepositoryImpl)(nil)

// NewRoleRepositoryImpl 创建用户角色仓储
func NewRoleRepositoryImpl(db *gorm.DB) *RoleRepositoryImpl {
	return &RoleRepositoryImpl{dao: dao.NewUserRoleDAO(db)}
}

// GetRole 查询用户角色，未登记过的用户默认student
func (r *RoleRepositoryImpl) GetRole(ctx context.Context, userUUID string) (vo.Role, error) {
	rolePo, err := r.dao.FindByUserUUID(ctx, userUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return vo.RoleStudent, nil
		}
		return "", errno.NewBizError(errno.ErrDatabase, err)
	}
	role := vo.Role(rolePo.Role)
	if !role.IsValid() {
		return vo.RoleStudent, nil
	}
	return role, nil
}

// SetRole 登记用户角色
func (r *RoleRepositoryImpl) SetRole(ctx context.Context, userUUID string, role vo.Role) error {
	if !role.IsValid() {
		return errno.NewBizError(errno.ErrRoleInvalid, nil)
	}
	err := r.dao.Upsert(ctx, &po.UserRole{
		UserUUID: userUUID,
		Role:     role.String(),
	})
	if err != nil {
		return errno.NewBizError(errno.ErrDatabase, err)
	}
	return nil
}
