package dao

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"video-api/ddd/infrastructure/database/po"
	"video-api/pkg/logger"
)

// UserRoleDAO 用户角色数据访问对象
type UserRoleDAO struct {
	db *gorm.DB
}

// NewUserRoleDAO 创建用户角色DAO实例
func NewUserRoleDAO(db *gorm.DB) *UserRoleDAO {
	return &UserRoleDAO{db: db}
}

// Upsert 写入或更新用户角色
func (d *UserRoleDAO) Upsert(ctx context.Context, rolePo *po.UserRole) error {
	err := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_uuid"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
		}).
		Create(rolePo).Error
	if err != nil {
		logger.Errorf("upsert user role for %s failed: %v", rolePo.UserUUID, err)
		return err
	}
	return nil
}

// FindByUserUUID 根据用户UUID查询角色
func (d *UserRoleDAO) FindByUserUUID(ctx context.Context, userUUID string) (*po.UserRole, error) {
	var role po.UserRole
	if err := d.db.WithContext(ctx).
		Where("user_uuid = ?", userUUID).
		First(&role).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Errorf("query user role for %s failed: %v", userUUID, err)
		}
		return nil, err
	}
	return &role, nil
}
