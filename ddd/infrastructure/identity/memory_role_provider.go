package identity

import (
	"context"
	"sync"

	"video-api/ddd/domain/gateway"
	"video-api/ddd/domain/vo"
	"video-api/pkg/errno"
)

// MemoryRoleProvider 内存角色存储（数据库未启用时的回退实现）
type MemoryRoleProvider struct {
	mu    sync.RWMutex
	roles map[string]vo.Role
}

var _ gateway.RoleProvider = (*MemoryRoleProvider)(nil)

// NewMemoryRoleProvider 创建内存角色存储
func NewMemoryRoleProvider() *MemoryRoleProvider {
	return &MemoryRoleProvider{roles: make(map[string]vo.Role)}
}

// GetRole 查询用户角色，未登记过的用户默认student
func (p *MemoryRoleProvider) GetRole(ctx context.Context, userUUID string) (vo.Role, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if role, ok := p.roles[userUUID]; ok {
		return role, nil
	}
	return vo.RoleStudent, nil
}

// SetRole 登记用户角色
func (p *MemoryRoleProvider) SetRole(ctx context.Context, userUUID string, role vo.Role) error {
	if !role.IsValid() {
		return errno.NewBizError(errno.ErrRoleInvalid, nil)
	}
	p.mu.Lock()
	p.roles[userUUID] = role
	p.mu.Unlock()
	return nil
}
