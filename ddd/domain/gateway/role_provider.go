package gateway

import (
	"context"

	"video-api/ddd/domain/vo"
)

// RoleProvider 用户角色的窄接口。身份本身由外部身份服务签发，
// 流水线不读取全局身份状态，角色仅经由该接口存取。
type RoleProvider interface {
	GetRole(ctx context.Context, userUUID string) (vo.Role, error)
	SetRole(ctx context.Context, userUUID string, role vo.Role) error
}
