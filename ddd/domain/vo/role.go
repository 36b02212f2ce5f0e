package vo

// Role 平台用户角色，由外部身份服务登记
type Role string

const (
	// RoleStudent 学生
	RoleStudent Role = "student"
	// RoleAdmin 管理员
	RoleAdmin Role = "admin"
)

// IsValid 检查角色是否有效
func (r Role) IsValid() bool {
	return r == RoleStudent || r == RoleAdmin
}

// String 返回角色字符串
func (r Role) String() string {
	return string(r)
}
