package po

// UserRole 用户角色持久化对象
type UserRole struct {
	BaseModel
	UserUUID string `gorm:"column:user_uuid;type:varchar(36);uniqueIndex" json:"user_uuid"`
	Role     string `gorm:"column:role;type:varchar(20)" json:"role"`
}

// TableName 指定表名
func (UserRole) TableName() string {
	return "user_roles"
}
