package po

import "time"

// VideoJob 视频转码作业持久化对象（内存存储的旁路镜像）
type VideoJob struct {
	BaseModel
	JobID            string     `gorm:"column:job_id;type:varchar(36);uniqueIndex" json:"job_id"`
	Filename         string     `gorm:"column:filename;type:varchar(255)" json:"filename"`
	SourceKey        string     `gorm:"column:source_key;type:varchar(512)" json:"source_key"`
	Status           string     `gorm:"column:status;type:varchar(20);index" json:"status"`
	Progress         int        `gorm:"column:progress;type:int" json:"progress"`
	Formats          StringList `gorm:"column:formats;type:json" json:"formats"`
	CompletedFormats StringList `gorm:"column:completed_formats;type:json" json:"completed_formats"`
	AttemptCount     int        `gorm:"column:attempt_count;type:int;default:0" json:"attempt_count"`
	MaxAttempts      int        `gorm:"column:max_attempts;type:int;default:3" json:"max_attempts"`
	LastError        string     `gorm:"column:last_error;type:varchar(512)" json:"last_error"`
	FinishedAt       *time.Time `gorm:"column:finished_at;type:timestamp" json:"finished_at,omitempty"`
}

// TableName 指定表名
func (VideoJob) TableName() string {
	return "video_jobs"
}
