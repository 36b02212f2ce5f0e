package dto

import "video-api/ddd/domain/entity"

// UploadAcceptedDTO 上传受理响应
type UploadAcceptedDTO struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

// JobStatusDTO 作业状态响应
type JobStatusDTO struct {
	ID       string   `json:"id"`
	Filename string   `json:"filename"`
	Status   string   `json:"status"`
	Progress int      `json:"progress"`
	Formats  []string `json:"formats"`
}

// NewJobStatusDto 从实体快照构建状态DTO，状态取对外投影
func NewJobStatusDto(job *entity.VideoJobEntity) *JobStatusDTO {
	return &JobStatusDTO{
		ID:       job.ID(),
		Filename: job.Filename(),
		Status:   job.ExternalStatus().String(),
		Progress: job.Progress(),
		Formats:  job.Formats(),
	}
}

// RoleDTO 用户角色响应
type RoleDTO struct {
	UserUUID string `json:"user_uuid"`
	Role     string `json:"role"`
}
