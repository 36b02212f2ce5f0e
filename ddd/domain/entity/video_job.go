package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"video-api/ddd/domain/vo"
)

// VideoJobEntity 视频转码作业实体。
// 状态只允许 queued→processing→{completed,failed}；重试产生的
// processing→queued 为内部转换，ExternalStatus 对外呈现 processing。
type VideoJobEntity struct {
	id               string
	filename         string
	sourceKey        string
	status           vo.JobStatus
	progress         int
	formats          []string
	completedFormats []string
	attemptCount     int
	maxAttempts      int
	lastError        string
	createdAt        time.Time
	updatedAt        time.Time
	finishedAt       *time.Time
}

// NewVideoJobEntity 创建新作业（入口端调用，状态为queued）
func NewVideoJobEntity(filename, sourceKey string, formats []string, maxAttempts int) *VideoJobEntity {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	now := time.Now()
	return &VideoJobEntity{
		id:          uuid.NewString()[:8],
		filename:    filename,
		sourceKey:   sourceKey,
		status:      vo.JobStatusQueued,
		progress:    0,
		formats:     append([]string(nil), formats...),
		maxAttempts: maxAttempts,
		createdAt:   now,
		updatedAt:   now,
	}
}

// RestoreVideoJobEntity 从持久化记录还原实体
func RestoreVideoJobEntity(
	id, filename, sourceKey string,
	status vo.JobStatus, progress int,
	formats, completedFormats []string,
	attemptCount, maxAttempts int,
	lastError string,
	createdAt, updatedAt time.Time,
	finishedAt *time.Time,
) *VideoJobEntity {
	return &VideoJobEntity{
		id:               id,
		filename:         filename,
		sourceKey:        sourceKey,
		status:           status,
		progress:         progress,
		formats:          append([]string(nil), formats...),
		completedFormats: append([]string(nil), completedFormats...),
		attemptCount:     attemptCount,
		maxAttempts:      maxAttempts,
		lastError:        lastError,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
		finishedAt:       finishedAt,
	}
}

// ID 获取作业ID
func (j *VideoJobEntity) ID() string {
	return j.id
}

// Filename 获取原始文件名
func (j *VideoJobEntity) Filename() string {
	return j.filename
}

// SourceKey 获取原始资产对象键
func (j *VideoJobEntity) SourceKey() string {
	return j.sourceKey
}

// Status 获取内部状态
func (j *VideoJobEntity) Status() vo.JobStatus {
	return j.status
}

// ExternalStatus 获取对外状态：重试等待期内部为queued，对外呈现processing
func (j *VideoJobEntity) ExternalStatus() vo.JobStatus {
	if j.status == vo.JobStatusQueued && j.attemptCount > 0 {
		return vo.JobStatusProcessing
	}
	return j.status
}

// Progress 获取进度（0-100）
func (j *VideoJobEntity) Progress() int {
	return j.progress
}

// Formats 获取目标格式列表
func (j *VideoJobEntity) Formats() []string {
	return append([]string(nil), j.formats...)
}

// CompletedFormats 获取已完成格式列表
func (j *VideoJobEntity) CompletedFormats() []string {
	return append([]string(nil), j.completedFormats...)
}

// HasCompletedFormat 检查某格式是否已完成
func (j *VideoJobEntity) HasCompletedFormat(name string) bool {
	for _, f := range j.completedFormats {
		if f == name {
			return true
		}
	}
	return false
}

// AttemptCount 获取失败尝试次数
func (j *VideoJobEntity) AttemptCount() int {
	return j.attemptCount
}

// MaxAttempts 获取重试上限
func (j *VideoJobEntity) MaxAttempts() int {
	return j.maxAttempts
}

// LastError 获取最近一次失败原因
func (j *VideoJobEntity) LastError() string {
	return j.lastError
}

// CreatedAt 获取创建时间
func (j *VideoJobEntity) CreatedAt() time.Time {
	return j.createdAt
}

// UpdatedAt 获取更新时间
func (j *VideoJobEntity) UpdatedAt() time.Time {
	return j.updatedAt
}

// FinishedAt 获取终态时间
func (j *VideoJobEntity) FinishedAt() *time.Time {
	return j.finishedAt
}

// IsTerminal 检查是否已到终态
func (j *VideoJobEntity) IsTerminal() bool {
	return j.status.IsTerminal()
}

// Clone 深拷贝实体，作为对外快照
func (j *VideoJobEntity) Clone() *VideoJobEntity {
	cp := *j
	cp.formats = append([]string(nil), j.formats...)
	cp.completedFormats = append([]string(nil), j.completedFormats...)
	if j.finishedAt != nil {
		t := *j.finishedAt
		cp.finishedAt = &t
	}
	return &cp
}

// MarkProcessing 标记进入处理状态
func (j *VideoJobEntity) MarkProcessing() error {
	if j.status == vo.JobStatusProcessing {
		return nil
	}
	if !j.status.CanTransitionTo(vo.JobStatusProcessing) {
		return fmt.Errorf("cannot start processing job %s in status %s", j.id, j.status)
	}
	j.status = vo.JobStatusProcessing
	j.updatedAt = time.Now()
	return nil
}

// CompleteFormat 记录一个格式完成，并按公式重算进度。
// 进度在单次尝试内单调不减；completedFormats 恒为 formats 的子集。
func (j *VideoJobEntity) CompleteFormat(name string) error {
	if j.status != vo.JobStatusProcessing {
		return fmt.Errorf("cannot complete format for job %s in status %s", j.id, j.status)
	}
	known := false
	for _, f := range j.formats {
		if f == name {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("format %s is not requested for job %s", name, j.id)
	}
	if j.HasCompletedFormat(name) {
		return nil
	}
	j.completedFormats = append(j.completedFormats, name)
	if p := 100 * len(j.completedFormats) / len(j.formats); p > j.progress {
		j.progress = p
	}
	j.updatedAt = time.Now()
	return nil
}

// Complete 标记作业完成
func (j *VideoJobEntity) Complete() error {
	if !j.status.CanTransitionTo(vo.JobStatusCompleted) {
		return fmt.Errorf("cannot complete job %s in status %s", j.id, j.status)
	}
	if len(j.completedFormats) != len(j.formats) {
		return fmt.Errorf("job %s has unfinished formats", j.id)
	}
	now := time.Now()
	j.status = vo.JobStatusCompleted
	j.progress = 100
	j.lastError = ""
	j.finishedAt = &now
	j.updatedAt = now
	return nil
}

// Fail 标记作业终态失败
func (j *VideoJobEntity) Fail(reason string) error {
	if !j.status.CanTransitionTo(vo.JobStatusFailed) && j.status != vo.JobStatusQueued {
		return fmt.Errorf("cannot fail job %s in status %s", j.id, j.status)
	}
	now := time.Now()
	j.status = vo.JobStatusFailed
	j.lastError = reason
	j.finishedAt = &now
	j.updatedAt = now
	return nil
}

// RegisterFailedAttempt 登记一次失败尝试，返回累计次数
func (j *VideoJobEntity) RegisterFailedAttempt(reason string) int {
	j.attemptCount++
	j.lastError = reason
	j.updatedAt = time.Now()
	return j.attemptCount
}

// ResetForRetry 为新一轮尝试复位：进度与已完成格式清零，内部状态回到queued
func (j *VideoJobEntity) ResetForRetry() error {
	if j.status.IsTerminal() {
		return fmt.Errorf("cannot retry job %s in terminal status %s", j.id, j.status)
	}
	j.status = vo.JobStatusQueued
	j.progress = 0
	j.completedFormats = nil
	j.updatedAt = time.Now()
	return nil
}
