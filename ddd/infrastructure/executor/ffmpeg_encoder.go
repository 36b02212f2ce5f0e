package executor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"video-api/ddd/domain/entity"
	"video-api/ddd/domain/gateway"
	"video-api/ddd/domain/port"
	"video-api/pkg/config"
	"video-api/pkg/logger"
)

// FFmpegEncoder 调用本地ffmpeg实现单格式编码。
// 输入损坏类失败标注为不可恢复，其余失败按瞬时处理走重试。
type FFmpegEncoder struct {
	cfg     *config.Config
	storage gateway.StorageGateway
}

var _ port.Encoder = (*FFmpegEncoder)(nil)

// NewFFmpegEncoder 创建FFmpeg编码器
func NewFFmpegEncoder(cfg *config.Config, storage gateway.StorageGateway) *FFmpegEncoder {
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	return &FFmpegEncoder{cfg: cfg, storage: storage}
}

// Encode 拉取原始资产、编码为目标格式并上传产物
func (e *FFmpegEncoder) Encode(ctx context.Context, job *entity.VideoJobEntity, profile config.OutputFormat) error {
	if profile.Resolution == "" {
		return port.MarkUnrecoverable(fmt.Errorf("profile %s has no resolution", profile.Name))
	}

	tempDir := e.cfg.Transcode.FFmpeg.TempDir
	localInput := filepath.Join(tempDir, "inputs", fmt.Sprintf("input_%s_%s", job.ID(), filepath.Base(job.Filename())))
	localOutput := filepath.Join(tempDir, "outputs", fmt.Sprintf("%s_%s.mp4", job.ID(), profile.Name))
	if err := os.MkdirAll(filepath.Dir(localOutput), 0o755); err != nil {
		return port.MarkTransient(fmt.Errorf("create output dir: %w", err))
	}

	if err := e.storage.FetchRawAsset(ctx, job.SourceKey(), localInput); err != nil {
		return port.MarkTransient(fmt.Errorf("fetch source: %w", err))
	}
	defer os.Remove(localInput)

	timeout := e.cfg.Transcode.FFmpeg.Timeout
	encodeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := e.buildCommand(encodeCtx, localInput, localOutput, profile)
	logger.Debug("ffmpeg command", map[string]interface{}{
		"job_id":  job.ID(),
		"profile": profile.Name,
		"command": strings.Join(cmd.Args, " "),
	})

	if err := e.runCommand(cmd, job.ID(), profile.Name); err != nil {
		os.Remove(localOutput)
		return err
	}
	defer os.Remove(localOutput)

	objectKey := fmt.Sprintf("%s/%s.mp4", job.ID(), profile.Name)
	if _, err := e.storage.SaveTranscodedFile(ctx, localOutput, objectKey, "video/mp4"); err != nil {
		return port.MarkTransient(fmt.Errorf("upload output: %w", err))
	}
	return nil
}

func (e *FFmpegEncoder) runCommand(cmd *exec.Cmd, jobID, profileName string) error {
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return port.MarkTransient(fmt.Errorf("open stderr pipe: %w", err))
	}
	if err := cmd.Start(); err != nil {
		return port.MarkTransient(fmt.Errorf("start ffmpeg: %w", err))
	}

	tail := make([]string, 0, 50)
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 1024), 1024*1024)
	for scanner.Scan() {
		if len(tail) >= 50 {
			tail = tail[1:]
		}
		tail = append(tail, scanner.Text())
	}

	if err := cmd.Wait(); err != nil {
		stderrTail := strings.Join(tail, "\n")
		logger.Errorf("ffmpeg failed job_id=%s profile=%s tail_stderr=%s", jobID, profileName, stderrTail)
		if isCorruptInput(stderrTail) {
			return port.MarkUnrecoverable(fmt.Errorf("ffmpeg %s: %w", profileName, err))
		}
		return port.MarkTransient(fmt.Errorf("ffmpeg %s: %w", profileName, err))
	}
	return nil
}

// isCorruptInput 从stderr识别源文件损坏类失败，这类失败重试不会成功
func isCorruptInput(stderr string) bool {
	for _, marker := range []string{
		"Invalid data found when processing input",
		"moov atom not found",
		"could not find codec parameters",
	} {
		if strings.Contains(stderr, marker) {
			return true
		}
	}
	return false
}

func (e *FFmpegEncoder) buildCommand(ctx context.Context, inputPath, outputPath string, profile config.OutputFormat) *exec.Cmd {
	ff := e.cfg.Transcode.FFmpeg

	args := []string{
		"-i", inputPath,
		"-nostats",
		"-c:v", ff.VideoCodec,
		"-preset", ff.Preset,
		"-s", profile.Resolution,
	}
	if profile.Bitrate != "" {
		args = append(args, "-b:v", profile.Bitrate)
	}
	if ff.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(ff.Threads))
	}
	args = append(args,
		"-c:a", "aac",
		"-b:a", "128k",
		"-y",
		outputPath,
	)
	return exec.CommandContext(ctx, ff.BinaryPath, args...)
}
