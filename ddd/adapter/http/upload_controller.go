package http

import (
	"github.com/gin-gonic/gin"

	"video-api/ddd/application/app"
	"video-api/ddd/application/cqe"
	"video-api/pkg/errno"
	"video-api/pkg/restapi"
)

// UploadController 上传入口控制器
type UploadController struct {
	pipelineApp app.PipelineApp
}

// NewUploadController 创建上传控制器
func NewUploadController(pipelineApp app.PipelineApp) *UploadController {
	return &UploadController{pipelineApp: pipelineApp}
}

// Upload 受理multipart上传，同步返回作业ID
func (c *UploadController) Upload(ctx *gin.Context) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrMissingFile, err))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrMissingFile, err))
		return
	}
	defer f.Close()

	req := &cqe.UploadVideoReq{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Content:     f,
	}

	resp, err := c.pipelineApp.SubmitUpload(ctx.Request.Context(), req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}

	restapi.Success(ctx, resp)
}
