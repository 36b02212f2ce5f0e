package http

import (
	"github.com/gin-gonic/gin"

	"video-api/ddd/application/app"
	"video-api/pkg/restapi"
)

// StatusController 作业状态查询控制器
type StatusController struct {
	pipelineApp app.PipelineApp
}

// NewStatusController 创建状态控制器
func NewStatusController(pipelineApp app.PipelineApp) *StatusController {
	return &StatusController{pipelineApp: pipelineApp}
}

// GetStatus 查询作业状态快照
func (c *StatusController) GetStatus(ctx *gin.Context) {
	resp, err := c.pipelineApp.GetJobStatus(ctx.Request.Context(), ctx.Param("job_id"))
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, resp)
}
