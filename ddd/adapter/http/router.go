package http

import (
	"github.com/gin-gonic/gin"

	"video-api/ddd/application/app"
	"video-api/pkg/config"
	"video-api/pkg/middleware"
)

// Router 路由配置
type Router struct {
	pipelineApp app.PipelineApp
	userApp     app.UserApp
	cfg         *config.Config
}

// NewRouter 创建路由配置
func NewRouter(pipelineApp app.PipelineApp, userApp app.UserApp, cfg *config.Config) *Router {
	return &Router{
		pipelineApp: pipelineApp,
		userApp:     userApp,
		cfg:         cfg,
	}
}

// SetupMiddleware 设置中间件
func (r *Router) SetupMiddleware(engine *gin.Engine) {
	engine.Use(middleware.CORSMiddleware())
	engine.Use(middleware.RequestContextMiddleware())
	engine.Use(gin.Logger())
	engine.Use(gin.Recovery())
}

// SetupRoutes 设置路由
func (r *Router) SetupRoutes(engine *gin.Engine) {
	uploadController := NewUploadController(r.pipelineApp)
	statusController := NewStatusController(r.pipelineApp)

	api := engine.Group("/api")
	{
		api.POST("/upload", uploadController.Upload)
		api.GET("/status/:job_id", statusController.GetStatus)

		if r.userApp != nil {
			userController := NewUserController(r.userApp)
			users := api.Group("/users")
			users.Use(middleware.AuthMiddleware(r.cfg.Auth.JWTSecret))
			{
				users.GET("/role", userController.GetRole)
				users.PUT("/role", userController.SetRole)
			}
		}
	}

	// 健康检查路由
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "video-api",
		})
	})
}
