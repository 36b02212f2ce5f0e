package manager

import (
	"fmt"
	"sync"

	"gorm.io/gorm"

	"video-api/pkg/config"
	"video-api/pkg/logger"
)

// Resource 外部资源（数据库、Redis、MinIO、Kafka等）的生命周期
type Resource interface {
	MustOpen()
	Close()
}

// ResourcePlugin 资源插件，通过init注册
type ResourcePlugin interface {
	Name() string
	MustCreateResource() Resource
}

// Component 业务组件（Worker池、消费者等后台单元）
type Component interface {
	Start() error
	Stop() error
	GetName() string
}

// ComponentPlugin 组件插件，通过init注册
type ComponentPlugin interface {
	Name() string
	MustCreateComponent(deps *Dependencies) Component
}

// Dependencies 依赖注入容器；具体类型在使用方断言
type Dependencies struct {
	DB     *gorm.DB
	Config *config.Config

	Store   interface{} // repo.JobStore
	Queue   interface{} // queue.JobQueue
	Events  interface{} // gateway.JobEventPublisher
	Storage interface{} // gateway.StorageGateway

	PipelineApp interface{} // app.PipelineApp
}

var (
	mu               sync.Mutex
	resourcePlugins  []ResourcePlugin
	componentPlugins []ComponentPlugin
	openedResources  []Resource
	startedComponent []Component
)

// RegisterResourcePlugin 注册资源插件
func RegisterResourcePlugin(p ResourcePlugin) {
	if p == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	resourcePlugins = append(resourcePlugins, p)
}

// RegisterComponentPlugin 注册组件插件
func RegisterComponentPlugin(p ComponentPlugin) {
	if p == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	componentPlugins = append(componentPlugins, p)
}

// MustInitResources 按注册顺序初始化所有资源
func MustInitResources() {
	mu.Lock()
	defer mu.Unlock()
	for _, p := range resourcePlugins {
		r := p.MustCreateResource()
		if r == nil {
			panic(fmt.Sprintf("resource plugin %s returned nil resource", p.Name()))
		}
		r.MustOpen()
		openedResources = append(openedResources, r)
		logger.Infof("Resource opened name=%s", p.Name())
	}
}

// CloseResources 逆序关闭所有资源
func CloseResources() {
	mu.Lock()
	defer mu.Unlock()
	for i := len(openedResources) - 1; i >= 0; i-- {
		openedResources[i].Close()
	}
	openedResources = nil
}

// MustInitComponents 创建并启动所有组件
func MustInitComponents(deps *Dependencies) {
	mu.Lock()
	defer mu.Unlock()
	for _, p := range componentPlugins {
		c := p.MustCreateComponent(deps)
		if c == nil {
			continue
		}
		if err := c.Start(); err != nil {
			panic(fmt.Sprintf("failed to start component %s: %v", c.GetName(), err))
		}
		startedComponent = append(startedComponent, c)
		logger.Infof("Component started name=%s", c.GetName())
	}
}

// Shutdown 逆序停止所有组件
func Shutdown() {
	mu.Lock()
	defer mu.Unlock()
	for i := len(startedComponent) - 1; i >= 0; i-- {
		c := startedComponent[i]
		if err := c.Stop(); err != nil {
			logger.Warnf("Component stop error name=%s error=%v", c.GetName(), err)
		}
	}
	startedComponent = nil
}
