package observability

import (
	"os"

	pyroscope "github.com/grafana/pyroscope-go"
)

// StartProfiling 启动持续性能剖析；未配置服务端地址时为空操作。
// 环境变量 PYROSCOPE_SERVER_ADDRESS 优先于配置项。
func StartProfiling(appName, serverAddress string) {
	addr := os.Getenv("PYROSCOPE_SERVER_ADDRESS")
	if addr == "" {
		addr = serverAddress
	}
	if addr == "" {
		return
	}

	_, _ = pyroscope.Start(pyroscope.Config{
		ApplicationName: appName,
		ServerAddress:   addr,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
}
