package providers

import "resumeflow/internal/config"

func testConfig(vision, structured string) config.Config {
	return config.Config{VisionProviders: vision, StructuredProviders: structured, ProviderTimeoutSecond: 5}
}
