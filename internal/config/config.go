package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// Provider 取值。
const (
	ProviderHTTP   = "http"
	ProviderArk    = "ark"
	ProviderOpenAI = "openai"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	AI        AIConfig
	Embedding EmbeddingConfig
	Portfolio PortfolioConfig
	Metrics   MetricsConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	embedding, err := loadEmbeddingConfig()
	if err != nil {
		return nil, err
	}

	metrics, err := loadMetricsConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		Log:       logCfg,
		AI:        ai,
		Embedding: embedding,
		Portfolio: PortfolioConfig{File: strings.TrimSpace(os.Getenv("PORTFOLIO_FILE"))},
		Metrics:   metrics,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string
	Format string
}

func loadLogConfig() (LogConfig, error) {
	level := strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info"))
	switch level {
	case "debug", "info", "warn", "error":
	default:
		return LogConfig{}, fmt.Errorf("invalid LOG_LEVEL value %q", level)
	}

	format := strings.ToLower(getEnvOrDefault("LOG_FORMAT", "text"))
	if format != "text" && format != "json" {
		return LogConfig{}, fmt.Errorf("invalid LOG_FORMAT value %q", format)
	}

	return LogConfig{Level: level, Format: format}, nil
}

// AIConfig 描述大模型网关相关配置。
type AIConfig struct {
	Provider         string
	LLMURL           string
	Timeout          time.Duration
	ExtractMaxTokens int

	ArkAPIKey    string
	ArkAccessKey string
	ArkSecretKey string
	ArkModel     string
	ArkBaseURL   string
	ArkRegion    string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
}

// UsesChatModel 表示是否通过 eino ChatModel 访问模型，而不是直连 HTTP 网关。
func (c AIConfig) UsesChatModel() bool {
	return c.Provider == ProviderArk || c.Provider == ProviderOpenAI
}

// Enabled 表示所选 provider 是否提供了必需的凭证。
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderArk:
		return c.ArkModel != "" && (c.ArkAPIKey != "" || (c.ArkAccessKey != "" && c.ArkSecretKey != ""))
	case ProviderOpenAI:
		return c.OpenAIModel != "" && c.OpenAIAPIKey != ""
	default:
		return c.LLMURL != ""
	}
}

// NewChatModel 使用配置创建一个 eino 模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.BaseChatModel, error) {
	if !c.UsesChatModel() {
		return nil, fmt.Errorf("provider %q does not use a chat model", c.Provider)
	}
	if !c.Enabled() {
		return nil, fmt.Errorf("%s credentials or model missing", c.Provider)
	}

	timeout := c.Timeout
	switch c.Provider {
	case ProviderArk:
		return ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:   c.ArkBaseURL,
			Region:    c.ArkRegion,
			APIKey:    c.ArkAPIKey,
			AccessKey: c.ArkAccessKey,
			SecretKey: c.ArkSecretKey,
			Model:     c.ArkModel,
			Timeout:   &timeout,
		})
	default:
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:  c.OpenAIAPIKey,
			Model:   c.OpenAIModel,
			BaseURL: c.OpenAIBaseURL,
			Timeout: timeout,
		})
	}
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("LLM_PROVIDER", ProviderHTTP))
	switch provider {
	case ProviderHTTP, ProviderArk, ProviderOpenAI:
	default:
		return AIConfig{}, fmt.Errorf("invalid LLM_PROVIDER value %q", provider)
	}

	timeout, err := parseDurationEnv("LLM_TIMEOUT", 10*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens := 256
	if override, err := parseOptionalIntEnv("EXTRACT_MAX_TOKENS"); err != nil {
		return AIConfig{}, err
	} else if override != nil && *override > 0 {
		maxTokens = *override
	}

	return AIConfig{
		Provider:         provider,
		LLMURL:           strings.TrimRight(getEnvOrDefault("LLM_URL", "http://localhost:8100"), "/"),
		Timeout:          timeout,
		ExtractMaxTokens: maxTokens,

		ArkAPIKey:    strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		ArkAccessKey: strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		ArkSecretKey: strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		ArkModel:     strings.TrimSpace(os.Getenv("ARK_MODEL")),
		ArkBaseURL:   getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		ArkRegion:    getEnvOrDefault("ARK_REGION", "cn-beijing"),

		OpenAIAPIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIModel:   getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
	}, nil
}

// EmbeddingConfig 描述向量服务配置。
type EmbeddingConfig struct {
	URL        string
	EmbedPath  string
	UpsertPath string
	SearchPath string
	Model      string
	// SearchEnabled 开启后组合选择会优先走向量检索，失败时回退到静态列表。
	SearchEnabled bool
}

func loadEmbeddingConfig() (EmbeddingConfig, error) {
	enabled, err := parseBoolEnv("EMBEDDING_SEARCH_ENABLED", false)
	if err != nil {
		return EmbeddingConfig{}, err
	}

	return EmbeddingConfig{
		URL:           strings.TrimRight(getEnvOrDefault("EMBEDDING_URL", "http://localhost:8001"), "/"),
		EmbedPath:     getEnvOrDefault("EMBEDDING_EMBED_PATH", "/v1/embeddings"),
		UpsertPath:    getEnvOrDefault("EMBEDDING_UPSERT_PATH", "/v1/upsert"),
		SearchPath:    getEnvOrDefault("EMBEDDING_SEARCH_PATH", "/v1/search"),
		Model:         strings.TrimSpace(os.Getenv("EMBEDDING_MODEL")),
		SearchEnabled: enabled,
	}, nil
}

// PortfolioConfig 描述组合目录来源。
type PortfolioConfig struct {
	File string
}

// MetricsConfig 描述 Prometheus 暴露方式。
type MetricsConfig struct {
	Enabled bool
	Path    string
}

func loadMetricsConfig() (MetricsConfig, error) {
	enabled, err := parseBoolEnv("METRICS_ENABLED", true)
	if err != nil {
		return MetricsConfig{}, err
	}

	path := getEnvOrDefault("METRICS_PATH", "/metrics")
	if !strings.HasPrefix(path, "/") {
		return MetricsConfig{}, fmt.Errorf("invalid METRICS_PATH value %q", path)
	}

	return MetricsConfig{Enabled: enabled, Path: path}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

// parseDurationEnv 接受 Go duration（"15s"）或纯秒数（"15"）。
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	if seconds, err := strconv.ParseFloat(raw, 64); err == nil {
		if seconds <= 0 {
			return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
		}
		return time.Duration(seconds * float64(time.Second)), nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
	}
	return val, nil
}
