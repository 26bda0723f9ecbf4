package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 全局配置
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	LLM     LLMConfig     `yaml:"llm"`
	Engine  EngineConfig  `yaml:"engine"`
	Voice   VoiceConfig   `yaml:"voice"`
	Redis   RedisConfig   `yaml:"redis"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// LLMConfig 出题与评分使用的生成能力配置
type LLMConfig struct {
	Provider  string            `yaml:"provider"` // "openai", "anthropic" or "none"
	Timeout   time.Duration     `yaml:"timeout"`
	OpenAI    LLMProviderConfig `yaml:"openai"`
	Anthropic LLMProviderConfig `yaml:"anthropic"`
}

// LLMProviderConfig LLM 提供商配置
type LLMProviderConfig struct {
	APIKey      string  `yaml:"api_key"`
	APIURL      string  `yaml:"api_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// EngineConfig 面试引擎的可调参数。
// 反应概率没有实验依据，保留为可配置的默认值。
type EngineConfig struct {
	DefaultCountry        string        `yaml:"default_country"`
	DefaultMaxQuestions   int           `yaml:"default_max_questions"`
	NoReactionChance      float64       `yaml:"no_reaction_chance"`
	CandidateReactChance  float64       `yaml:"candidate_reaction_chance"`
	PanelistReactChance   float64       `yaml:"panelist_reaction_chance"`
	HumanReactionChance   float64       `yaml:"human_reaction_chance"`
	HumanReactionMinTurn  int           `yaml:"human_reaction_min_turn"`
	ReactionDelayMin      time.Duration `yaml:"reaction_delay_min"`
	ReactionDelayMax      time.Duration `yaml:"reaction_delay_max"`
	ThinkingDelayMin      time.Duration `yaml:"thinking_delay_min"`
	ThinkingDelayMax      time.Duration `yaml:"thinking_delay_max"`
	ConversationWindow    int           `yaml:"conversation_window"`
	PreviousQuestionLimit int           `yaml:"previous_question_limit"`
}

type VoiceConfig struct {
	Provider string `yaml:"provider"` // "elevenlabs" or "none"
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	ModelID  string `yaml:"model_id"`
	// TranscriptionModel 浏览器端语音转写用的 OpenAI 模型，key 复用 llm.openai.api_key。
	TranscriptionModel string `yaml:"transcription_model"`
}

// RedisConfig 会话尽力持久化；Addr 为空表示关闭。
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Output string `yaml:"output"`
}

// Default 返回不依赖任何文件的默认配置（无 LLM、无持久化）。
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load 从文件加载配置
func Load(path string) (*Config, error) {
	fmt.Printf("📋 Loading config from: %s\n", path)

	// .env 只是本地开发的便利，不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Printf("⚠️  Failed to load .env: %v\n", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	fmt.Printf("✅ Config file read successfully (%d bytes)\n", len(data))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	fmt.Printf("\n📊 Configuration Summary:\n")
	fmt.Printf("   Server: %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("   LLM Provider: %s\n", cfg.LLM.Provider)
	fmt.Printf("   Voice Provider: %s\n", cfg.Voice.Provider)
	if cfg.Redis.Addr != "" {
		fmt.Printf("   Redis: %s (ttl %s)\n", cfg.Redis.Addr, cfg.Redis.TTL)
	}
	fmt.Printf("\n")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	fmt.Printf("✅ Config validation passed\n\n")

	return &cfg, nil
}

// applyEnv 用环境变量覆盖敏感信息
func (c *Config) applyEnv() {
	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		fmt.Printf("🤖 Using LLM_PROVIDER from environment: %s\n", provider)
		c.LLM.Provider = provider
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		fmt.Printf("🔑 Using OPENAI_API_KEY from environment variable\n")
		c.LLM.OpenAI.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		fmt.Printf("🔑 Using ANTHROPIC_API_KEY from environment variable\n")
		c.LLM.Anthropic.APIKey = key
	}
	if key := os.Getenv("ELEVENLABS_API_KEY"); key != "" {
		fmt.Printf("🔑 Using ELEVENLABS_API_KEY from environment variable\n")
		c.Voice.APIKey = key
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		c.Redis.Password = pw
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "none"
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 20 * time.Second
	}
	if c.LLM.OpenAI.APIURL == "" {
		c.LLM.OpenAI.APIURL = "https://api.openai.com/v1"
	}
	if c.LLM.OpenAI.Model == "" {
		c.LLM.OpenAI.Model = "gpt-4o"
	}
	if c.LLM.Anthropic.Model == "" {
		c.LLM.Anthropic.Model = "claude-haiku-4-5-20251001"
	}
	for _, p := range []*LLMProviderConfig{&c.LLM.OpenAI, &c.LLM.Anthropic} {
		if p.Temperature == 0 {
			p.Temperature = 0.7
		}
		if p.MaxTokens == 0 {
			p.MaxTokens = 800
		}
	}

	e := &c.Engine
	if e.DefaultCountry == "" {
		e.DefaultCountry = "nigeria"
	}
	if e.NoReactionChance == 0 && e.CandidateReactChance == 0 && e.PanelistReactChance == 0 {
		e.NoReactionChance = 0.60
		e.CandidateReactChance = 0.25
		e.PanelistReactChance = 0.15
	}
	if e.HumanReactionChance == 0 {
		e.HumanReactionChance = 0.70
	}
	if e.HumanReactionMinTurn == 0 {
		e.HumanReactionMinTurn = 2
	}
	if e.ReactionDelayMin == 0 && e.ReactionDelayMax == 0 {
		e.ReactionDelayMin = 400 * time.Millisecond
		e.ReactionDelayMax = 800 * time.Millisecond
	}
	if e.ThinkingDelayMin == 0 && e.ThinkingDelayMax == 0 {
		e.ThinkingDelayMin = 800 * time.Millisecond
		e.ThinkingDelayMax = 1500 * time.Millisecond
	}
	if e.ConversationWindow == 0 {
		e.ConversationWindow = 3
	}
	if e.PreviousQuestionLimit == 0 {
		e.PreviousQuestionLimit = 5
	}

	if c.Voice.Provider == "" {
		c.Voice.Provider = "none"
	}
	if c.Voice.BaseURL == "" {
		c.Voice.BaseURL = "https://api.elevenlabs.io/v1/text-to-speech"
	}
	if c.Voice.ModelID == "" {
		c.Voice.ModelID = "eleven_flash_v2_5"
	}
	if c.Voice.TranscriptionModel == "" {
		c.Voice.TranscriptionModel = "gpt-4o-transcribe"
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 24 * time.Hour
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "none":
	case "openai":
		if c.LLM.OpenAI.APIKey == "" {
			return fmt.Errorf("OpenAI API key is required (set OPENAI_API_KEY env var or config)")
		}
	case "anthropic":
		if c.LLM.Anthropic.APIKey == "" {
			return fmt.Errorf("Anthropic API key is required (set ANTHROPIC_API_KEY env var or config)")
		}
	default:
		return fmt.Errorf("unsupported LLM provider: %s", c.LLM.Provider)
	}

	e := c.Engine
	sum := e.NoReactionChance + e.CandidateReactChance + e.PanelistReactChance
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("reaction chances must sum to 1, got %.3f", sum)
	}
	if e.HumanReactionChance < 0 || e.HumanReactionChance > 1 {
		return fmt.Errorf("human_reaction_chance must be within [0,1]")
	}
	if e.ReactionDelayMax < e.ReactionDelayMin || e.ThinkingDelayMax < e.ThinkingDelayMin {
		return fmt.Errorf("delay max must not be below delay min")
	}
	if e.DefaultMaxQuestions < 0 {
		return fmt.Errorf("default_max_questions must not be negative")
	}

	if c.Voice.Provider == "elevenlabs" && c.Voice.APIKey == "" {
		return fmt.Errorf("ElevenLabs API key is required (set ELEVENLABS_API_KEY env var or config)")
	}
	return nil
}

// Addr 返回 HTTP 监听地址。
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
