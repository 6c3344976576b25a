package config

import (
	"fmt"
	"time"
)

// Config is everything the studio reads from the environment
type Config struct {
	OpenAIAPIKey  string
	OpenAIBaseURL string
	TextModel     string

	TTSProvider       string
	TTSModel          string
	TTSVoice          string
	TTSSpeed          float64
	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string
	ElevenLabsProxy   string
	NarrationLeadIn   time.Duration
	NarrationGap      time.Duration

	ClientSecretsFile string
	TokenFile         string
	PrivacyStatus     string
	CategoryID        string
	OAuthCallbackPort int

	OutputDir          string
	ProfilesFile       string
	FontPaths          []string
	BackgroundMusic    string
	UseGPU             bool
	MuxStrategies      []string
	ReconcileTolerance time.Duration

	MongoURI      string
	MongoDatabase string
	SlackWebhook  string

	Port     string
	Timezone string
}

// Load reads the configuration from the process environment
func Load() *Config {
	return &Config{
		OpenAIAPIKey:  GetEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: GetEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		TextModel:     GetEnv("OPENAI_TEXT_MODEL", "gpt-4o-mini"),

		TTSProvider:       GetEnv("TTS_PROVIDER", "openai"),
		TTSModel:          GetEnv("OPENAI_TTS_MODEL", "tts-1"),
		TTSVoice:          GetEnv("OPENAI_TTS_VOICE", "alloy"),
		TTSSpeed:          GetEnvFloat("TTS_SPEED", 0.9),
		ElevenLabsAPIKey:  GetEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID: GetEnv("ELEVENLABS_VOICE_ID", ""),
		ElevenLabsProxy:   GetEnv("ELEVENLABS_PROXY", ""),
		NarrationLeadIn:   GetEnvDuration("NARRATION_LEAD_IN", 500*time.Millisecond),
		NarrationGap:      GetEnvDuration("NARRATION_GAP", 250*time.Millisecond),

		ClientSecretsFile: GetEnv("YOUTUBE_CLIENT_SECRETS_FILE", "./client_secret.json"),
		TokenFile:         GetEnv("YOUTUBE_TOKEN_FILE", "./token.json"),
		PrivacyStatus:     GetEnv("YOUTUBE_PRIVACY", "unlisted"),
		CategoryID:        GetEnv("YOUTUBE_CATEGORY_ID", "25"),
		OAuthCallbackPort: GetEnvInt("OAUTH_CALLBACK_PORT", 8089),

		OutputDir:          GetEnv("OUTPUT_DIR", "./maro_content"),
		ProfilesFile:       GetEnv("PROFILES_FILE", "./config/profiles.yaml"),
		FontPaths:          GetEnvList("FONT_PATHS", nil),
		BackgroundMusic:    GetEnv("BACKGROUND_MUSIC", ""),
		UseGPU:             GetEnvBool("USE_GPU", false),
		MuxStrategies:      GetEnvList("MUX_STRATEGIES", nil),
		ReconcileTolerance: GetEnvDuration("RECONCILE_TOLERANCE", 5*time.Second),

		MongoURI:      GetEnv("MONGO_URI", ""),
		MongoDatabase: GetEnv("MONGO_DATABASE", "maro"),
		SlackWebhook:  GetEnv("SLACK_WEBHOOK_URL", ""),

		Port:     GetEnv("PORT", "8087"),
		Timezone: GetEnv("TIMEZONE", "Asia/Seoul"),
	}
}

// Location resolves the configured timezone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ValidateForGeneration checks what script generation and narration need
func (c *Config) ValidateForGeneration() error {
	if c.OpenAIAPIKey == "" && c.TTSProvider == "openai" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.TTSProvider == "elevenlabs" && (c.ElevenLabsAPIKey == "" || c.ElevenLabsVoiceID == "") {
		return fmt.Errorf("ELEVENLABS_API_KEY and ELEVENLABS_VOICE_ID are required for the elevenlabs provider")
	}
	return nil
}
