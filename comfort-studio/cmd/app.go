package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"maro_automation/comfort-studio/clients"
	"maro_automation/comfort-studio/config"
	"maro_automation/comfort-studio/engine"
	"maro_automation/comfort-studio/models"
	"maro_automation/comfort-studio/notify"
	"maro_automation/comfort-studio/pipeline"
	"maro_automation/comfort-studio/script"
	"maro_automation/comfort-studio/speech"
	"maro_automation/comfort-studio/store"
	"maro_automation/comfort-studio/utils"
	"maro_automation/comfort-studio/youtube"
)

// app holds the configuration shared by every command and builds the
// components on demand
type app struct {
	env    *config.Config
	studio *models.StudioConfig
	logger *logrus.Logger
	runner utils.CommandRunner
}

func newApp() (*app, error) {
	logger := config.NewLogger()
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	config.LoadEnv(logger)

	env := config.Load()
	if profilesFile != "" {
		env.ProfilesFile = profilesFile
	}
	if outputDir != "" {
		env.OutputDir = outputDir
	}

	studio, err := models.LoadConfig(env.ProfilesFile)
	if err != nil {
		return nil, err
	}
	if env.BackgroundMusic != "" {
		studio.Video.BackgroundMusic = env.BackgroundMusic
	}
	if env.UseGPU {
		studio.Video.UseGPU = true
	}

	return &app{env: env, studio: studio, logger: logger, runner: utils.ExecRunner{}}, nil
}

func (a *app) retry(name string) clients.RetryConfig {
	cfg := clients.DefaultRetryConfig()
	cfg.Logger = a.logger
	cfg.Name = name
	return cfg
}

func (a *app) scripts() (*script.Registry, error) {
	if a.env.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for script generation")
	}
	completer := script.NewOpenAIClient(a.env.OpenAIAPIKey, a.env.OpenAIBaseURL, a.env.TextModel, a.retry("openai-chat"), a.logger)
	return script.NewRegistry(completer, a.studio, script.Options{Logger: a.logger})
}

func (a *app) writer() *store.FileWriter {
	return store.NewFileWriter(a.env.OutputDir, a.logger)
}

func (a *app) narrator() (*speech.Synthesizer, error) {
	var provider speech.Provider
	voice := a.env.TTSVoice
	switch a.env.TTSProvider {
	case "openai", "":
		provider = speech.NewOpenAITTS(a.env.OpenAIAPIKey, a.env.OpenAIBaseURL, a.env.TTSModel, a.retry("openai-tts"), a.logger)
	case "elevenlabs":
		provider = speech.NewElevenLabs(a.env.ElevenLabsAPIKey, a.env.ElevenLabsVoiceID, a.env.ElevenLabsProxy, a.retry("elevenlabs"), a.logger)
		voice = a.env.ElevenLabsVoiceID
	default:
		return nil, fmt.Errorf("unknown TTS_PROVIDER %q", a.env.TTSProvider)
	}
	return speech.NewSynthesizer(provider, a.runner, a.logger, speech.Options{
		Voice:  voice,
		Speed:  a.env.TTSSpeed,
		LeadIn: a.env.NarrationLeadIn,
		Gap:    a.env.NarrationGap,
	}), nil
}

func (a *app) font() (*engine.LoadedFont, error) {
	return engine.NewFontChain(a.env.FontPaths, a.logger).Resolve()
}

// publisher authorizes against YouTube. interactive allows the browser
// consent flow when no token is cached.
func (a *app) publisher(ctx context.Context, interactive bool) (*youtube.Uploader, error) {
	auth, err := a.authenticator()
	if err != nil {
		return nil, err
	}
	client, err := auth.Client(ctx, interactive)
	if err != nil {
		return nil, err
	}
	return youtube.NewUploader(ctx, client, a.logger)
}

func (a *app) authenticator() (*youtube.Authenticator, error) {
	return youtube.NewAuthenticator(a.env.ClientSecretsFile, youtube.NewTokenStore(a.env.TokenFile), a.env.OAuthCallbackPort, a.logger)
}

// history connects to MongoDB when configured. The returned close func is
// never nil.
func (a *app) history(ctx context.Context) (*store.MongoStore, func(), error) {
	if a.env.MongoURI == "" {
		return nil, func() {}, nil
	}
	mongoStore, err := store.NewMongoStore(ctx, a.env.MongoURI, a.env.MongoDatabase, a.logger)
	if err != nil {
		return nil, func() {}, err
	}
	return mongoStore, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoStore.Close(closeCtx); err != nil {
			a.logger.WithError(err).Warn("failed to close MongoDB client")
		}
	}, nil
}

type pipelineOptions struct {
	scripts     pipeline.ScriptWriter
	upload      bool
	interactive bool
	onStage     func(runID, stage string)
}

// wiredPipeline is a pipeline plus the history store it writes to, which is
// nil without MONGO_URI
type wiredPipeline struct {
	pipeline *pipeline.Pipeline
	history  *store.MongoStore
	close    func()
}

// records prefers the MongoDB history and falls back to the record files
func (a *app) records(history *store.MongoStore) store.Repository {
	if history != nil {
		return history
	}
	return a.writer()
}

// pipeline wires every stage. close is never nil.
func (a *app) pipeline(ctx context.Context, opts pipelineOptions) (*wiredPipeline, error) {
	if err := utils.ValidateFFmpegInstalled(); err != nil {
		return nil, err
	}
	if err := a.env.ValidateForGeneration(); err != nil {
		return nil, err
	}

	scripts := opts.scripts
	if scripts == nil {
		registry, err := a.scripts()
		if err != nil {
			return nil, err
		}
		scripts = registry
	}
	narrator, err := a.narrator()
	if err != nil {
		return nil, err
	}
	f, err := a.font()
	if err != nil {
		return nil, err
	}
	muxer, err := engine.NewMuxer(a.runner, a.logger, a.env.MuxStrategies)
	if err != nil {
		return nil, err
	}

	stages := pipeline.Stages{
		Scripts:    scripts,
		Narrator:   narrator,
		Cards:      engine.NewCardRenderer(f, a.studio.Video),
		Video:      engine.NewVideoEditor(a.studio.Video, a.runner, a.logger),
		Thumbnails: engine.NewThumbnailRenderer(f, a.studio.Channel),
		Muxer:      muxer,
		Writer:     a.writer(),
		Notifier:   notify.NewSlack(a.env.SlackWebhook, a.logger),
	}

	if opts.upload {
		uploader, err := a.publisher(ctx, opts.interactive)
		if err != nil {
			return nil, fmt.Errorf("YouTube upload unavailable: %w", err)
		}
		stages.Publisher = uploader
	}

	mongoStore, closeHistory, err := a.history(ctx)
	if err != nil {
		return nil, err
	}
	if mongoStore != nil {
		stages.History = mongoStore
	}

	p, err := pipeline.New(stages, pipeline.Options{
		Config:     a.studio,
		Tolerance:  a.env.ReconcileTolerance,
		CategoryID: a.env.CategoryID,
		Logger:     a.logger,
		OnStage:    opts.onStage,
	})
	if err != nil {
		closeHistory()
		return nil, err
	}
	return &wiredPipeline{pipeline: p, history: mongoStore, close: closeHistory}, nil
}

// privacy falls back to YOUTUBE_PRIVACY
func (a *app) privacy(flag string) string {
	if flag != "" {
		return flag
	}
	return a.env.PrivacyStatus
}

// location is TIMEZONE, or the local zone when it does not parse
func (a *app) location() *time.Location {
	loc, err := a.env.Location()
	if err != nil {
		a.logger.WithError(err).Warn("falling back to local time zone")
		return time.Local
	}
	return loc
}
