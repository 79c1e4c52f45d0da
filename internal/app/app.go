// Package app wires configuration into the concrete clients and the
// pipeline. The CLI layer supplies only the interactive pieces (progress
// rendering, closed-ticket confirmation).
package app

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/robbybarnes/zendesk-voice-summary/config"
	"github.com/robbybarnes/zendesk-voice-summary/internal/logger"
	"github.com/robbybarnes/zendesk-voice-summary/internal/openai"
	"github.com/robbybarnes/zendesk-voice-summary/internal/pipeline"
	"github.com/robbybarnes/zendesk-voice-summary/internal/retry"
	"github.com/robbybarnes/zendesk-voice-summary/internal/store"
	"github.com/robbybarnes/zendesk-voice-summary/internal/zendesk"
)

type App struct {
	Config   *config.Config
	Log      zerolog.Logger
	Store    *store.Store
	Zendesk  *zendesk.Client
	OpenAI   *openai.Client
	Location *time.Location
}

// New builds all long-lived collaborators from the configuration.
func New(cfg *config.Config) (*App, error) {
	log := logger.New(cfg.LogLevel)

	loc, err := cfg.Location()
	if err != nil {
		log.Warn().Err(err).Msg("using UTC for call timestamps")
	}

	st, err := store.New(cfg.ArtifactsDir)
	if err != nil {
		return nil, fmt.Errorf("initializing artifact store: %w", err)
	}

	zd := zendesk.New(cfg.ZendeskDomain, cfg.ZendeskEmail, cfg.ZendeskPassword, log)
	oa := openai.New(cfg.OpenAIAPIKey, loc, log)

	return &App{
		Config:   cfg,
		Log:      log,
		Store:    st,
		Zendesk:  zd,
		OpenAI:   oa,
		Location: loc,
	}, nil
}

// NewOrchestrator assembles the pipeline with the caller's interactive
// hooks.
func (a *App) NewOrchestrator(progress pipeline.Progress, confirm pipeline.ConfirmClosedFunc) *pipeline.Orchestrator {
	return pipeline.New(pipeline.Deps{
		Source:        a.Zendesk,
		Transcriber:   a.OpenAI,
		Summarizer:    a.OpenAI,
		Sink:          a.Zendesk,
		Store:         a.Store,
		ConfirmClosed: confirm,
		Progress:      progress,
		Retry: retry.Config{
			MaxAttempts: a.Config.RetryAttempts,
			Delay:       a.Config.RetryDelay,
		},
		Location: a.Location,
		Log:      a.Log,
	})
}
