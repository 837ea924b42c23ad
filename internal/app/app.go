package app

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mentorlink/mentorlink/internal/api"
	"github.com/mentorlink/mentorlink/internal/config"
	"github.com/mentorlink/mentorlink/internal/notify"
	"github.com/mentorlink/mentorlink/internal/realtime"
	"github.com/mentorlink/mentorlink/internal/session"
)

// App bundles the services every screen needs. It is constructed once at
// startup and passed by pointer to the UI models; there is no ambient state.
type App struct {
	ConfigPath string
	Config     *config.Config

	API      *api.Client
	Notices  *notify.Feed
	Session  *session.Store
	Realtime *realtime.Manager
}

// New wires the application services together from a config file.
func New(configPath string) (*App, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	// The terminal belongs to the UI; logs go to a file or nowhere.
	var logFile *os.File
	if cfg.Log.File != "" {
		logFile, err = os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		log.SetOutput(logFile)
	} else {
		log.SetOutput(io.Discard)
	}

	client, err := api.New(cfg.API.BaseURL, cfg.Timeout())
	if err != nil {
		return nil, nil, err
	}

	notices := notify.NewFeed()

	a := &App{
		ConfigPath: configPath,
		Config:     cfg,
		API:        client,
		Notices:    notices,
		Session:    session.NewStore(client, notices),
		Realtime: realtime.NewManager(realtime.Config{
			URL:        cfg.Realtime.URL,
			Jar:        client.Jar(),
			Notifier:   notices,
			MaxRetries: cfg.Realtime.MaxRetries,
			RetryBase:  cfg.Realtime.RetryBase(),
			RetryMax:   cfg.Realtime.RetryMax(),
		}),
	}

	cleanup := func() {
		a.Realtime.Close()
		if logFile != nil {
			_ = logFile.Close()
		}
	}

	return a, cleanup, nil
}
