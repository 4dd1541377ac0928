package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/residency-scheduler/internal/config"
	"github.com/jakechorley/residency-scheduler/pkg/clients/gmailclient"
	"github.com/jakechorley/residency-scheduler/pkg/clients/queueclient"
	"github.com/jakechorley/residency-scheduler/pkg/clients/sheetsclient"
	"github.com/jakechorley/residency-scheduler/pkg/core/services"
	"github.com/jakechorley/residency-scheduler/pkg/db"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Env          string
	Cfg          *config.Config
	OAuthCfg     *config.OAuthClientConfig
	SheetsClient *sheetsclient.Client
	GmailClient  *gmailclient.Client
	Publisher    *queueclient.Publisher
	Database     db.Database
	Logger       *zap.Logger
	Ctx          context.Context
}

// InitGoogleClients loads the OAuth client config and creates the sheets and gmail
// clients. Only commands that talk to Google call this, so the OAuth flow never runs
// for database-only commands.
func (app *AppContext) InitGoogleClients() error {
	if app.SheetsClient != nil {
		return nil
	}

	var err error
	app.Logger.Info("Loading OAuth client configuration")
	app.OAuthCfg, err = config.LoadOAuthClientWithEnv(app.Env)
	if err != nil {
		return fmt.Errorf("failed to load OAuth client config: %w", err)
	}

	app.Logger.Info("Initializing sheets client")
	app.SheetsClient, err = sheetsclient.NewClient(app.Ctx, app.OAuthCfg, app.Env, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to create sheets client: %w", err)
	}
	app.Logger.Debug("Sheets client initialized successfully")

	// Gmail reuses the token from the sheets client
	app.Logger.Info("Initializing gmail client")
	app.GmailClient, err = gmailclient.NewClient(app.Ctx, app.OAuthCfg, app.SheetsClient.Token(), app.Cfg.GmailSender)
	if err != nil {
		return fmt.Errorf("failed to create gmail client: %w", err)
	}
	app.Logger.Debug("Gmail client initialized successfully")

	return nil
}

// InitPublisher connects to RabbitMQ when a URL is configured.
// A connection failure is logged and leaves notifications disabled.
func (app *AppContext) InitPublisher() {
	if app.Publisher != nil || app.Cfg.RabbitMQURL == "" {
		return
	}

	publisher, err := queueclient.NewPublisher(app.Cfg.RabbitMQURL, app.Cfg.NotificationQueue)
	if err != nil {
		app.Logger.Warn("Notification queue unavailable, continuing without events", zap.Error(err))
		return
	}
	app.Publisher = publisher
	app.Logger.Debug("Connected to notification queue", zap.String("queue", app.Cfg.NotificationQueue))
}

// Notifier builds the notifier from whichever channels are initialised
func (app *AppContext) Notifier() *services.Notifier {
	n := &services.Notifier{Recipients: app.Cfg.NotifyEmails}
	if app.Publisher != nil {
		n.Events = app.Publisher
	}
	if app.GmailClient != nil {
		n.Email = app.GmailClient
	}
	return n
}

// Close releases the database and queue connections
func (app *AppContext) Close() {
	if app.Publisher != nil {
		if err := app.Publisher.Close(); err != nil {
			app.Logger.Warn("Failed to close notification queue", zap.Error(err))
		}
	}
	if app.Database != nil {
		app.Database.Close()
	}
}
