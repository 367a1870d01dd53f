package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cabecera/ing-software-caba-itas/internal/config"
	"github.com/cabecera/ing-software-caba-itas/pkg/clients/gmailclient"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/services"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
	"github.com/cabecera/ing-software-caba-itas/pkg/locks"
	"github.com/cabecera/ing-software-caba-itas/pkg/memstore"
	"github.com/cabecera/ing-software-caba-itas/pkg/notify"
	"github.com/cabecera/ing-software-caba-itas/pkg/postgres"
	"github.com/cabecera/ing-software-caba-itas/pkg/utils"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Env      string
	Cfg      *config.Config
	Database db.Database
	// Postgres is set when the store is postgres; migrate needs it
	Postgres *postgres.DB
	Locker   db.Locker
	Notifier services.Notifier
	Runtime  services.Runtime
	Actor    model.Actor
	Logger   *zap.Logger
	Ctx      context.Context

	closers []func()
}

// NewAppContext opens the store, locker and notification channels named in cfg
func NewAppContext(ctx context.Context, env string, cfg *config.Config, actor model.Actor, logger *zap.Logger) (*AppContext, error) {
	app := &AppContext{
		Env:    env,
		Cfg:    cfg,
		Actor:  actor,
		Logger: logger,
		Ctx:    ctx,
	}

	if err := app.openDatabase(); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.openLocker(); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.buildNotifier(); err != nil {
		app.Close()
		return nil, err
	}

	app.Runtime = services.Runtime{
		Locker:   app.Locker,
		Notifier: app.Notifier,
		Logger:   logger.Named("services"),
	}

	return app, nil
}

// Close releases connections in reverse order of opening
func (app *AppContext) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		app.closers[i]()
	}
	app.closers = nil
}

func (app *AppContext) openDatabase() error {
	switch app.Cfg.Store {
	case "postgres":
		app.Logger.Info("Connecting to database")
		pg, err := postgres.NewDB(app.Ctx, app.Cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.Postgres = pg
		app.Database = pg
		app.closers = append(app.closers, pg.Close)
		app.Logger.Info("Database initialized successfully")
	default:
		app.Logger.Warn("Using in-memory store; data is lost when the process exits")
		app.Database = memstore.New()
	}
	return nil
}

func (app *AppContext) openLocker() error {
	switch app.Cfg.Lock.Backend {
	case "postgres":
		if app.Postgres == nil {
			return fmt.Errorf("postgres lock backend needs the postgres store")
		}
		app.Locker = app.Postgres
	case "redis":
		client, err := locks.ConnectRedis(app.Ctx, app.Cfg.Lock.RedisAddr, app.Cfg.Lock.RedisPass)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.closers = append(app.closers, func() { _ = client.Close() })
		app.Locker = locks.NewRedis(client, app.Cfg.Lock.TTL, app.Logger.Named("locks"))
	default:
		app.Locker = locks.NewMemory()
	}
	app.Logger.Debug("Locker ready", zap.String("backend", app.Cfg.Lock.Backend))
	return nil
}

func (app *AppContext) buildNotifier() error {
	ncfg := app.Cfg.Notifications
	addresses := notify.Addresses{Customers: app.Database, Staff: ncfg.StaffEmail}

	var channels notify.Multi
	if ncfg.Enabled(config.ChannelInbox) {
		channels = append(channels, notify.NewInbox(app.Database, nil))
	}
	if ncfg.Enabled(config.ChannelLog) {
		channels = append(channels, notify.NewLog(app.Logger))
	}
	if ncfg.Enabled(config.ChannelGmail) {
		gmail, err := app.gmailClient()
		if err != nil {
			return err
		}
		channels = append(channels, notify.NewGmail(gmail, addresses, app.Logger.Named("notify.gmail")))
	}
	if ncfg.Enabled(config.ChannelSMTP) {
		dialer := notify.NewSMTPDialer(ncfg.SMTP.Host, ncfg.SMTP.Port, ncfg.SMTP.Username, ncfg.SMTP.Password)
		channels = append(channels, notify.NewSMTP(dialer, ncfg.SMTP.From, addresses, app.Logger.Named("notify.smtp")))
	}

	app.Logger.Debug("Notification channels ready", zap.Strings("channels", ncfg.Channels))
	app.Notifier = channels
	return nil
}

// gmailClient runs the OAuth flow on first use and reuses the cached token afterwards
func (app *AppContext) gmailClient() (*gmailclient.Client, error) {
	app.Logger.Info("Loading OAuth client configuration")
	oauthCfg, err := config.LoadOAuthClientWithEnv(app.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to load OAuth client config: %w", err)
	}

	oauthConfig, err := utils.GetOAuthConfig(oauthCfg)
	if err != nil {
		return nil, err
	}
	token, err := utils.GetTokenWithFlow(app.Ctx, oauthConfig, app.Env, app.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth token: %w", err)
	}

	app.Logger.Info("Initializing gmail client")
	client, err := gmailclient.NewClient(app.Ctx, oauthCfg, token, app.Cfg.Notifications.GmailSender)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail client: %w", err)
	}
	return client, nil
}

// Plans converts the configured maintenance plans for the planning operation
func (app *AppContext) Plans() []services.MaintenancePlan {
	plans := make([]services.MaintenancePlan, 0, len(app.Cfg.MaintenancePlans))
	for _, p := range app.Cfg.MaintenancePlans {
		plans = append(plans, services.MaintenancePlan{
			CabinID:     p.CabinID,
			RRule:       p.RRule,
			Kind:        model.MaintenanceKind(p.Kind),
			Description: p.Description,
		})
	}
	return plans
}
