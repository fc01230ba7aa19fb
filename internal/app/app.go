package app

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/abel4moyo/zimnat-api-sub003/config"
	"github.com/abel4moyo/zimnat-api-sub003/internal/domain"
	"github.com/abel4moyo/zimnat-api-sub003/internal/ledger"
	"github.com/abel4moyo/zimnat-api-sub003/internal/orchestrator"
	"github.com/abel4moyo/zimnat-api-sub003/internal/ratetable"
	"github.com/abel4moyo/zimnat-api-sub003/internal/rating"
)

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	sched     *cron.Cron
	bus       EventBus.Bus
	node      *snowflake.Node

	rateRepo  *ratetable.GormRepository
	rateCache *ratetable.Cache
	engine    *rating.Engine
	payments  *ledger.Service
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ RatingProvider    = (*Application)(nil)
	_ LedgerProvider    = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

func (a *Application) Init(cfg *config.AppConfig) {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	// Initialize zap logger
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	} else {
		logger, err = zapConfig.Build(zap.AddCaller(), zap.AddCallerSkip(1))
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)

	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	a.gormDB = getDatabase(cfg.Database)
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	if err := a.MigrateDB(false); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
	}

	a.checkRateCatalog()

	a.bus = EventBus.New()
	a.node, err = snowflake.NewNode(cfg.Rating.NodeID)
	if err != nil {
		zap.S().Errorf("snowflake node init failed: %v", err)
		a.node, _ = snowflake.NewNode(1)
	}

	a.rateRepo = ratetable.NewGormRepository(a.gormDB)
	a.rateCache = ratetable.NewCache(a.rateRepo, time.Duration(cfg.Rating.CacheTTL)*time.Second)
	a.engine = rating.NewEngineWithProvider(func(ctx context.Context) (ratetable.Repository, error) {
		return a.rateCache.Current(ctx)
	})
	a.payments = ledger.NewService(ledger.NewGormRepository(a.gormDB), a.bus, a.node)

	a.subscribeStatusEvents()
	a.initJob()
}

func getDatabase(cfg config.DBConfig) *gorm.DB {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		cfg.Host, cfg.Port, cfg.User, cfg.Passwd, cfg.Name)
	logLevel := gormlogger.Warn
	if cfg.Debug {
		logLevel = gormlogger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		zap.S().Panicf("database connect failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.SetMaxOpenConns(cfg.MaxConn)
		sqlDB.SetMaxIdleConns(cfg.IdleConn)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}
	return db
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	if track {
		if err := a.gormDB.Debug().Migrator().AutoMigrate(domain.Tables...); err != nil {
			zap.S().Error(err)
		}
	} else {
		if err := a.gormDB.Migrator().AutoMigrate(domain.Tables...); err != nil {
			zap.S().Error(err)
		}
	}
	return nil
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

func (a *Application) InitDb() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	err := a.gormDB.Migrator().AutoMigrate(domain.Tables...)
	if err != nil {
		zap.S().Error(err)
	}
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

// Bus returns the in-process event bus
func (a *Application) Bus() EventBus.Bus {
	return a.bus
}

// RateCache returns the rate table snapshot cache
func (a *Application) RateCache() *ratetable.Cache {
	return a.rateCache
}

// Rating returns the premium rating engine
func (a *Application) Rating() *rating.Engine {
	return a.engine
}

// Ledger returns the payment ledger service
func (a *Application) Ledger() *ledger.Service {
	return a.payments
}

// NewOrchestrator wires a payment orchestrator against the given external
// collaborators. The policy source and gateway adapters live outside this
// core and are supplied by the hosting layer.
func (a *Application) NewOrchestrator(policies orchestrator.PolicySource, gateway orchestrator.GatewayAdapter) *orchestrator.Orchestrator {
	return orchestrator.New(policies, gateway, a.engine, a.payments, orchestrator.Config{
		AllowUnresolvedPolicy: a.appConfig.Rating.FailOpenPolicyLookup,
		GatewayTimeout:        30 * time.Second,
	})
}

// subscribeStatusEvents logs committed payment transitions from the bus.
func (a *Application) subscribeStatusEvents() {
	err := a.bus.Subscribe(ledger.TopicPaymentStatus, func(ev ledger.StatusEvent) {
		zap.L().Debug("payment status event",
			zap.String("reference", ev.PaymentReference),
			zap.String("from", ev.OldStatus),
			zap.String("to", ev.NewStatus))
	})
	if err != nil {
		zap.S().Errorf("subscribe payment status events: %v", err)
	}
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	_ = zap.L().Sync()
}
