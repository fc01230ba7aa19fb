package app

import (
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/abel4moyo/zimnat-api-sub003/config"
	"github.com/abel4moyo/zimnat-api-sub003/internal/ledger"
	"github.com/abel4moyo/zimnat-api-sub003/internal/rating"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// RatingProvider provides the premium rating engine
type RatingProvider interface {
	Rating() *rating.Engine
}

// LedgerProvider provides the payment ledger service
type LedgerProvider interface {
	Ledger() *ledger.Service
}

// AppContext combines the provider interfaces for full application context.
// Services should depend on specific providers or this combined interface.
type AppContext interface {
	DBProvider
	ConfigProvider
	SchedulerProvider
	RatingProvider
	LedgerProvider

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
}
