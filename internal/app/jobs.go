package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/abel4moyo/zimnat-api-sub003/internal/domain"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, _ := time.LoadLocation(a.appConfig.System.Location)
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	refreshSpec := a.appConfig.Rating.RefreshCron
	if refreshSpec == "" {
		refreshSpec = "@every 5m"
	}
	_, err := a.sched.AddFunc(refreshSpec, func() {
		a.SchedRefreshRateCache()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@every 10m", func() {
		a.SchedReportStalePayments()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	a.sched.Start()
}

// SchedRefreshRateCache proactively reloads the rate table snapshot so
// rating sessions never serve beyond the configured staleness window.
func (a *Application) SchedRefreshRateCache() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.rateCache.Refresh(ctx); err != nil {
		zap.L().Warn("scheduled rate cache refresh failed", zap.Error(err))
	}
}

// SchedReportStalePayments logs INITIATED payments older than the
// configured age. It only reports: resolving stuck payments is the external
// reconciliation process's job, never this core's.
func (a *Application) SchedReportStalePayments() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	age := a.appConfig.Rating.StalePaymentMinutes
	if age <= 0 {
		age = 30
	}
	cutoff := time.Now().Add(-time.Duration(age) * time.Minute)

	var stale []domain.PaymentRecord
	err := a.gormDB.
		Where("status = ? AND initiated_at < ?", domain.PaymentInitiated, cutoff).
		Order("initiated_at ASC").
		Limit(100).
		Find(&stale).Error
	if err != nil {
		zap.L().Error("stale payment scan failed", zap.Error(err))
		return
	}

	for _, rec := range stale {
		zap.L().Warn("payment stuck in INITIATED awaiting reconciliation",
			zap.String("reference", rec.PaymentReference),
			zap.String("policy", rec.PolicyNumber),
			zap.Time("initiated_at", rec.InitiatedAt))
	}
}
