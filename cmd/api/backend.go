package main

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"schoolattend/internal/api"
	"schoolattend/internal/attendance"
	"schoolattend/internal/classroom"
	"schoolattend/internal/config"
	"schoolattend/internal/memstore"
	"schoolattend/internal/school"
	"schoolattend/internal/store"
	"schoolattend/internal/student"
	"schoolattend/internal/subject"
	"schoolattend/internal/teacher"
)

// backend is the set of stores the services run on.
type backend struct {
	schools    school.Store
	teachers   teacher.Store
	students   student.Store
	classes    classroom.Store
	subjects   subject.Store
	attendance attendance.Store

	redis  *store.Redis
	health map[string]api.HealthCheck
	close  func()
}

func openPostgres(ctx context.Context, cfg config.App, lg *zap.Logger) (*backend, error) {
	db, err := store.NewDB(cfg.DatabaseURL, cfg.StoreTimeout)
	if err != nil {
		// the pool retries on demand; /healthz reports the outage
		lg.Warn("postgres not reachable", zap.Error(err))
	}
	if db == nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	if cfg.AutoMigrate {
		if err := store.Migrate(ctx, db.Client, lg, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	rdb := store.NewRedis(cfg.RedisAddr)
	if !rdb.Healthy(ctx) {
		lg.Warn("redis not reachable, login limiter fails open", zap.String("addr", cfg.RedisAddr))
	}

	timeout := cfg.StoreTimeout
	return &backend{
		schools:    school.NewRepository(db.Client, timeout),
		teachers:   teacher.NewRepository(db.Client, timeout),
		students:   student.NewRepository(db.Client, timeout),
		classes:    classroom.NewRepository(db.Client, timeout),
		subjects:   subject.NewRepository(db.Client, timeout),
		attendance: attendance.NewRepository(db.Client, timeout),
		redis:      rdb,
		health: map[string]api.HealthCheck{
			"db":    db.Healthy,
			"redis": rdb.Healthy,
		},
		close: func() {
			_ = rdb.Close()
			_ = db.Close()
		},
	}, nil
}

func openMemory() *backend {
	mem := memstore.New()
	return &backend{
		schools:    mem.Schools(),
		teachers:   mem.Teachers(),
		students:   mem.Students(),
		classes:    mem.Classes(),
		subjects:   mem.Subjects(),
		attendance: mem.Attendance(),
		health: map[string]api.HealthCheck{
			"store": func(context.Context) bool { return true },
		},
		close: func() {},
	}
}
