package db

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Options struct {
	// Debug logs every SQL statement.
	Debug bool
	Log   *zap.Logger
}

func OpenGorm(dsn string, opts Options) (*gorm.DB, error) {
	return OpenGormWithDialector(postgres.Open(dsn), opts)
}

// OpenGormWithDialector opens gorm on any dialector and applies the pool settings.
func OpenGormWithDialector(dial gorm.Dialector, opts Options) (*gorm.DB, error) {
	mode := logger.Warn
	if opts.Debug {
		mode = logger.Info
	}
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(mode),
		// duplicate keys surface as gorm.ErrDuplicatedKey
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
	db, err := gorm.Open(dial, cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	if opts.Log != nil {
		opts.Log.Info("gorm: connected", zap.String("dialect", dial.Name()))
	}
	return db, nil
}
