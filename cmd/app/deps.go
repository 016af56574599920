package main

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"zengarden/config"
	"zengarden/internal/domain"
	"zengarden/internal/infrastructure/repository"
	"zengarden/internal/progression"
)

func openStore(cfg config.Config) (*repository.Store, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	return repository.NewStore(db), nil
}

func multipliers(cfg config.Config) progression.Multipliers {
	return progression.Multipliers{
		domain.ModeMeditation: cfg.XPMultiplierMeditation,
		domain.ModeBreathwork: cfg.XPMultiplierBreathwork,
		domain.ModeFocus:      cfg.XPMultiplierFocus,
		domain.ModeGratitude:  cfg.XPMultiplierGratitude,
		domain.ModeCalm:       cfg.XPMultiplierCalm,
	}
}
