package repository

import (
	"context"

	"zengarden/internal/domain"

	"gorm.io/gorm"
)

// Store объединяет репозитории, чтобы их можно было использовать внутри одной транзакции.
type Store struct {
	db       *gorm.DB
	Users    *UserRepository
	Sessions *SessionRepository
	Gardens  *GardenRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		Users:    NewUserRepository(db),
		Sessions: NewSessionRepository(db),
		Gardens:  NewGardenRepository(db),
	}
}

func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&domain.User{}, &domain.Session{}, &domain.Garden{})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
