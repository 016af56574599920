// Package testutil - общие помощники для тестов с БД и Redis.
package testutil

import (
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"zengarden/internal/infrastructure/repository"
)

// NewDB открывает изолированную sqlite-базу в памяти с миграциями.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := repository.NewStore(db).AutoMigrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func NewStore(t testing.TB) (*repository.Store, *gorm.DB) {
	db := NewDB(t)
	return repository.NewStore(db), db
}

// FailWrites заставляет UPDATE по таблице падать, пока fail() возвращает true.
func FailWrites(t testing.TB, db *gorm.DB, table string, fail func() bool) {
	t.Helper()
	name := "testutil:fail_" + table + "_" + uuid.NewString()
	err := db.Callback().Update().Before("gorm:update").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table == table && fail() {
			tx.AddError(fmt.Errorf("injected %s write failure", table))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
}

// BumpVersionOnWrite перед каждым UPDATE по таблице сдвигает version у всех строк,
// пока when() возвращает true. Так CAS-запись видит чужое обновление.
func BumpVersionOnWrite(t testing.TB, db *gorm.DB, table string, when func() bool) {
	t.Helper()
	name := "testutil:bump_" + table + "_" + uuid.NewString()
	err := db.Callback().Update().Before("gorm:update").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table != table || !when() {
			return
		}
		// Та же транзакция, что и у основной записи
		if err := tx.Session(&gorm.Session{NewDB: true}).Exec("UPDATE " + table + " SET version = version + 1").Error; err != nil {
			tx.AddError(err)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
}

func NewRedis(t testing.TB) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}
