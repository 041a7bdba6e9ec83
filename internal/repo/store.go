package repo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"task-manager-api/internal/core/config"
	"task-manager-api/internal/core/database"
	"task-manager-api/internal/domain"
)

// Store 持久化网关：main 里构建后一路传下去
type Store struct {
	Users domain.UserRepository
	Tasks domain.TaskRepository
	close func(context.Context) error
}

func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Users: NewUserRepo(db),
		Tasks: NewTaskRepo(db),
		close: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}

func NewMongoStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		Users: NewMongoUserRepo(db),
		Tasks: NewMongoTaskRepo(db),
		close: client.Disconnect,
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.User{}, &domain.Task{})
}

// Open 按 driver 选择 mongo 或 gorm
func Open(ctx context.Context, c config.DB, l *zap.Logger) (*Store, error) {
	if c.Driver == "mongo" {
		client, db, err := database.NewMongo(ctx, database.MongoOpts{
			URI:            c.DSN,
			Database:       c.Name,
			MaxPoolSize:    uint64(max(0, c.MaxOpenConns)),
			ConnectTimeout: time.Duration(c.ConnectTimeoutSec) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		if c.AutoMigrate {
			if err := EnsureIndexes(ctx, db); err != nil {
				_ = client.Disconnect(ctx)
				return nil, err
			}
		}
		return NewMongoStore(client, db), nil
	}

	db, err := database.NewGorm(database.Opts{
		Driver:             c.Driver,
		DSN:                c.DSN,
		Username:           c.Username,
		Password:           c.Password,
		MaxOpenConns:       c.MaxOpenConns,
		MaxIdleConns:       c.MaxIdleConns,
		ConnMaxLifetimeMin: c.ConnMaxLifetimeMin,
		LogLevel:           c.LogLevel,
		Logger:             l,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.Driver, err)
	}
	if c.AutoMigrate {
		if err := AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}
	return NewGormStore(db), nil
}
