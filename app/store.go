package app

import (
	"context"
	"fmt"

	_ "modernc.org/sqlite"

	"backoffice/config"
	"backoffice/data/db"
	dbbasic "backoffice/data/db/basic"
	"backoffice/data/store"
	boltstore "backoffice/data/store/bolt"
	"backoffice/data/store/memory"
	mongostore "backoffice/data/store/mongo"
	sqlitestore "backoffice/data/store/sqlite"
)

// Collection 名称
const (
	CollNotes           = "notes"
	CollProjects        = "projects"
	CollClientCharges   = "client_charges"
	CollPartnerPayments = "partner_payments"
	CollPartners        = "partners"
	CollUsers           = "users"
)

// backend 按驱动打开集合，并提供健康检查与关闭
type backend struct {
	open   func(ctx context.Context, name string) (store.ICollection, error)
	ping   func(ctx context.Context) error
	close  func(ctx context.Context) error
	driver string
}

func openBackend(ctx context.Context, cfg config.StoreConfig) (*backend, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		return &backend{
			driver: config.DriverMemory,
			open: func(_ context.Context, name string) (store.ICollection, error) {
				return memory.NewCollection(name), nil
			},
		}, nil

	case config.DriverSQLite:
		database, err := dbbasic.New(db.DBConfig{Driver: "sqlite", Database: cfg.SQLitePath})
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		return &backend{
			driver: cfg.Driver,
			open: func(ctx context.Context, name string) (store.ICollection, error) {
				return sqlitestore.NewCollection(ctx, database, name)
			},
			ping:  database.Ping,
			close: func(context.Context) error { return database.Close() },
		}, nil

	case config.DriverBolt:
		bdb, err := boltstore.Open(cfg.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("open bolt %s: %w", cfg.BoltPath, err)
		}
		return &backend{
			driver: cfg.Driver,
			open: func(_ context.Context, name string) (store.ICollection, error) {
				return boltstore.NewCollection(bdb, name)
			},
			close: func(context.Context) error { return bdb.Close() },
		}, nil

	case config.DriverMongo:
		client, err := mongostore.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		database := client.Database(cfg.MongoDatabase)
		return &backend{
			driver: cfg.Driver,
			open: func(ctx context.Context, name string) (store.ICollection, error) {
				return mongostore.NewCollection(ctx, database, name)
			},
			ping:  func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close: client.Disconnect,
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func (b *backend) Ping(ctx context.Context) error {
	if b.ping == nil {
		return nil
	}
	return b.ping(ctx)
}

func (b *backend) Close(ctx context.Context) error {
	if b.close == nil {
		return nil
	}
	return b.close(ctx)
}
