package main

import (
	"context"
	"fmt"

	config "github.com/NordCoder/Tubely/internal/config/api-gateway"
	"github.com/NordCoder/Tubely/internal/domain/identity"
	"github.com/NordCoder/Tubely/internal/domain/outbox"
	"github.com/NordCoder/Tubely/internal/domain/relation"
	pg "github.com/NordCoder/Tubely/internal/repository/postgres"
	"github.com/NordCoder/Tubely/internal/repository/sqlite"
	"go.uber.org/zap"
)

// store is the driver-independent set of ports the gateway runs on.
// outbox and sink are nil for sqlite.
type store struct {
	identities identity.Repo
	relations  relation.Repo
	tx         relation.Transactor
	sink       relation.EventSink
	outbox     outbox.Repository
	ping       func(context.Context) error
	close      func()
}

func initStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store, error) {
	switch cfg.DB.Driver {
	case config.DriverPostgres:
		db, err := pg.New(ctx, cfg.DB.Postgres)
		if err != nil {
			return nil, err
		}
		ob := pg.NewOutboxRepo(db)
		return &store{
			identities: pg.NewIdentityRepo(db),
			relations:  pg.NewRelationRepo(db),
			tx:         pg.NewTransactor(db, logger),
			sink:       ob,
			outbox:     ob,
			ping:       db.Ping,
			close:      db.Close,
		}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.DB.SQLite)
		if err != nil {
			return nil, err
		}
		return &store{
			identities: sqlite.NewIdentityRepo(db),
			relations:  sqlite.NewRelationRepo(db),
			tx:         sqlite.NewTransactor(db),
			ping:       db.Ping,
			close:      func() { _ = db.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DB.Driver)
	}
}
