package migrations

import (
	"context"

	"github.com/labkit/borrowd/db/models"
	"github.com/uptrace/bun"
)

// This init creates tables from the current model structs, so on a fresh
// db it already contains every column. Later column migrations must use
// IfNotExists/IfExists to stay re-runnable against both states.
func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {

		if _, err := db.NewCreateTable().Model((*models.Transaction)(nil)).Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.Record)(nil)).Exec(ctx); err != nil {
			return err
		}

		// The sweep queries by status and by due-date window.
		if _, err := db.NewCreateIndex().Model((*models.Transaction)(nil)).
			Index("transactions_status_idx").Column("status").Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateIndex().Model((*models.Transaction)(nil)).
			Index("transactions_due_date_idx").Column("due_date").Exec(ctx); err != nil {
			return err
		}

		return nil
	}, nil)
}
