package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
)

//go:embed 0008_create_streams.sql
var createStreamsSQL string

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(createStreamsSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			if _, err := db.Exec(`DROP TABLE IF EXISTS stream_resources`); err != nil {
				return err
			}
			_, err := db.Exec(`DROP TABLE IF EXISTS streams`)
			return err
		},
	)
}
