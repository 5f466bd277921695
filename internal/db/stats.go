package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TableStat is the row count of one analytics table.
type TableStat struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

// TableStats counts the rows of every analytics table, in seedTables order.
func (db *DB) TableStats(ctx context.Context) ([]TableStat, error) {
	conn, err := db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	batch := &pgx.Batch{}
	for _, table := range seedTables {
		batch.Queue("SELECT COUNT(*) FROM " + pgx.Identifier{table}.Sanitize())
	}

	results := conn.SendBatch(ctx, batch)
	defer results.Close()

	stats := make([]TableStat, 0, len(seedTables))
	for _, table := range seedTables {
		stat := TableStat{Table: table}
		if err := results.QueryRow().Scan(&stat.Rows); err != nil {
			return nil, fmt.Errorf("counting %s: %w", table, err)
		}
		stats = append(stats, stat)
	}
	return stats, nil
}
