package db

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

//go:embed seed/analytics.hcl
var defaultSeed []byte

// Migrations returns the SQL migrations compiled into the binary.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// DefaultSeed returns the sample dataset compiled into the binary.
func DefaultSeed() (*SeedSet, error) {
	return ParseSeedHCL(defaultSeed, "analytics.hcl")
}
