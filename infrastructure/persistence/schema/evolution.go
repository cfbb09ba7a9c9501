package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"esn-backend/domain/core/aggregates"

	"github.com/google/uuid"
)

// CurrentVersion is the schema version written by this service
const CurrentVersion = 1

// Migration upgrades a decoded snapshot by exactly one version
type Migration struct {
	FromVersion int
	ToVersion   int
	Description string
	Up          MigrationFunc
}

// MigrationFunc rewrites a snapshot in place
type MigrationFunc func(snap *aggregates.Snapshot) error

// SchemaEvolution upgrades stored documents to the current schema on read
type SchemaEvolution struct {
	currentVersion int
	migrations     []Migration
}

// NewSchemaEvolution creates a schema evolution manager with the built-in migrations
func NewSchemaEvolution() *SchemaEvolution {
	s := &SchemaEvolution{currentVersion: CurrentVersion}
	// Registration of built-ins cannot fail.
	_ = s.RegisterMigration(Migration{
		FromVersion: 0,
		ToVersion:   1,
		Description: "versionless documents written by the storefront extension",
		Up:          upgradeLegacy,
	})
	return s
}

// RegisterMigration registers a new migration
func (s *SchemaEvolution) RegisterMigration(migration Migration) error {
	if migration.ToVersion != migration.FromVersion+1 {
		return fmt.Errorf("invalid migration: must advance exactly one version (%d->%d)",
			migration.FromVersion, migration.ToVersion)
	}
	if migration.Up == nil {
		return fmt.Errorf("migration %d->%d has no Up function", migration.FromVersion, migration.ToVersion)
	}

	for _, existing := range s.migrations {
		if existing.FromVersion == migration.FromVersion {
			return fmt.Errorf("migration from %d to %d already exists",
				migration.FromVersion, migration.ToVersion)
		}
	}

	s.migrations = append(s.migrations, migration)
	sort.Slice(s.migrations, func(i, j int) bool {
		return s.migrations[i].FromVersion < s.migrations[j].FromVersion
	})
	if migration.ToVersion > s.currentVersion {
		s.currentVersion = migration.ToVersion
	}
	return nil
}

// Upgrade applies migrations until the snapshot reaches the current version.
// It returns the number of migrations applied.
func (s *SchemaEvolution) Upgrade(snap *aggregates.Snapshot) (int, error) {
	if snap.SchemaVersion > s.currentVersion {
		return 0, fmt.Errorf("document schema version %d is newer than supported %d",
			snap.SchemaVersion, s.currentVersion)
	}

	applied := 0
	for snap.SchemaVersion < s.currentVersion {
		migration := s.findMigration(snap.SchemaVersion)
		if migration == nil {
			return applied, fmt.Errorf("no migration found from version %d", snap.SchemaVersion)
		}

		if err := migration.Up(snap); err != nil {
			return applied, fmt.Errorf("migration %d->%d failed: %w",
				migration.FromVersion, migration.ToVersion, err)
		}

		snap.SchemaVersion = migration.ToVersion
		applied++
	}

	return applied, nil
}

// GetCurrentVersion returns the current schema version
func (s *SchemaEvolution) GetCurrentVersion() int {
	return s.currentVersion
}

func (s *SchemaEvolution) findMigration(from int) *Migration {
	for i := range s.migrations {
		if s.migrations[i].FromVersion == from {
			return &s.migrations[i]
		}
	}
	return nil
}

// upgradeLegacy normalizes documents that predate schemaVersion: nil
// collections become empty, stored edges are dropped and duplicate ids
// are re-issued so every node stays individually removable.
func upgradeLegacy(snap *aggregates.Snapshot) error {
	if snap.Nodes == nil {
		snap.Nodes = []aggregates.ConnectionRecord{}
	}
	snap.Edges = nil

	seen := make(map[string]bool, len(snap.Nodes))
	for i := range snap.Nodes {
		node := &snap.Nodes[i]
		if node.Metadata == nil {
			node.Metadata = map[string]interface{}{}
		}
		if node.ID == "" {
			continue
		}
		if seen[node.ID] {
			node.ID = uuid.New().String()
		}
		seen[node.ID] = true
	}
	return nil
}

// marshalSnapshot is json.Marshal with nil collections written as []
func marshalSnapshot(snap aggregates.Snapshot) ([]byte, error) {
	if snap.Nodes == nil {
		snap.Nodes = []aggregates.ConnectionRecord{}
	}
	if snap.Edges == nil {
		snap.Edges = []aggregates.EdgeRecord{}
	}
	return json.Marshal(snap)
}
