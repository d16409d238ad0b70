// Package cache implements the process-wide Cache of §5's
// "a process-wide cache is acceptable for deduped-identifier interning if
// shared across units, but must be thread-safe": a build cache keyed by
// (generic base id, mangled type arguments) that memoizes genericlookup
// call text so repeated compiler invocations in the same build reuse prior
// specialization names instead of re-mangling them. Dedup suffixes are not
// stored here.
//
// Grounded on the teacher's internal/db/db.go for its operational shape
// (WAL pragmas, a busy-timeout DSN, a WAL checkpoint on Close; there is no
// health probe and no size-triggered checkpoint) but backed by gorm.io/gorm with the
// pure-Go github.com/glebarez/sqlite driver rather than database/sql +
// mattn/go-sqlite3, matching the rest of the domain stack's gorm
// commitment.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// specialization is one cached generic specialization or dedup-suffix
// decision, keyed by (BaseID, Mangled) and addressed by a uuid primary key
// (the teacher's models package convention).
type specialization struct {
	ID              string `gorm:"primaryKey"`
	BaseID          string `gorm:"index:idx_spec_lookup,unique"`
	Mangled         string `gorm:"index:idx_spec_lookup,unique"`
	SpecializedName string
	CreatedAt       time.Time
}

func (specialization) TableName() string { return "specializations" }

// Cache is a thread-safe, process-wide memoization table shared by every
// compilation unit's Identifier Resolver. A unit only ever reads and writes
// through Lookup/Store, never touches *gorm.DB directly, keeping the
// storage engine swappable without touching emitter code.
type Cache struct {
	mu  sync.RWMutex
	db  *gorm.DB
	mem map[key]string
}

type key struct{ baseID, mangled string }

// Open opens (creating if absent) a sqlite-backed cache at path, applying
// the same WAL/busy-timeout pragmas internal/db/db.go relies on for
// concurrent access from multiple driver.Run workers, then loads every
// persisted row into memory so Lookup never blocks on disk.
func Open(path string) (*Cache, error) {
	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&specialization{}); err != nil {
		return nil, fmt.Errorf("cache: migrate: %w", err)
	}

	c := &Cache{db: db, mem: make(map[key]string)}
	var rows []specialization
	if err := db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("cache: preload: %w", err)
	}
	for _, r := range rows {
		c.mem[key{r.BaseID, r.Mangled}] = r.SpecializedName
	}
	return c, nil
}

// Memory returns a Cache with no backing store, for callers (tests,
// one-shot compiles) that want the interning behavior within a single
// process but no cross-invocation persistence.
func Memory() *Cache {
	return &Cache{mem: make(map[key]string)}
}

// Lookup returns the specialized name previously stored for (baseID,
// mangled), if any. Safe for concurrent use by multiple units' Identifier
// Resolvers.
func (c *Cache) Lookup(baseID, mangled string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.mem[key{baseID, mangled}]
	return name, ok
}

// Store records baseID/mangled's specialized name, persisting it to the
// backing store (if any) so a later compiler invocation reuses it. A
// concurrent Store for the same key is idempotent: the later write wins in
// memory, and ON CONFLICT keeps the row's original uuid.
func (c *Cache) Store(baseID, mangled, specializedName string) error {
	c.mu.Lock()
	c.mem[key{baseID, mangled}] = specializedName
	c.mu.Unlock()

	if c.db == nil {
		return nil
	}
	row := specialization{
		ID:              uuid.NewString(),
		BaseID:          baseID,
		Mangled:         mangled,
		SpecializedName: specializedName,
		CreatedAt:       time.Now(),
	}
	err := c.db.Clauses(onConflictUpdateName()).Create(&row).Error
	if err != nil {
		return fmt.Errorf("cache: store %s/%s: %w", baseID, mangled, err)
	}
	return nil
}

// Close runs a WAL checkpoint (mirroring internal/db/db.go's
// CheckWALSizeAndCheckpoint) before releasing the underlying connection; the
// WAL file is truncated only when Close is called.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	if err := c.db.Exec("PRAGMA wal_checkpoint(TRUNCATE);").Error; err != nil {
		return fmt.Errorf("cache: checkpoint: %w", err)
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("cache: underlying conn: %w", err)
	}
	return sqlDB.Close()
}
