package prefs

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Defaults layers the shared store over the legacy store.
//
// Reads go to the shared store first and fall back to the legacy store.
// Writes go to the shared store only. Deletes remove the key from both so a
// stale legacy value cannot reappear through the fallback.
//
// The first operation on a Defaults runs the one-time migration unless the
// shared store already records MigratedKey.
type Defaults struct {
	shared Store
	legacy Store
	logger *slog.Logger

	once       sync.Once
	migrateErr error
}

// NewDefaults returns the layered store. legacy may be nil.
func NewDefaults(shared, legacy Store, logger *slog.Logger) *Defaults {
	if logger == nil {
		logger = slog.Default()
	}
	return &Defaults{shared: shared, legacy: legacy, logger: logger}
}

// Migrate copies MigratedKeys from the legacy store into the shared store,
// skipping keys the shared store already holds, then records MigratedKey.
// It runs at most once per Defaults and is a no-op once the flag is set.
func (d *Defaults) Migrate() error {
	d.once.Do(func() {
		d.migrateErr = d.migrate()
	})
	return d.migrateErr
}

func (d *Defaults) migrate() error {
	if d.legacy == nil {
		return nil
	}

	if _, err := d.shared.Get(MigratedKey); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("read migration flag: %w", err)
	}

	copied := 0
	for _, key := range MigratedKeys {
		if _, err := d.shared.Get(key); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("migrate %s: %w", key, err)
		}

		v, err := d.legacy.Get(key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("migrate %s: %w", key, err)
		}
		if err := d.shared.Set(key, v); err != nil {
			return fmt.Errorf("migrate %s: %w", key, err)
		}
		copied++
	}

	if err := d.shared.Set(MigratedKey, "true"); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	d.logger.Info("migrated legacy defaults", "keys", copied)
	return nil
}

// Get implements Store.
func (d *Defaults) Get(key string) (string, error) {
	d.migrateOrLog()

	v, err := d.shared.Get(key)
	if err == nil || !errors.Is(err, ErrNotFound) || d.legacy == nil {
		return v, err
	}
	return d.legacy.Get(key)
}

// Set implements Store.
func (d *Defaults) Set(key, value string) error {
	d.migrateOrLog()
	return d.shared.Set(key, value)
}

// Delete implements Store.
func (d *Defaults) Delete(key string) error {
	d.migrateOrLog()

	if err := d.shared.Delete(key); err != nil {
		return err
	}
	if d.legacy == nil {
		return nil
	}
	return d.legacy.Delete(key)
}

func (d *Defaults) migrateOrLog() {
	if err := d.Migrate(); err != nil {
		d.logger.Warn("legacy defaults migration failed", "error", err)
	}
}
