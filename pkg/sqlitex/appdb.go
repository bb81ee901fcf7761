// Package sqlitex wraps an embedded SQLite database with application
// identification, schema versioning, and a small persistent settings
// table. Schema changes run through caller-supplied upgrade steps
// inside a single transaction, so a failed upgrade leaves the database
// untouched - and a failed initialization leaves no database at all.
package sqlitex

import (
	"database/sql"
	"os"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	"github.com/oxij/kisstdlib/pkg/errors"
	"github.com/oxij/kisstdlib/pkg/logging"
)

var logger = logging.GetLogger("sqlitex")

// UpgradeFunc advances the schema by one step from the given version
// and returns the version it reached. It is called repeatedly until
// the target version is reached.
type UpgradeFunc func(tx *sql.Tx, version, target int) (int, error)

// CheckFunc validates the schema after opening and after upgrades;
// final is set on the last call before the transaction commits.
type CheckFunc func(tx *sql.Tx, final bool) error

// Options configures an AppDB.
type Options struct {
	// ApplicationID is stored in PRAGMA application_id; opening a
	// database holding a different id fails.
	ApplicationID int32

	// MinVersion and MaxVersion bound the schema versions this build
	// understands.
	MinVersion int
	MaxVersion int

	// WAL switches the database to write-ahead logging.
	WAL bool

	// Upgrade and Check implement the schema steps; Check may be nil.
	Upgrade UpgradeFunc
	Check   CheckFunc
}

// AppDB is an open application database.
type AppDB struct {
	DB *sql.DB

	path     string
	version  int
	settings map[string]string
	dirty    bool
	created  bool
}

// Open opens or creates the database at path and brings its schema to
// target. A freshly created database gets the default settings;
// existing settings always win. If creation fails partway the file is
// removed again.
func Open(path string, target int, defaults map[string]string, opts Options) (*AppDB, error) {
	_, statErr := os.Stat(path)
	created := os.IsNotExist(statErr)

	a, err := open(path, target, defaults, opts, created)
	if err != nil && created {
		os.Remove(path)
	}
	return a, err
}

func open(path string, target int, defaults map[string]string, opts Options, created bool) (*AppDB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrIOFailure, "opening %q failed", path)
	}
	a := &AppDB{DB: db, path: path, settings: make(map[string]string), created: created}

	if opts.WAL {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, errors.ErrIOFailure, "enabling WAL failed")
		}
	}

	if err := a.setup(target, defaults, opts); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func (a *AppDB) setup(target int, defaults map[string]string, opts Options) error {
	tx, err := a.DB.Begin()
	if err != nil {
		return errors.Wrap(err, errors.ErrIOFailure, "begin failed")
	}
	defer tx.Rollback()

	var appID int32
	if err := tx.QueryRow("PRAGMA application_id").Scan(&appID); err != nil {
		return errors.Wrap(err, errors.ErrIOFailure, "reading application_id failed")
	}
	switch appID {
	case opts.ApplicationID:
	case 0:
		if _, err := tx.Exec("PRAGMA application_id = " + strconv.Itoa(int(opts.ApplicationID))); err != nil {
			return errors.Wrap(err, errors.ErrIOFailure, "setting application_id failed")
		}
	default:
		return errors.Newf(errors.ErrSchemaVersion,
			"%q belongs to application %d, not %d", a.path, appID, opts.ApplicationID)
	}

	if err := tx.QueryRow("PRAGMA user_version").Scan(&a.version); err != nil {
		return errors.Wrap(err, errors.ErrIOFailure, "reading user_version failed")
	}
	if a.version > opts.MaxVersion {
		return errors.Newf(errors.ErrSchemaVersion,
			"%q is at schema version %d, newer than this build understands (max %d)",
			a.path, a.version, opts.MaxVersion)
	}
	if a.version < opts.MinVersion && !a.created {
		return errors.Newf(errors.ErrSchemaVersion,
			"%q is at schema version %d, older than this build can upgrade (min %d)",
			a.path, a.version, opts.MinVersion)
	}

	if _, err := tx.Exec(
		"CREATE TABLE IF NOT EXISTS settings (name TEXT PRIMARY KEY NOT NULL, value TEXT)"); err != nil {
		return errors.Wrap(err, errors.ErrIOFailure, "creating settings table failed")
	}
	if err := a.loadSettings(tx); err != nil {
		return err
	}
	if a.created {
		for k, v := range defaults {
			a.settings[k] = v
		}
	}

	for a.version < target {
		if opts.Upgrade == nil {
			return errors.Newf(errors.ErrSchemaVersion,
				"%q needs upgrading from version %d to %d but no upgrade steps are defined",
				a.path, a.version, target)
		}
		logger.Debug().Str("path", a.path).Int("from", a.version).Int("to", target).Msg("upgrading schema")
		next, err := opts.Upgrade(tx, a.version, target)
		if err != nil {
			return errors.Wrapf(err, errors.ErrSchemaVersion,
				"upgrading %q from version %d failed", a.path, a.version)
		}
		if next <= a.version {
			return errors.Newf(errors.ErrSchemaVersion,
				"upgrade step of %q did not advance past version %d", a.path, a.version)
		}
		a.version = next
		if opts.Check != nil {
			if err := opts.Check(tx, false); err != nil {
				return errors.Wrapf(err, errors.ErrSchemaVersion, "schema check of %q failed", a.path)
			}
		}
	}

	if opts.Check != nil {
		if err := opts.Check(tx, true); err != nil {
			return errors.Wrapf(err, errors.ErrSchemaVersion, "schema check of %q failed", a.path)
		}
	}

	if err := a.flush(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrIOFailure, "commit failed")
	}
	a.dirty = false
	return nil
}

func (a *AppDB) loadSettings(tx *sql.Tx) error {
	rows, err := tx.Query("SELECT name, value FROM settings")
	if err != nil {
		return errors.Wrap(err, errors.ErrIOFailure, "reading settings failed")
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return errors.Wrap(err, errors.ErrIOFailure, "reading settings failed")
		}
		a.settings[k] = v
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, errors.ErrIOFailure, "reading settings failed")
	}
	return nil
}

// flush writes the version and settings back inside tx.
func (a *AppDB) flush(tx *sql.Tx) error {
	if _, err := tx.Exec("PRAGMA user_version = " + strconv.Itoa(a.version)); err != nil {
		return errors.Wrap(err, errors.ErrIOFailure, "setting user_version failed")
	}
	if _, err := tx.Exec("DELETE FROM settings"); err != nil {
		return errors.Wrap(err, errors.ErrIOFailure, "writing settings failed")
	}
	for k, v := range a.settings {
		if _, err := tx.Exec("INSERT INTO settings (name, value) VALUES (?, ?)", k, v); err != nil {
			return errors.Wrap(err, errors.ErrIOFailure, "writing settings failed")
		}
	}
	return nil
}

// Version returns the current schema version.
func (a *AppDB) Version() int {
	return a.version
}

// SetVersion records a new schema version to be written by Commit.
func (a *AppDB) SetVersion(v int) {
	a.version = v
	a.dirty = true
}

// Setting returns a persistent setting.
func (a *AppDB) Setting(name string) (string, bool) {
	v, ok := a.settings[name]
	return v, ok
}

// SetSetting records a persistent setting to be written by Commit.
func (a *AppDB) SetSetting(name, value string) {
	a.settings[name] = value
	a.dirty = true
}

// Dirty reports whether metadata changes await a Commit.
func (a *AppDB) Dirty() bool {
	return a.dirty
}

// Commit writes pending metadata changes.
func (a *AppDB) Commit() error {
	if !a.dirty {
		return nil
	}
	tx, err := a.DB.Begin()
	if err != nil {
		return errors.Wrap(err, errors.ErrIOFailure, "begin failed")
	}
	defer tx.Rollback()
	if err := a.flush(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrIOFailure, "commit failed")
	}
	a.dirty = false
	return nil
}

// Close closes the database; uncommitted metadata changes are lost.
func (a *AppDB) Close() error {
	return a.DB.Close()
}
