package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/allbin/broute/internal/logging"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// entryModel is the config_entries row. Data is stored as JSON.
type entryModel struct {
	bun.BaseModel `bun:"table:config_entries"`
	EntryID       string            `bun:"entry_id,pk"`
	Domain        string            `bun:"domain,notnull"`
	Title         string            `bun:"title,notnull"`
	UniqueID      string            `bun:"unique_id"`
	Source        string            `bun:"source,notnull"`
	Version       int               `bun:"version,notnull"`
	Data          map[string]string `bun:"data,type:text"`
	CreatedAt     time.Time         `bun:"created_at,notnull"`
}

func toModel(e *Entry) *entryModel {
	return &entryModel{
		EntryID:   e.EntryID,
		Domain:    e.Domain,
		Title:     e.Title,
		UniqueID:  e.UniqueID,
		Source:    e.Source,
		Version:   e.Version,
		Data:      e.Data,
		CreatedAt: e.CreatedAt,
	}
}

func (m *entryModel) entry() Entry {
	data := m.Data
	if data == nil {
		data = map[string]string{}
	}
	return Entry{
		EntryID:   m.EntryID,
		Domain:    m.Domain,
		Title:     m.Title,
		UniqueID:  m.UniqueID,
		Source:    m.Source,
		Version:   m.Version,
		Data:      data,
		CreatedAt: m.CreatedAt,
	}
}

// SQLiteStore persists entries with bun on the pure Go SQLite driver
type SQLiteStore struct {
	bun *bun.DB
}

var _ Store = (*SQLiteStore)(nil)

// sqlOpenFunc is overridden in tests
var sqlOpenFunc = sql.Open

// OpenSQLite opens (and creates when missing) the entry database at dsn
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	start := time.Now()
	sqlDB, err := sqlOpenFunc("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: databases alive.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", dsn, err)
	}

	s := &SQLiteStore{bun: bun.NewDB(sqlDB, sqlitedialect.New())}
	if err := s.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	logging.Debugf("entries: opened %s in %s", dsn, time.Since(start))
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	if _, err := s.bun.NewCreateTable().Model((*entryModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create config_entries: %w", err)
	}
	if _, err := s.bun.NewCreateIndex().Model((*entryModel)(nil)).
		Index("config_entries_domain_unique_id").
		Column("domain", "unique_id").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create config_entries index: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Add(ctx context.Context, e *Entry) error {
	return s.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if e.UniqueID != "" {
			exists, err := tx.NewSelect().Model((*entryModel)(nil)).
				Where("domain = ?", e.Domain).
				Where("unique_id = ?", e.UniqueID).
				Exists(ctx)
			if err != nil {
				return fmt.Errorf("check unique id: %w", err)
			}
			if exists {
				return ErrAlreadyConfigured
			}
		}
		prepare(e)
		if _, err := tx.NewInsert().Model(toModel(e)).Exec(ctx); err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) Get(ctx context.Context, entryID string) (*Entry, error) {
	var m entryModel
	err := s.bun.NewSelect().Model(&m).Where("entry_id = ?", entryID).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get entry %s: %w", entryID, err)
	}
	e := m.entry()
	return &e, nil
}

func (s *SQLiteStore) List(ctx context.Context, domain string) ([]Entry, error) {
	var rows []entryModel
	q := s.bun.NewSelect().Model(&rows).OrderExpr("created_at, entry_id")
	if domain != "" {
		q = q.Where("domain = ?", domain)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	out := make([]Entry, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].entry())
	}
	return out, nil
}

func (s *SQLiteStore) FindByUniqueID(ctx context.Context, domain, uniqueID string) (*Entry, error) {
	var m entryModel
	err := s.bun.NewSelect().Model(&m).
		Where("domain = ?", domain).
		Where("unique_id = ?", uniqueID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find entry %s/%s: %w", domain, uniqueID, err)
	}
	e := m.entry()
	return &e, nil
}

func (s *SQLiteStore) Remove(ctx context.Context, entryID string) error {
	res, err := s.bun.NewDelete().Model((*entryModel)(nil)).Where("entry_id = ?", entryID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("remove entry %s: %w", entryID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.bun.Close()
}
