package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/robby/pflow/internal/domain"
)

// recordRow stores one record of any table as a JSON document.
type recordRow struct {
	ID        string            `gorm:"column:id;primaryKey"`
	Table     string            `gorm:"column:table_name;index;not null"`
	Fields    datatypes.JSONMap `gorm:"column:fields"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (recordRow) TableName() string {
	return "records"
}

func (r *recordRow) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func (r recordRow) record() Record {
	out := make(Record, len(r.Fields)+1)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["id"] = r.ID
	return out
}

// SQLite is an embedded record store with the same table layout as the
// remote record API. Filtering and ordering happen in Go over the decoded
// documents, which is fine at CRM sizes.
type SQLite struct {
	db  *gorm.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path. ":memory:"
// gives a private in-memory store.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return NewSQLite(db)
}

// NewSQLite wraps an open gorm connection and migrates the records table.
func NewSQLite(db *gorm.DB) (*SQLite, error) {
	if err := db.AutoMigrate(&recordRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate records table: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

// Close releases the underlying connection pool.
func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Gateway returns typed collections over the embedded store.
func (s *SQLite) Gateway() *Gateway {
	return &Gateway{
		Deals: sqliteCollection[domain.Deal]{
			store: s, table: DealTable,
			onCreate: prepareDealCreate, onUpdate: prepareDealUpdate,
		},
		Contacts: sqliteCollection[domain.Contact]{
			store: s, table: ContactTable,
			onCreate: func(f domain.Fields, now time.Time) error {
				setDefault(f, "lastContactedAt", now.UTC().Format(time.RFC3339Nano))
				return nil
			},
		},
		Companies: sqliteCollection[domain.Company]{store: s, table: CompanyTable},
		Quotes: sqliteCollection[domain.Quote]{
			store: s, table: QuoteTable,
			onCreate: func(f domain.Fields, _ time.Time) error {
				setDefault(f, "status", domain.QuoteDraft)
				return nil
			},
		},
		SalesOrders: sqliteCollection[domain.SalesOrder]{
			store: s, table: SalesOrderTable,
			onCreate: func(f domain.Fields, _ time.Time) error {
				setDefault(f, "status", domain.OrderDraft)
				return nil
			},
		},
		Activities: sqliteCollection[domain.Activity]{
			store: s, table: ActivityTable,
			onCreate: func(f domain.Fields, now time.Time) error {
				setDefault(f, domain.FieldActivityTimestamp, now.UTC().Format(time.RFC3339Nano))
				setDefault(f, domain.FieldActivityType, domain.ActivityNote)
				return nil
			},
		},
	}
}

func setDefault(f domain.Fields, key string, v any) {
	if cur, ok := f[key]; !ok || cur == nil || cur == "" {
		f[key] = v
	}
}

func prepareDealCreate(f domain.Fields, now time.Time) error {
	raw, ok := f[domain.FieldStage]
	if !ok || raw == nil || raw == "" {
		f[domain.FieldStage] = string(domain.StageLead)
	} else {
		st, err := domain.ParseStage(cast.ToString(raw))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRejected, err)
		}
		f[domain.FieldStage] = string(st)
	}
	setDefault(f, domain.FieldMovedToStageAt, now.UTC().Format(time.RFC3339Nano))
	return nil
}

func prepareDealUpdate(prev Record, f domain.Fields, now time.Time) (domain.Fields, error) {
	if raw, ok := f[domain.FieldStage]; ok {
		if _, err := domain.ParseStage(cast.ToString(raw)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRejected, err)
		}
	}
	return domain.StampStageChange(DealTable.Decode(prev), f, now), nil
}

type sqliteCollection[T any] struct {
	store    *SQLite
	table    Table[T]
	onCreate func(fields domain.Fields, now time.Time) error
	onUpdate func(prev Record, fields domain.Fields, now time.Time) (domain.Fields, error)
}

func (c sqliteCollection[T]) List(ctx context.Context, filter Filter) ([]T, error) {
	var rows []recordRow
	err := c.store.db.WithContext(ctx).
		Where("table_name = ?", c.table.Name).
		Order("created_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s records: %w", c.table.Name, err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		r := row.record()
		if matches(r, filter) {
			records = append(records, r)
		}
	}
	if filter.OrderBy != "" {
		sort.SliceStable(records, func(i, j int) bool {
			cmp := compareValues(records[i][filter.OrderBy], records[j][filter.OrderBy])
			if filter.Desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}

	if filter.Offset >= len(records) {
		return []T{}, nil
	}
	records = records[filter.Offset:]
	if limit := filter.limit(); len(records) > limit {
		records = records[:limit]
	}

	out := make([]T, 0, len(records))
	for _, r := range records {
		out = append(out, c.table.Decode(r))
	}
	return out, nil
}

func (c sqliteCollection[T]) find(tx *gorm.DB, id string) (recordRow, error) {
	var row recordRow
	err := tx.Where("id = ? AND table_name = ?", id, c.table.Name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row, fmt.Errorf("%w: %s %s", ErrNotFound, c.table.Name, id)
	}
	if err != nil {
		return row, fmt.Errorf("failed to get %s record %s: %w", c.table.Name, id, err)
	}
	return row, nil
}

func (c sqliteCollection[T]) Get(ctx context.Context, id string) (T, error) {
	row, err := c.find(c.store.db.WithContext(ctx), id)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.table.Decode(row.record()), nil
}

func (c sqliteCollection[T]) Create(ctx context.Context, fields domain.Fields) (T, error) {
	var zero T
	now := c.store.now()

	doc := make(domain.Fields, len(fields)+2)
	for k, v := range fields {
		if k != "id" && k != "Id" {
			doc[k] = v
		}
	}
	setDefault(doc, domain.FieldCreatedAt, now.UTC().Format(time.RFC3339Nano))
	if c.onCreate != nil {
		if err := c.onCreate(doc, now); err != nil {
			return zero, err
		}
	}

	row := recordRow{Table: c.table.Name, Fields: datatypes.JSONMap(doc)}
	if err := c.store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return zero, fmt.Errorf("failed to create %s record: %w", c.table.Name, err)
	}

	log.Debug().Str("table", c.table.Name).Str("id", row.ID).Msg("record created")
	return c.table.Decode(row.record()), nil
}

func (c sqliteCollection[T]) Update(ctx context.Context, id string, fields domain.Fields) (T, error) {
	var zero T
	var row recordRow

	err := c.store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		row, err = c.find(tx, id)
		if err != nil {
			return err
		}

		changes := fields
		if c.onUpdate != nil {
			changes, err = c.onUpdate(row.record(), fields, c.store.now())
			if err != nil {
				return err
			}
		}

		doc := datatypes.JSONMap{}
		for k, v := range row.Fields {
			doc[k] = v
		}
		for k, v := range changes {
			switch {
			case k == "id" || k == "Id":
			case v == nil:
				delete(doc, k)
			default:
				doc[k] = v
			}
		}
		row.Fields = doc
		return tx.Save(&row).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrRejected) {
			return zero, err
		}
		return zero, fmt.Errorf("failed to update %s record %s: %w", c.table.Name, id, err)
	}

	return c.table.Decode(row.record()), nil
}

func (c sqliteCollection[T]) Delete(ctx context.Context, id string) error {
	res := c.store.db.WithContext(ctx).
		Where("id = ? AND table_name = ?", id, c.table.Name).
		Delete(&recordRow{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete %s record %s: %w", c.table.Name, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, c.table.Name, id)
	}
	return nil
}

// matches applies a Filter to a raw record the way the remote API does.
func matches(r Record, f Filter) bool {
	if f.Search != "" {
		name := strings.ToLower(r.str("name", "Name", "title"))
		if !strings.Contains(name, strings.ToLower(f.Search)) {
			return false
		}
	}
	if s := f.status(); s != "" && r.str("status") != s {
		return false
	}
	if f.ContactID != "" && r.lookup(domain.FieldContactID) != f.ContactID {
		return false
	}
	return true
}

// compareValues orders numbers numerically and everything else as text.
// RFC3339 timestamps sort correctly as text.
func compareValues(a, b any) int {
	fa, errA := cast.ToFloat64E(a)
	fb, errB := cast.ToFloat64E(b)
	if errA == nil && errB == nil && a != nil && b != nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(cast.ToString(a), cast.ToString(b))
}
