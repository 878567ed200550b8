package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/formdeck/formdeck/pkg/forms"
	"github.com/formdeck/formdeck/pkg/session"
)

// Postgres persists forms in two tables: forms (metadata) and form_fields
// (one row per field, keyed by form_id + id). Approve diffs run in a
// single transaction.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a connection pool for the given DSN and verifies it.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return &Postgres{db: db}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error { return p.db.Close() }

// EnsureSchema creates the tables if they do not exist yet.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS forms (
    id          TEXT PRIMARY KEY,
    title       TEXT NOT NULL DEFAULT '',
    description TEXT,
    published   BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE TABLE IF NOT EXISTS form_fields (
    form_id     TEXT NOT NULL REFERENCES forms(id) ON DELETE CASCADE,
    id          TEXT NOT NULL,
    type        TEXT NOT NULL,
    label       TEXT NOT NULL,
    required    BOOLEAN NOT NULL DEFAULT FALSE,
    "order"     INTEGER NOT NULL,
    placeholder TEXT,
    min_length  INTEGER,
    max_length  INTEGER,
    min         DOUBLE PRECISION,
    max         DOUBLE PRECISION,
    step        DOUBLE PRECISION,
    rows        INTEGER,
    PRIMARY KEY (form_id, id)
);`
	if _, err := p.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// CreateForm inserts a new, empty form.
func (p *Postgres) CreateForm(ctx context.Context, formID string, meta forms.Metadata) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO forms (id, title, description, published) VALUES ($1, $2, $3, $4)`,
		formID, meta.Title, nullString(meta.Description), meta.Published)
	if err != nil {
		return fmt.Errorf("failed to create form %s: %w", formID, err)
	}
	return nil
}

// Load fetches a form's metadata and its fields ordered by position.
func (p *Postgres) Load(ctx context.Context, formID string) (forms.FormDefinition, forms.Metadata, error) {
	var meta forms.Metadata
	var description sql.NullString
	err := p.db.QueryRowContext(ctx,
		`SELECT title, description, published FROM forms WHERE id = $1`, formID).
		Scan(&meta.Title, &description, &meta.Published)
	if errors.Is(err, sql.ErrNoRows) {
		return forms.FormDefinition{}, forms.Metadata{}, fmt.Errorf("%w: %s", ErrNotFound, formID)
	}
	if err != nil {
		return forms.FormDefinition{}, forms.Metadata{}, fmt.Errorf("failed to load form %s: %w", formID, err)
	}
	meta.Description = description.String

	rows, err := p.db.QueryContext(ctx,
		`SELECT id, type, label, required, "order", placeholder,
		        min_length, max_length, min, max, step, rows
		 FROM form_fields WHERE form_id = $1 ORDER BY "order"`, formID)
	if err != nil {
		return forms.FormDefinition{}, forms.Metadata{}, fmt.Errorf("failed to load fields for %s: %w", formID, err)
	}
	defer rows.Close()

	var def forms.FormDefinition
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return forms.FormDefinition{}, forms.Metadata{}, fmt.Errorf("failed to scan field for %s: %w", formID, err)
		}
		def.Fields = append(def.Fields, f)
	}
	if err := rows.Err(); err != nil {
		return forms.FormDefinition{}, forms.Metadata{}, fmt.Errorf("failed to load fields for %s: %w", formID, err)
	}
	return def, meta, nil
}

// ApplyDiff commits an approved change: deletes, updates, inserts and the
// metadata row all land in one transaction.
func (p *Postgres) ApplyDiff(ctx context.Context, formID string, diff session.Diff, meta forms.Metadata) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE forms SET title = $2, description = $3, published = $4 WHERE id = $1`,
		formID, meta.Title, nullString(meta.Description), meta.Published)
	if err != nil {
		return fmt.Errorf("failed to update form %s: %w", formID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, formID)
	}

	for _, id := range diff.Deleted {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM form_fields WHERE form_id = $1 AND id = $2`, formID, id); err != nil {
			return fmt.Errorf("failed to delete field %s: %w", id, err)
		}
	}

	for _, u := range diff.Updated {
		res, err := tx.ExecContext(ctx,
			`UPDATE form_fields
			 SET type = $3, label = $4, required = $5, "order" = $6, placeholder = $7,
			     min_length = $8, max_length = $9, min = $10, max = $11, step = $12, rows = $13
			 WHERE form_id = $1 AND id = $2`,
			append([]any{formID, u.ID}, fieldArgs(u.Field)...)...)
		if err != nil {
			return fmt.Errorf("failed to update field %s: %w", u.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("cannot update unknown field %q in form %s", u.ID, formID)
		}
	}

	for _, f := range diff.Created {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO form_fields
			     (form_id, id, type, label, required, "order", placeholder,
			      min_length, max_length, min, max, step, rows)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			append([]any{formID, f.ID}, fieldArgs(f)...)...); err != nil {
			return fmt.Errorf("failed to insert field %s: %w", f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit form %s: %w", formID, err)
	}
	return nil
}

// fieldArgs flattens a field into the positional args shared by the
// insert and update statements, after form_id and id.
func fieldArgs(f forms.FormField) []any {
	return []any{
		string(f.Type), f.Label, f.Required, f.Order, nullStringPtr(f.Placeholder),
		nullIntPtr(f.MinLength), nullIntPtr(f.MaxLength),
		nullFloatPtr(f.Min), nullFloatPtr(f.Max), nullFloatPtr(f.Step),
		nullIntPtr(f.Rows),
	}
}

func scanField(rows *sql.Rows) (forms.FormField, error) {
	var f forms.FormField
	var typ string
	var placeholder sql.NullString
	var minLength, maxLength, rowCount sql.NullInt64
	var min, max, step sql.NullFloat64
	err := rows.Scan(&f.ID, &typ, &f.Label, &f.Required, &f.Order, &placeholder,
		&minLength, &maxLength, &min, &max, &step, &rowCount)
	if err != nil {
		return forms.FormField{}, err
	}
	f.Type = forms.FieldType(typ)
	if placeholder.Valid {
		f.Placeholder = &placeholder.String
	}
	f.MinLength = intPtr(minLength)
	f.MaxLength = intPtr(maxLength)
	f.Rows = intPtr(rowCount)
	f.Min = floatPtr(min)
	f.Max = floatPtr(max)
	f.Step = floatPtr(step)
	return f, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullIntPtr(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloatPtr(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
