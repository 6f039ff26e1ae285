package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const credentialColumns = `id, type, user_id, secret_hash, created_at, updated_at, expires_at, retired, metadata, revision`

// PostgresStore keeps credentials in the credentials table created by
// MigratePostgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// MigratePostgres applies the embedded goose migrations.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "failed to close migration connection", "error", err)
		}
	}(db)

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{log: log})
	goose.SetTableName("gocred_schema_migrations")
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("%w: migrate: %v", ErrUnavailable, err)
	}
	return nil
}

type gooseLogger struct {
	log *slog.Logger
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (s *PostgresStore) Insert(ctx context.Context, rec *Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	if rec.Revision == 0 {
		rec.Revision = 1
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO credentials (`+credentialColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, string(rec.Type), rec.UserID, rec.SecretHash,
		rec.CreatedAt, rec.UpdatedAt, rec.ExpiresAt, rec.Retired,
		metadataOrEmpty(rec.Metadata), rec.Revision,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if strings.Contains(pgErr.ConstraintName, "secret_hash") {
				return ErrDuplicateHash
			}
			return ErrDuplicateID
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	rec, err := pgx.CollectExactlyOneRow(rows, scanRecord)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return rec, nil
}

// GetByHash asks for two rows so a broken constraint is reported rather than
// masked by LIMIT 1.
func (s *PostgresStore) GetByHash(ctx context.Context, typ Type, secretHash string) (*Record, error) {
	records, err := s.query(ctx,
		`SELECT `+credentialColumns+` FROM credentials
		 WHERE type = $1 AND secret_hash = $2 LIMIT 2`,
		string(typ), secretHash)
	if err != nil {
		return nil, err
	}
	switch len(records) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return records[0], nil
	default:
		return nil, ErrDuplicateHash
	}
}

func (s *PostgresStore) ListBySubject(ctx context.Context, typ Type, userID string) ([]*Record, error) {
	return s.query(ctx,
		`SELECT `+credentialColumns+` FROM credentials
		 WHERE type = $1 AND user_id = $2 ORDER BY created_at`,
		string(typ), userID)
}

func (s *PostgresStore) List(ctx context.Context, typ Type) ([]*Record, error) {
	return s.query(ctx,
		`SELECT `+credentialColumns+` FROM credentials
		 WHERE type = $1 ORDER BY created_at`,
		string(typ))
}

func (s *PostgresStore) Update(ctx context.Context, rec *Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE credentials
		 SET updated_at = $3, expires_at = $4, retired = $5, metadata = $6, revision = revision + 1
		 WHERE id = $1 AND revision = $2`,
		rec.ID, rec.Revision, rec.UpdatedAt, rec.ExpiresAt, rec.Retired, metadataOrEmpty(rec.Metadata),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return s.missOrConflict(ctx, rec.ID)
	}

	rec.Revision++
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, rec *Record) error {
	if rec == nil {
		return ErrNotFound
	}

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM credentials WHERE id = $1 AND revision = $2`,
		rec.ID, rec.Revision)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return s.missOrConflict(ctx, rec.ID)
	}
	return nil
}

func (s *PostgresStore) missOrConflict(ctx context.Context, id string) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM credentials WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

func (s *PostgresStore) query(ctx context.Context, stmt string, args ...any) ([]*Record, error) {
	rows, err := s.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	records, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if records == nil {
		records = make([]*Record, 0)
	}
	return records, nil
}

func scanRecord(row pgx.CollectableRow) (*Record, error) {
	var (
		rec Record
		typ string
	)
	err := row.Scan(
		&rec.ID, &typ, &rec.UserID, &rec.SecretHash,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.ExpiresAt, &rec.Retired,
		&rec.Metadata, &rec.Revision,
	)
	if err != nil {
		return nil, err
	}
	rec.Type = Type(typ)
	return &rec, nil
}

func metadataOrEmpty(metadata []byte) []byte {
	if len(metadata) == 0 {
		return []byte("{}")
	}
	return metadata
}
