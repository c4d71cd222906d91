package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openpublish/sitetree/pkg/sitetree"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements sitetree.Repository using PostgreSQL. Sites live in
// a `site` table, snapshots in a `site_node` table keyed by site_id; saving
// a site replaces its snapshot atomically inside one transaction when the
// underlying DBTX is a pool.
type Repository struct {
	db   DBTX
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL repository
func New(db DBTX) sitetree.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) sitetree.Repository {
	return &Repository{db: pool, pool: pool}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("site already exists")
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
		return sitetree.ErrSiteNotFound
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

func (r *Repository) CreateSite(ctx context.Context, site *sitetree.Site, records []sitetree.NodeRecord) error {
	query := `
		INSERT INTO site (id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, query, site.ID, site.Name, site.CreatedAt, site.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create site", err)
	}

	if err := r.insertRecords(ctx, r.db, records); err != nil {
		return r.handlePostgresError("create site snapshot", err)
	}
	return nil
}

func (r *Repository) GetSite(ctx context.Context, id uuid.UUID) (*sitetree.Site, []sitetree.NodeRecord, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM site WHERE id = $1 AND deleted_at IS NULL`

	var site sitetree.Site
	err := r.db.QueryRow(ctx, query, id).Scan(&site.ID, &site.Name, &site.CreatedAt, &site.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, sitetree.ErrSiteNotFound
		}
		return nil, nil, r.handlePostgresError("get site", err)
	}

	records, err := r.getRecords(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return &site, records, nil
}

func (r *Repository) SaveSite(ctx context.Context, site *sitetree.Site, records []sitetree.NodeRecord) error {
	// Replace the snapshot in one transaction when a pool is available so a
	// reader never observes a half-written tree.
	if r.pool != nil {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return r.handlePostgresError("save site", err)
		}
		defer tx.Rollback(ctx)

		if err := r.saveSiteTx(ctx, tx, site, records); err != nil {
			return err
		}
		return tx.Commit(ctx)
	}
	return r.saveSiteTx(ctx, r.db, site, records)
}

func (r *Repository) saveSiteTx(ctx context.Context, db DBTX, site *sitetree.Site, records []sitetree.NodeRecord) error {
	tag, err := db.Exec(ctx, `UPDATE site SET name = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`,
		site.ID, site.Name, site.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("save site", err)
	}
	if tag.RowsAffected() == 0 {
		return sitetree.ErrSiteNotFound
	}

	if _, err := db.Exec(ctx, `DELETE FROM site_node WHERE site_id = $1`, site.ID); err != nil {
		return r.handlePostgresError("save site snapshot", err)
	}
	if err := r.insertRecords(ctx, db, records); err != nil {
		return r.handlePostgresError("save site snapshot", err)
	}
	return nil
}

func (r *Repository) DeleteSite(ctx context.Context, id uuid.UUID) error {
	// Soft delete the site; drop the snapshot rows outright.
	tag, err := r.db.Exec(ctx, `UPDATE site SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return r.handlePostgresError("delete site", err)
	}
	if tag.RowsAffected() == 0 {
		return sitetree.ErrSiteNotFound
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM site_node WHERE site_id = $1`, id); err != nil {
		return r.handlePostgresError("delete site snapshot", err)
	}
	return nil
}

func (r *Repository) ListSites(ctx context.Context) ([]*sitetree.Site, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM site WHERE deleted_at IS NULL
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, r.handlePostgresError("list sites", err)
	}
	defer rows.Close()

	var result []*sitetree.Site
	for rows.Next() {
		var site sitetree.Site
		if err := rows.Scan(&site.ID, &site.Name, &site.CreatedAt, &site.UpdatedAt); err != nil {
			return nil, r.handlePostgresError("list sites", err)
		}
		result = append(result, &site)
	}
	return result, rows.Err()
}

func (r *Repository) insertRecords(ctx context.Context, db DBTX, records []sitetree.NodeRecord) error {
	query := `
		INSERT INTO site_node (id, site_id, parent_id, kind, name, title, body, status, author_id, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	for _, rec := range records {
		var parentID interface{}
		if rec.ParentID != uuid.Nil {
			parentID = rec.ParentID
		}
		var authorID interface{}
		if rec.AuthorID != uuid.Nil {
			authorID = rec.AuthorID
		}
		_, err := db.Exec(ctx, query,
			rec.ID, rec.SiteID, parentID, string(rec.Kind),
			rec.Name, rec.Title, rec.Body, string(rec.Status), authorID, rec.Position)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) getRecords(ctx context.Context, siteID uuid.UUID) ([]sitetree.NodeRecord, error) {
	query := `
		SELECT id, site_id, parent_id, kind, name, title, body, status, author_id, position
		FROM site_node WHERE site_id = $1
		ORDER BY position`

	rows, err := r.db.Query(ctx, query, siteID)
	if err != nil {
		return nil, r.handlePostgresError("get site snapshot", err)
	}
	defer rows.Close()

	var records []sitetree.NodeRecord
	for rows.Next() {
		var rec sitetree.NodeRecord
		var parentID, authorID *uuid.UUID
		var kind, status string
		if err := rows.Scan(&rec.ID, &rec.SiteID, &parentID, &kind,
			&rec.Name, &rec.Title, &rec.Body, &status, &authorID, &rec.Position); err != nil {
			return nil, r.handlePostgresError("get site snapshot", err)
		}
		if parentID != nil {
			rec.ParentID = *parentID
		}
		if authorID != nil {
			rec.AuthorID = *authorID
		}
		rec.Kind = sitetree.ComponentType(kind)
		rec.Status = sitetree.ContentStatus(status)
		records = append(records, rec)
	}
	return records, rows.Err()
}
