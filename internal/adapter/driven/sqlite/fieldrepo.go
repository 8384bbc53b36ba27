package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/rbdraft/internal/domain/model"
	"github.com/ericfisherdev/rbdraft/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.FieldDisplayStore = (*FieldRepo)(nil)

// FieldRepo stores rendered draft field display values.
type FieldRepo struct {
	db *DB
}

// NewFieldRepo creates a FieldRepo backed by db.
func NewFieldRepo(db *DB) *FieldRepo {
	return &FieldRepo{db: db}
}

// SetDisplay inserts or replaces the display value of a field.
func (r *FieldRepo) SetDisplay(ctx context.Context, reviewRequestID int, field model.FieldName, html string) error {
	const query = `
		INSERT INTO field_displays (review_request_id, field, html)
		VALUES (?, ?, ?)
		ON CONFLICT(review_request_id, field) DO UPDATE SET
			html = excluded.html,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`

	if _, err := r.db.Writer.ExecContext(ctx, query, reviewRequestID, string(field), html); err != nil {
		return fmt.Errorf("set display of %s on review request %d: %w", field, reviewRequestID, err)
	}
	return nil
}

// GetDisplay returns a field's display value, or "" when none is stored.
func (r *FieldRepo) GetDisplay(ctx context.Context, reviewRequestID int, field model.FieldName) (string, error) {
	const query = `SELECT html FROM field_displays WHERE review_request_id = ? AND field = ?`

	var html string
	err := r.db.Reader.QueryRowContext(ctx, query, reviewRequestID, string(field)).Scan(&html)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get display of %s on review request %d: %w", field, reviewRequestID, err)
	}
	return html, nil
}

// DraftDisplay returns the display values that gate publishing.
func (r *FieldRepo) DraftDisplay(ctx context.Context, reviewRequestID int) (model.DraftDisplay, error) {
	all, err := r.ListDisplays(ctx, reviewRequestID)
	if err != nil {
		return model.DraftDisplay{}, err
	}
	return model.DraftDisplay{
		TargetPeople: all[model.FieldTargetPeople],
		TargetGroups: all[model.FieldTargetGroups],
		Summary:      all[model.FieldSummary],
		Description:  all[model.FieldDescription],
	}, nil
}

// ListDisplays returns every stored display value of a review request.
func (r *FieldRepo) ListDisplays(ctx context.Context, reviewRequestID int) (map[model.FieldName]string, error) {
	const query = `SELECT field, html FROM field_displays WHERE review_request_id = ?`

	rows, err := r.db.Reader.QueryContext(ctx, query, reviewRequestID)
	if err != nil {
		return nil, fmt.Errorf("list displays of review request %d: %w", reviewRequestID, err)
	}
	defer rows.Close()

	result := make(map[model.FieldName]string)
	for rows.Next() {
		var field, html string
		if err := rows.Scan(&field, &html); err != nil {
			return nil, fmt.Errorf("scan field display: %w", err)
		}
		result[model.FieldName(field)] = html
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate field displays: %w", err)
	}
	return result, nil
}
