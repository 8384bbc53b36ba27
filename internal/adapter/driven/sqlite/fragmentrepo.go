package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/rbdraft/internal/domain/model"
	"github.com/ericfisherdev/rbdraft/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.FragmentStore = (*FragmentRepo)(nil)

// FragmentRepo stores the fragment HTML injected into each comment container.
// A container holds only its latest fragment.
type FragmentRepo struct {
	db *DB
}

// NewFragmentRepo creates a FragmentRepo backed by db.
func NewFragmentRepo(db *DB) *FragmentRepo {
	return &FragmentRepo{db: db}
}

// Inject writes each comment's part of fragment into its container, in one
// transaction. Comments without a part are left untouched.
func (r *FragmentRepo) Inject(ctx context.Context, fragment model.Fragment) error {
	const query = `
		INSERT INTO fragments (container_id, queue, comment_id, html)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(container_id) DO UPDATE SET
			queue = excluded.queue,
			comment_id = excluded.comment_id,
			html = excluded.html,
			injected_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin inject transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, commentID := range fragment.CommentIDs {
		part, ok := fragment.Parts[commentID]
		if !ok {
			continue
		}
		containerID := fragment.ContainerID(commentID)
		if _, err := tx.ExecContext(ctx, query, containerID, fragment.Queue, commentID, part); err != nil {
			return fmt.Errorf("inject fragment into %s: %w", containerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit inject transaction: %w", err)
	}
	return nil
}

// ListFragments returns the fragments injected for queue in first-injection
// order.
func (r *FragmentRepo) ListFragments(ctx context.Context, queue string) ([]driven.InjectedFragment, error) {
	const query = `
		SELECT container_id, queue, comment_id, html, injected_at
		FROM fragments WHERE queue = ? ORDER BY id`

	rows, err := r.db.Reader.QueryContext(ctx, query, queue)
	if err != nil {
		return nil, fmt.Errorf("list fragments for queue %s: %w", queue, err)
	}
	defer rows.Close()

	var result []driven.InjectedFragment
	for rows.Next() {
		var f driven.InjectedFragment
		var injectedAt string
		if err := rows.Scan(&f.ContainerID, &f.Queue, &f.CommentID, &f.HTML, &injectedAt); err != nil {
			return nil, fmt.Errorf("scan fragment: %w", err)
		}
		f.InjectedAt, err = parseTime(injectedAt)
		if err != nil {
			return nil, fmt.Errorf("parse injected_at for %s: %w", f.ContainerID, err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fragments: %w", err)
	}
	return result, nil
}

// parseTime parses the timestamp formats SQLite produces.
func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04:05Z", "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format: %q", s)
}
