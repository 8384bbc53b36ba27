package application

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/ericfisherdev/rbdraft/internal/domain/model"
	"github.com/ericfisherdev/rbdraft/internal/domain/port/driven"
)

// Queue names used by the review request page.
const (
	QueueDiffFragments          = "diff_fragments"
	QueueReviewDraftDiffComment = "review_draft_diff_comments"
)

// fragmentPolicy strips scripts and event handlers from fetched fragments
// while keeping the table markup and classes diff context needs.
var fragmentPolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	return p
}()

// pendingBatch holds the comment IDs queued for one queue name, grouped by
// key in first-enqueue order.
type pendingBatch struct {
	keys     []model.FragmentRequestKey
	comments map[model.FragmentRequestKey][]string
}

// FragmentLoadQueue batches diff fragment requests by (revision, file) key so
// that any number of inline comments costs one request per distinct diff
// unit. All fetches go through a single FuncQueue, so fragments are injected
// in a deterministic order.
type FragmentLoadQueue struct {
	mu      sync.Mutex
	pending map[string]*pendingBatch

	pagePath string
	serial   string
	fetcher  driven.FragmentFetcher
	sink     driven.FragmentSink
	runner   *FuncQueue
	logger   *slog.Logger
}

// NewFragmentLoadQueue creates a queue for fragments of the review request
// page at pagePath. serial, when non-empty, is appended to every fetch target
// to defeat stale caches.
func NewFragmentLoadQueue(
	pagePath string,
	serial string,
	fetcher driven.FragmentFetcher,
	sink driven.FragmentSink,
	logger *slog.Logger,
) *FragmentLoadQueue {
	return &FragmentLoadQueue{
		pending:  make(map[string]*pendingBatch),
		pagePath: pagePath,
		serial:   serial,
		fetcher:  fetcher,
		sink:     sink,
		runner:   NewFuncQueue(),
		logger:   logger,
	}
}

// Enqueue records that commentID needs the fragment for key.
func (q *FragmentLoadQueue) Enqueue(queueName, commentID string, key model.FragmentRequestKey) {
	q.mu.Lock()
	defer q.mu.Unlock()

	batch, ok := q.pending[queueName]
	if !ok {
		batch = &pendingBatch{comments: make(map[model.FragmentRequestKey][]string)}
		q.pending[queueName] = batch
	}
	if _, seen := batch.comments[key]; !seen {
		batch.keys = append(batch.keys, key)
	}
	batch.comments[key] = append(batch.comments[key], commentID)
}

// Pending returns the comment IDs queued under queueName, per key, in
// first-enqueue key order.
func (q *FragmentLoadQueue) Pending(queueName string) [][]string {
	q.mu.Lock()
	defer q.mu.Unlock()

	batch, ok := q.pending[queueName]
	if !ok {
		return nil
	}
	out := make([][]string, 0, len(batch.keys))
	for _, key := range batch.keys {
		out = append(out, append([]string(nil), batch.comments[key]...))
	}
	return out
}

// Flush builds one fetch per distinct key queued under queueName, clears the
// queue, and schedules the fetches on the sequential runner. It returns the
// fetch targets in the order they will run. The queue is cleared whether or
// not the fetches later succeed.
func (q *FragmentLoadQueue) Flush(ctx context.Context, queueName, containerPrefix string) []string {
	q.mu.Lock()
	batch, ok := q.pending[queueName]
	delete(q.pending, queueName)
	q.mu.Unlock()

	if !ok || len(batch.keys) == 0 {
		return nil
	}

	targets := make([]string, 0, len(batch.keys))
	for _, key := range batch.keys {
		commentIDs := batch.comments[key]
		target := q.target(queueName, containerPrefix, commentIDs)
		targets = append(targets, target)

		fragment := model.Fragment{
			Queue:           queueName,
			ContainerPrefix: containerPrefix,
			CommentIDs:      commentIDs,
		}
		q.runner.Add(func(next func()) {
			go func() {
				defer next()
				q.load(ctx, target, key, fragment)
			}()
		})
	}

	q.logger.Debug("diff fragments flushed",
		"queue", queueName,
		"batches", len(targets),
	)

	q.runner.Start()
	return targets
}

// Idle reports whether no fetch is running or waiting to run.
func (q *FragmentLoadQueue) Idle() bool {
	return !q.runner.Running() && q.runner.Len() == 0
}

func (q *FragmentLoadQueue) load(ctx context.Context, target string, key model.FragmentRequestKey, fragment model.Fragment) {
	body, err := q.fetcher.FetchFragment(ctx, target)
	if err != nil {
		q.logger.Error("failed to load diff fragment", "key", key.String(), "target", target, "error", err)
		return
	}

	parts, err := splitFragmentBatch(body, fragment.ContainerPrefix, fragment.CommentIDs)
	if err != nil {
		q.logger.Error("failed to split diff fragment", "key", key.String(), "target", target, "error", err)
		return
	}
	fragment.Parts = make(map[string]string, len(parts))
	for _, commentID := range fragment.CommentIDs {
		part, ok := parts[commentID]
		if !ok {
			q.logger.Warn("diff fragment has no markup for comment",
				"key", key.String(),
				"comment_id", commentID,
			)
			continue
		}
		fragment.Parts[commentID] = fragmentPolicy.Sanitize(part)
	}

	if err := q.sink.Inject(ctx, fragment); err != nil {
		q.logger.Error("failed to inject diff fragment", "key", key.String(), "error", err)
	}
}

// target builds "<page>fragments/diff-comments/<ids>/?queue=<q>&container_prefix=<p>".
func (q *FragmentLoadQueue) target(queueName, containerPrefix string, commentIDs []string) string {
	var b strings.Builder
	b.WriteString(q.pagePath)
	b.WriteString("fragments/diff-comments/")
	b.WriteString(strings.Join(commentIDs, ","))
	b.WriteString("/?queue=")
	b.WriteString(url.QueryEscape(queueName))
	b.WriteString("&container_prefix=")
	b.WriteString(url.QueryEscape(containerPrefix))
	if q.serial != "" {
		b.WriteByte('&')
		b.WriteString(q.serial)
	}
	return b.String()
}
