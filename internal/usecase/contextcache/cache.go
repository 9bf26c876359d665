// Package contextcache keeps per-session retrieval context in memory so
// every conversation turn does not re-read a whole project. Entries age out
// by TTL, by message ceiling, or when answer confidence collapses.
package contextcache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/grounder/internal/domain"
	"github.com/kailas-cloud/grounder/internal/metrics"
)

// Options bounds the cache. Zero values fall back to the listed defaults.
type Options struct {
	TTL                   time.Duration // entry lifetime (default 1h)
	SweepInterval         time.Duration // background purge period (default 10m)
	MaxMessages           int           // reload ceiling per session (default 20)
	ConfidenceFloor       float64       // reload when avg drops below (default 0.4)
	ConfidenceMinMessages int           // messages before the floor applies (default 5)
	MaxChunks             int           // chunks kept per session (default 50)
	MaxChunksPerDocument  int           // chunks read per document (default 100)
	PrefilterLimit        int           // semantic pre-filter size (default 20)
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = time.Hour
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = 10 * time.Minute
	}
	if o.MaxMessages <= 0 {
		o.MaxMessages = 20
	}
	if o.ConfidenceFloor <= 0 {
		o.ConfidenceFloor = 0.4
	}
	if o.ConfidenceMinMessages <= 0 {
		o.ConfidenceMinMessages = 5
	}
	if o.MaxChunks <= 0 {
		o.MaxChunks = 50
	}
	if o.MaxChunksPerDocument <= 0 {
		o.MaxChunksPerDocument = 100
	}
	if o.PrefilterLimit <= 0 {
		o.PrefilterLimit = 20
	}
	return o
}

// entry is one session's cached context. Mutations hold the entry mutex so
// the message-count increment and the confidence update are atomic with
// respect to each other.
type entry struct {
	mu sync.Mutex

	projectID     string
	documents     []domain.DocumentRef
	chunks        []domain.ContentChunk
	createdAt     time.Time
	lastUsed      time.Time
	messageCount  int
	avgConfidence float64
	hasConfidence bool
}

// Cache is the keyed session context cache. One entry per live session;
// entries are independent, so cross-session calls never contend.
type Cache struct {
	retriever Retriever
	projects  ProjectReader
	chunks    ChunkReader
	sessions  SessionStore
	opts      Options
	now       func() time.Time
	logger    *zap.Logger

	mu      sync.RWMutex
	entries map[string]*entry

	started  bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// New creates a session context cache. clock may be nil for wall time; tests
// inject their own to drive expiry deterministically.
func New(
	retriever Retriever,
	projects ProjectReader,
	chunks ChunkReader,
	sessions SessionStore,
	opts Options,
	clock func() time.Time,
	logger *zap.Logger,
) *Cache {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		retriever: retriever,
		projects:  projects,
		chunks:    chunks,
		sessions:  sessions,
		opts:      opts.withDefaults(),
		now:       clock,
		logger:    logger,
		entries:   make(map[string]*entry),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the background sweep. Call Stop to end it.
func (c *Cache) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.opts.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stopCh:
				return
			case <-ticker.C:
				c.Sweep()
			}
		}
	}()
}

// Stop ends the background sweep and waits for it to exit. Idempotent, and
// a no-op when Start was never called.
func (c *Cache) Stop() {
	c.mu.RLock()
	started := c.started
	c.mu.RUnlock()
	if !started {
		return
	}
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	<-c.done
}

// GetSessionContext returns the session's cached chunks, incrementing the
// message count and refreshing last-used. A missing or stale entry triggers
// a full reload; reload failure yields an empty chunk list, never an error,
// since "no context" is a valid degraded outcome for the chat flow.
func (c *Cache) GetSessionContext(ctx context.Context, sessionID, projectID, query string) []domain.ContentChunk {
	now := c.now()

	c.mu.RLock()
	e := c.entries[sessionID]
	c.mu.RUnlock()

	if e != nil {
		e.mu.Lock()
		reason := c.staleReason(e, now)
		if reason == "" {
			e.messageCount++
			e.lastUsed = now
			chunks := append([]domain.ContentChunk(nil), e.chunks...)
			e.mu.Unlock()
			metrics.ContextCacheTotal.WithLabelValues("hit").Inc()
			if err := c.sessions.Touch(ctx, sessionID); err != nil {
				c.logger.Warn("Failed to touch session record",
					zap.String("session_id", sessionID), zap.Error(err))
			}
			return chunks
		}
		e.mu.Unlock()
		metrics.ContextCacheReloadsTotal.WithLabelValues(reason).Inc()
	} else if rec, err := c.sessions.Get(ctx, sessionID); err == nil {
		// Known session without an in-memory entry: a restart dropped the
		// live context. The descriptor recovers the project when the caller
		// has none.
		if projectID == "" {
			projectID = rec.ProjectID
		}
		c.logger.Info("Restoring session context after restart",
			zap.String("session_id", sessionID),
			zap.String("project_id", projectID),
			zap.Time("cached_at", rec.CachedAt))
		metrics.ContextCacheReloadsTotal.WithLabelValues("restored").Inc()
	} else {
		metrics.ContextCacheReloadsTotal.WithLabelValues("empty").Inc()
	}

	metrics.ContextCacheTotal.WithLabelValues("miss").Inc()
	return c.LoadProjectContext(ctx, projectID, sessionID, query)
}

// RecordConfidence folds one answered turn's confidence into the running
// average, using the message count GetSessionContext already incremented.
// Unknown sessions are ignored.
func (c *Cache) RecordConfidence(sessionID string, confidence float64) {
	c.mu.RLock()
	e := c.entries[sessionID]
	c.mu.RUnlock()
	if e == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	n := e.messageCount
	if n < 1 {
		n = 1
	}
	if !e.hasConfidence {
		e.avgConfidence = confidence
		e.hasConfidence = true
		return
	}
	e.avgConfidence = (e.avgConfidence*float64(n-1) + confidence) / float64(n)
}

// LoadProjectContext builds a fresh entry for the session: the project's
// documents, their chunks capped per document, optionally pre-filtered to
// the semantically closest ones when an initial query is available. Any
// failure degrades to an empty chunk list.
func (c *Cache) LoadProjectContext(ctx context.Context, projectID, sessionID, initialQuery string) []domain.ContentChunk {
	now := c.now()

	project, docs, err := c.projects.GetProjectWithDocuments(ctx, projectID)
	if err != nil {
		c.logger.Warn("Failed to load project context",
			zap.String("project_id", projectID), zap.Error(err))
		return nil
	}

	refs := make([]domain.DocumentRef, len(docs))
	var flattened []domain.ContentChunk
	for i, doc := range docs {
		refs[i] = domain.DocumentRef{ID: doc.ID, Name: doc.Name}
		chunks, err := c.chunks.ListChunksByDocument(ctx, doc.ID)
		if err != nil {
			c.logger.Warn("Failed to load document chunks",
				zap.String("document_id", doc.ID), zap.Error(err))
			return nil
		}
		if len(chunks) > c.opts.MaxChunksPerDocument {
			chunks = chunks[:c.opts.MaxChunksPerDocument]
		}
		flattened = append(flattened, chunks...)
	}

	selected := flattened
	if initialQuery != "" && len(flattened) > 0 {
		if filtered := c.prefilter(ctx, project, flattened, initialQuery); len(filtered) > 0 {
			selected = filtered
		}
	}
	if len(selected) > c.opts.MaxChunks {
		selected = selected[:c.opts.MaxChunks]
	}

	e := &entry{
		projectID: projectID,
		documents: refs,
		chunks:    selected,
		createdAt: now,
		lastUsed:  now,
	}
	c.mu.Lock()
	c.entries[sessionID] = e
	c.mu.Unlock()

	c.persistDescriptor(ctx, sessionID, projectID, refs, len(selected), now)
	return append([]domain.ContentChunk(nil), selected...)
}

// prefilter narrows the flattened chunk set to the ones the retrieval
// pipeline ranks closest to the initial query, remapped back to full chunk
// records. Errors fall back to the unfiltered set.
func (c *Cache) prefilter(
	ctx context.Context, project domain.Project, flattened []domain.ContentChunk, query string,
) []domain.ContentChunk {
	results, err := c.retriever.Search(ctx, query, domain.SearchOptions{
		TenantID: project.TenantID,
		Limit:    c.opts.PrefilterLimit,
	})
	if err != nil {
		c.logger.Warn("Context pre-filter failed, keeping full chunk set", zap.Error(err))
		return nil
	}

	byID := make(map[string]domain.ContentChunk, len(flattened))
	for _, ch := range flattened {
		byID[ch.ID] = ch
	}

	var selected []domain.ContentChunk
	var missing []string
	for _, r := range results {
		if ch, ok := byID[r.ID]; ok {
			selected = append(selected, ch)
		} else if r.Source == domain.SourceDocument {
			missing = append(missing, r.ID)
		}
	}
	if len(missing) > 0 {
		fetched, err := c.chunks.ListChunksByIDs(ctx, missing)
		if err != nil {
			c.logger.Warn("Failed to remap pre-filtered chunks", zap.Error(err))
		} else {
			selected = append(selected, fetched...)
		}
	}
	return selected
}

// InvalidateSession drops one session's entry and its durable descriptor.
func (c *Cache) InvalidateSession(ctx context.Context, sessionID string) {
	c.mu.Lock()
	_, existed := c.entries[sessionID]
	delete(c.entries, sessionID)
	c.mu.Unlock()

	if existed {
		metrics.ContextCacheReloadsTotal.WithLabelValues("invalidated").Inc()
	}
	if err := c.sessions.Delete(ctx, sessionID); err != nil {
		c.logger.Warn("Failed to delete session record",
			zap.String("session_id", sessionID), zap.Error(err))
	}
}

// InvalidateProject drops every session entry caching the given project.
// Called when documents are added to or removed from the project: the cached
// chunk sets are now potentially incomplete, and correctness beats hit rate.
func (c *Cache) InvalidateProject(ctx context.Context, projectID string) int {
	c.mu.Lock()
	var victims []string
	for sessionID, e := range c.entries {
		if e.projectID == projectID {
			victims = append(victims, sessionID)
			delete(c.entries, sessionID)
		}
	}
	c.mu.Unlock()

	for _, sessionID := range victims {
		metrics.ContextCacheReloadsTotal.WithLabelValues("invalidated").Inc()
		if err := c.sessions.Delete(ctx, sessionID); err != nil {
			c.logger.Warn("Failed to delete session record",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	return len(victims)
}

// Sweep purges every stale entry regardless of access patterns, bounding
// memory held by abandoned sessions.
func (c *Cache) Sweep() {
	now := c.now()

	c.mu.Lock()
	var victims []string
	for sessionID, e := range c.entries {
		e.mu.Lock()
		stale := c.staleReason(e, now) != ""
		e.mu.Unlock()
		if stale {
			victims = append(victims, sessionID)
			delete(c.entries, sessionID)
		}
	}
	c.mu.Unlock()

	if len(victims) == 0 {
		return
	}
	c.logger.Debug("Swept stale session contexts", zap.Int("count", len(victims)))
	for _, sessionID := range victims {
		if err := c.sessions.Delete(context.Background(), sessionID); err != nil {
			c.logger.Warn("Failed to delete session record",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	}
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// staleReason reports why an entry must reload, or "" while it is valid.
// Caller holds e.mu.
func (c *Cache) staleReason(e *entry, now time.Time) string {
	if now.Sub(e.createdAt) > c.opts.TTL {
		return "ttl"
	}
	if e.messageCount >= c.opts.MaxMessages {
		return "message_ceiling"
	}
	if e.hasConfidence && e.messageCount > c.opts.ConfidenceMinMessages && e.avgConfidence < c.opts.ConfidenceFloor {
		return "confidence"
	}
	return ""
}

func (c *Cache) persistDescriptor(
	ctx context.Context, sessionID, projectID string,
	refs []domain.DocumentRef, chunkCount int, now time.Time,
) {
	ids := make([]string, len(refs))
	for i, ref := range refs {
		ids[i] = ref.ID
	}
	err := c.sessions.Save(ctx, domain.SessionRecord{
		SessionID:   sessionID,
		ProjectID:   projectID,
		DocumentIDs: ids,
		ChunkCount:  chunkCount,
		CachedAt:    now,
	})
	if err != nil {
		c.logger.Warn("Failed to persist session descriptor",
			zap.String("session_id", sessionID), zap.Error(err))
	}
}
