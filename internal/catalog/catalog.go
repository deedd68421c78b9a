package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"reactsql/internal/dialect"
)

// DocumentSink receives a human-readable description of a freshly
// analysed database, for onboarding into the document repository
// (SPEC_FULL §3.B). Nil is a valid, no-op sink.
type DocumentSink interface {
	IndexSchemaSnapshot(ctx context.Context, snapshot *SchemaSnapshot)
}

// Catalog owns one SchemaSnapshot per database id, introspecting lazily
// on first use and caching thereafter. A singleflight.Group collapses
// concurrent first-use requests for the same dbId into one
// introspection pass, mirroring the dedup the teacher's pipeline relies
// on for its own per-request caches.
type Catalog struct {
	mu        sync.RWMutex
	snapshots map[string]*SchemaSnapshot
	flight    singleflight.Group
	sink      DocumentSink
}

// NewCatalog constructs an empty Catalog. sink may be nil.
func NewCatalog(sink DocumentSink) *Catalog {
	return &Catalog{
		snapshots: make(map[string]*SchemaSnapshot),
		sink:      sink,
	}
}

// Snapshot returns the cached SchemaSnapshot for desc.ID, introspecting
// it on first request. A database that does not exist (SQL Server
// error 4060) is reported as a Completed snapshot with zero tables
// rather than a failure, per spec.md §4.B.
func (c *Catalog) Snapshot(ctx context.Context, desc DatabaseDescriptor) (*SchemaSnapshot, error) {
	c.mu.RLock()
	if s, ok := c.snapshots[desc.ID]; ok {
		c.mu.RUnlock()
		return s, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.flight.Do(desc.ID, func() (interface{}, error) {
		return c.analyse(ctx, desc)
	})
	if err != nil {
		return nil, err
	}
	snapshot := result.(*SchemaSnapshot)

	c.mu.Lock()
	c.snapshots[desc.ID] = snapshot
	c.mu.Unlock()

	if c.sink != nil && snapshot.Status == StatusCompleted {
		c.sink.IndexSchemaSnapshot(ctx, snapshot)
	}
	return snapshot, nil
}

// All returns every snapshot analysed so far, in no particular order.
func (c *Catalog) All() []*SchemaSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*SchemaSnapshot, 0, len(c.snapshots))
	for _, s := range c.snapshots {
		out = append(out, s)
	}
	return out
}

// Invalidate drops the cached snapshot for dbId, forcing the next
// Snapshot call to re-introspect.
func (c *Catalog) Invalidate(dbId string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snapshots, dbId)
}

func (c *Catalog) analyse(ctx context.Context, desc DatabaseDescriptor) (*SchemaSnapshot, error) {
	snapshot := &SchemaSnapshot{
		DBID:        desc.ID,
		DisplayName: desc.DisplayName,
		Dialect:     desc.Dialect,
		Status:      StatusInProgress,
	}

	adapter, err := dialect.New(desc.Dialect)
	if err != nil {
		snapshot.Status = StatusFailed
		snapshot.Error = err.Error()
		return snapshot, nil
	}

	db, err := adapter.Open(ctx, desc.ConnectionString)
	if err != nil {
		if dialect.IsDatabaseDoesNotExistError(err) {
			snapshot.Status = StatusCompleted
			snapshot.LastAnalysed = time.Now()
			return snapshot, nil
		}
		snapshot.Status = StatusFailed
		snapshot.Error = err.Error()
		return snapshot, nil
	}
	defer db.Close()

	introspector := NewIntrospector(string(desc.Dialect))
	if introspector == nil {
		snapshot.Status = StatusFailed
		snapshot.Error = fmt.Sprintf("no introspector registered for dialect %q", desc.Dialect)
		return snapshot, nil
	}

	allTables, err := introspector.ListTables(ctx, db)
	if err != nil {
		if dialect.IsDatabaseDoesNotExistError(err) {
			snapshot.Status = StatusCompleted
			snapshot.LastAnalysed = time.Now()
			return snapshot, nil
		}
		snapshot.Status = StatusFailed
		snapshot.Error = err.Error()
		return snapshot, nil
	}

	tableNames := applyTableFilter(allTables, desc.IncludedTables, desc.ExcludedTables)

	var totalRows int64
	for _, name := range tableNames {
		table, err := introspector.DescribeTable(ctx, db, name)
		if err != nil {
			snapshot.Status = StatusFailed
			snapshot.Error = fmt.Sprintf("describe %s: %v", name, err)
			return snapshot, nil
		}

		if count, err := introspector.CountRows(ctx, db, name); err == nil {
			table.ApproxRowCount = count
			totalRows += count
		}

		if rows, err := introspector.SampleRows(ctx, db, name, 3); err == nil {
			table.SampleRows = rows
		}

		snapshot.Tables = append(snapshot.Tables, table)
	}

	snapshot.TotalRowCount = totalRows
	snapshot.Status = StatusCompleted
	snapshot.LastAnalysed = time.Now()
	return snapshot, nil
}
