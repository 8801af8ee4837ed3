// Package base wraps a Backend with the path validation, reserved-path
// and read-only checks every backend variant needs, so each variant only
// has to implement its own storage mechanics.
//
// A concrete backend embeds Base through a private embed struct, so that
// calls are proxied through the shared checks before reaching the
// variant's own implementation:
//
//	type driver struct { ... internal ... }
//
//	type baseEmbed struct {
//		base.Base
//	}
//
//	type Driver struct {
//		baseEmbed
//	}
package base

import (
	"context"
	"time"

	"github.com/baraverkstad/rcstorage"
	"github.com/baraverkstad/rcstorage/internal/dcontext"
	"github.com/baraverkstad/rcstorage/metrics"
	"github.com/baraverkstad/rcstorage/path"
	"github.com/baraverkstad/rcstorage/registry/storage/driver"
)

// Base wraps an embedded Backend with common path and bounds checking.
// It implements driver.Backend by delegating everything except
// Lookup/Load/Store/Remove directly to the embedded backend.
type Base struct {
	driver.Backend
}

func (b *Base) durationDebugLog(ctx context.Context, methodName string) func() {
	startedAt := time.Now()
	timer := metrics.BackendLatency.WithValues(string(b.Backend.Type()), methodName)
	return func() {
		timer.UpdateSince(startedAt)
		dcontext.GetLoggerWithField(ctx, "duration", time.Since(startedAt)).Debug("Backend." + methodName)
	}
}

// Lookup wraps Lookup of the underlying backend.
func (b *Base) Lookup(ctx context.Context, p path.Path) (rcstorage.Metadata, bool, error) {
	defer b.durationDebugLog(ctx, "Lookup")()
	return b.Backend.Lookup(ctx, p)
}

// Load wraps Load of the underlying backend.
func (b *Base) Load(ctx context.Context, p path.Path) (any, bool, error) {
	defer b.durationDebugLog(ctx, "Load")()
	return b.Backend.Load(ctx, p)
}

// Store wraps Store of the underlying backend, rejecting writes to
// /.storageinfo, to index paths, and to any backend opened read-only.
func (b *Base) Store(ctx context.Context, p path.Path, data any) error {
	if !b.Backend.ReadWrite() {
		return &rcstorage.ReadOnlyError{Path: p.String()}
	}
	if p.String() == driver.StorageInfoPath {
		return &rcstorage.ReadOnlyError{Path: p.String()}
	}
	if p.IsIndex() {
		return &rcstorage.ReadOnlyError{Path: p.String()}
	}
	defer b.durationDebugLog(ctx, "Store")()
	return b.Backend.Store(ctx, p, data)
}

// Remove wraps Remove of the underlying backend, rejecting removal of
// /.storageinfo and enforcing the read-only flag.
func (b *Base) Remove(ctx context.Context, p path.Path) error {
	if !b.Backend.ReadWrite() {
		return &rcstorage.ReadOnlyError{Path: p.String()}
	}
	if p.String() == driver.StorageInfoPath {
		return &rcstorage.ReadOnlyError{Path: p.String()}
	}
	defer b.durationDebugLog(ctx, "Remove")()
	return b.Backend.Remove(ctx, p)
}
