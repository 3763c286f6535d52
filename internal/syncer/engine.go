package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/we-worker/All-In-One-Web/internal/remote"
)

// remotePathPrefix namespaces envelope files in the remote repository.
const remotePathPrefix = "sync-"

// RemoteStore is the slice of the provider adapter the engine needs.
// Defined at the consumer per "accept interfaces, return structs";
// remote.Adapter is the real implementation.
type RemoteStore interface {
	GetFile(ctx context.Context, path string) (*remote.File, error)
	PutFile(ctx context.Context, path string, content []byte, message, revisionToken string) error
	DeleteFile(ctx context.Context, path, message string) error
}

// Envelope is the remote file body: the module's data plus the sync
// timestamp and the content hash of data at push time.
type Envelope struct {
	Data         any    `json:"data"`
	LastSyncTime string `json:"lastSyncTime"`
	Hash         string `json:"hash"`
}

// Status is one module's sync state. NeedsSync is true when the local and
// remote hashes differ; a module with no remote copy yet has an empty
// CloudHash, which always counts as a mismatch. A module whose check
// failed reports empty hashes and NeedsSync=false.
type Status struct {
	Name         string `json:"name"`
	Filename     string `json:"filename"`
	LocalHash    string `json:"localHash"`
	CloudHash    string `json:"cloudHash"`
	NeedsSync    bool   `json:"needsSync"`
	LastSyncTime string `json:"lastSyncTime,omitempty"`
}

// ErrNoRemoteCopy is returned by PullModule when the module has never
// been pushed.
var ErrNoRemoteCopy = errors.New("syncer: no remote copy")

// Engine composes the remote store, the module registry, and the hash
// tracker into per-module and bulk sync operations.
type Engine struct {
	remote   RemoteStore
	registry *Registry
	hashes   *HashTracker
	logger   *slog.Logger

	// now is overridable for envelope-timestamp tests.
	now func() time.Time

	seedMu sync.Mutex
	seeded bool
}

// New creates an engine over the given remote store and registry.
func New(remoteStore RemoteStore, registry *Registry, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		remote:   remoteStore,
		registry: registry,
		hashes:   NewHashTracker(),
		logger:   logger,
		now:      time.Now,
	}
}

// Module returns the registered module named name.
func (e *Engine) Module(name string) (Module, bool) {
	return e.registry.Lookup(name)
}

// remotePath returns the repository path of a module's envelope. The
// filename is NFC-normalized so the same module maps to the same remote
// path regardless of how the host composed the name.
func remotePath(m Module) string {
	return remotePathPrefix + norm.NFC.String(m.Filename())
}

// commitMessage builds a provider commit message carrying a short run ID
// so related commits can be correlated in the repository history.
func commitMessage(verb, filename string) string {
	return fmt.Sprintf("sync: %s %s (%s)", verb, filename, uuid.NewString()[:8])
}

// PushModule wraps the module's current value in an envelope and writes it
// to the remote. On success the module's baseline becomes the new hash, so
// an immediately following push of unchanged data is a clean overwrite
// that leaves the remote hash identical.
func (e *Engine) PushModule(ctx context.Context, m Module) error {
	value, err := m.Read(ctx)
	if err != nil {
		return fmt.Errorf("syncer: reading module %s: %w", m.Name(), err)
	}

	hash, err := ContentHash(value)
	if err != nil {
		return err
	}

	env := Envelope{
		Data:         value,
		LastSyncTime: e.now().UTC().Format(time.RFC3339),
		Hash:         hash,
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("syncer: encoding envelope for %s: %w", m.Name(), err)
	}

	path := remotePath(m)
	if err := e.remote.PutFile(ctx, path, body, commitMessage("update", m.Filename()), ""); err != nil {
		return fmt.Errorf("syncer: pushing %s: %w", m.Name(), err)
	}

	e.hashes.Set(m.Name(), hash)

	e.logger.Info("pushed module",
		slog.String("module", m.Name()),
		slog.String("path", path),
		slog.String("hash", hash),
	)

	return nil
}

// PullModule reads the module's remote envelope and applies its data
// locally. A missing remote copy is a failure (ErrNoRemoteCopy). An
// envelope whose stored hash disagrees with the recomputed hash of its
// data is logged as an integrity warning but applied anyway — best-effort
// delivery is preferred over refusing the pull.
func (e *Engine) PullModule(ctx context.Context, m Module) error {
	path := remotePath(m)

	f, err := e.remote.GetFile(ctx, path)
	if err != nil {
		return fmt.Errorf("syncer: pulling %s: %w", m.Name(), err)
	}

	if f == nil {
		return fmt.Errorf("syncer: pulling %s: %w", m.Name(), ErrNoRemoteCopy)
	}

	var env Envelope
	if err := json.Unmarshal(f.Content, &env); err != nil {
		return fmt.Errorf("syncer: decoding envelope for %s: %w", m.Name(), err)
	}

	recomputed, err := ContentHash(env.Data)
	if err != nil {
		return err
	}

	if recomputed != env.Hash {
		e.logger.Warn("envelope hash mismatch, applying anyway",
			slog.String("module", m.Name()),
			slog.String("stored", env.Hash),
			slog.String("recomputed", recomputed),
		)
	}

	if err := m.Write(ctx, env.Data); err != nil {
		return fmt.Errorf("syncer: writing module %s: %w", m.Name(), err)
	}

	e.hashes.Set(m.Name(), env.Hash)

	e.logger.Info("pulled module",
		slog.String("module", m.Name()),
		slog.String("path", path),
		slog.String("hash", env.Hash),
	)

	return nil
}

// Status reports the sync state of every registered module. Each module's
// local read and remote read run concurrently and settle independently: a
// failure in one module zeroes that module's entry (NeedsSync=false) and
// never aborts or errors the others.
func (e *Engine) Status(ctx context.Context) []Status {
	modules := e.registry.All()
	statuses := make([]Status, len(modules))

	g, gctx := errgroup.WithContext(ctx)

	for i, m := range modules {
		i, m := i, m
		g.Go(func() error {
			statuses[i] = e.moduleStatus(gctx, m)
			return nil
		})
	}

	// Goroutines never return errors; Wait only joins them.
	_ = g.Wait()

	return statuses
}

// moduleStatus computes one module's status. Any failure — local read,
// hashing, remote read — degrades to an empty, non-syncable entry.
func (e *Engine) moduleStatus(ctx context.Context, m Module) Status {
	st := Status{Name: m.Name(), Filename: m.Filename()}

	value, err := m.Read(ctx)
	if err != nil {
		e.logger.Warn("status check failed",
			slog.String("module", m.Name()),
			slog.String("error", err.Error()),
		)

		return st
	}

	localHash, err := ContentHash(value)
	if err != nil {
		return st
	}

	f, err := e.remote.GetFile(ctx, remotePath(m))
	if err != nil {
		e.logger.Warn("status check failed",
			slog.String("module", m.Name()),
			slog.String("error", err.Error()),
		)

		return st
	}

	st.LocalHash = localHash

	if f != nil {
		var env Envelope
		if jsonErr := json.Unmarshal(f.Content, &env); jsonErr == nil {
			st.CloudHash = env.Hash
			st.LastSyncTime = env.LastSyncTime
		}
	}

	st.NeedsSync = st.LocalHash != st.CloudHash

	return st
}

// AutoSync reconciles every out-of-sync module. Direction: push when the
// local data changed since its baseline or the remote has no recorded
// hash; otherwise pull, treating the remote as authoritative for locally
// unchanged modules. This is last-writer-wins — two independent offline
// edits on different replicas are not detected and no merge is attempted.
func (e *Engine) AutoSync(ctx context.Context) error {
	e.ensureBaselines(ctx)

	runID := uuid.NewString()[:8]
	e.logger.Info("auto sync started", slog.String("run", runID))

	var errs []error

	for _, st := range e.Status(ctx) {
		if !st.NeedsSync {
			continue
		}

		m, ok := e.registry.Lookup(st.Name)
		if !ok {
			continue
		}

		value, err := m.Read(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("syncer: reading module %s: %w", m.Name(), err))
			continue
		}

		localChanged, err := e.hashes.HasChanged(m.Name(), value)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if localChanged || st.CloudHash == "" {
			err = e.PushModule(ctx, m)
		} else {
			err = e.PullModule(ctx, m)
		}

		if err != nil {
			errs = append(errs, err)
		}
	}

	e.logger.Info("auto sync finished",
		slog.String("run", runID),
		slog.Int("failures", len(errs)),
	)

	return errors.Join(errs...)
}

// ensureBaselines seeds the hash baseline for every module on the first
// AutoSync of the process, so "changed since baseline" has a meaningful
// answer from the second observation onward.
func (e *Engine) ensureBaselines(ctx context.Context) {
	e.seedMu.Lock()
	defer e.seedMu.Unlock()

	if e.seeded {
		return
	}

	for _, m := range e.registry.All() {
		value, err := m.Read(ctx)
		if err != nil {
			continue
		}

		// Only fills missing baselines: an existing baseline keeps its
		// pending change signal for the decision loop.
		if err := e.hashes.Seed(m.Name(), value); err != nil {
			e.logger.Warn("baseline seed failed",
				slog.String("module", m.Name()),
				slog.String("error", err.Error()),
			)
		}
	}

	e.seeded = true
}

// PushAll unconditionally pushes every module, ignoring status. Used for
// explicit full-resync requests.
func (e *Engine) PushAll(ctx context.Context) error {
	var errs []error

	for _, m := range e.registry.All() {
		if err := e.PushModule(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// PullAll unconditionally pulls every module, ignoring status. Modules
// with no remote copy are skipped rather than failed.
func (e *Engine) PullAll(ctx context.Context) error {
	var errs []error

	for _, m := range e.registry.All() {
		err := e.PullModule(ctx, m)
		if err != nil && !errors.Is(err, ErrNoRemoteCopy) {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Cleanup deletes the remote envelope of every registered module.
func (e *Engine) Cleanup(ctx context.Context) error {
	var errs []error

	for _, m := range e.registry.All() {
		path := remotePath(m)
		if err := e.remote.DeleteFile(ctx, path, commitMessage("remove", m.Filename())); err != nil {
			errs = append(errs, fmt.Errorf("syncer: cleaning up %s: %w", m.Name(), err))
		}
	}

	return errors.Join(errs...)
}

// ResetBaselines drops all hash baselines and forces the next AutoSync to
// reseed. Exposed for hosts that swap the underlying data wholesale.
func (e *Engine) ResetBaselines() {
	e.seedMu.Lock()
	e.seeded = false
	e.seedMu.Unlock()

	e.hashes.Clear()
}
