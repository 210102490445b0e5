package workspace

import (
	"context"
	"sync"
	"time"

	"media-boards/internal/blobstore"
	"media-boards/internal/boards"
	"media-boards/internal/events"
	"media-boards/internal/fsapi"
	"media-boards/internal/metrics"
	"media-boards/internal/scanner"
	"media-boards/internal/scheduler"
)

// Window sizing and materializer constants.
const (
	InitialWindow   = 24
	WindowGrowth    = 12
	BatchCap        = 8
	ScrollThreshold = 400
)

// DefaultRescanDelay lets the filesystem settle before rescanning after a
// board is created.
const DefaultRescanDelay = 100 * time.Millisecond

// RootStore persists the root between sessions.
type RootStore interface {
	GetRoot(ctx context.Context) (string, error)
	SaveRoot(ctx context.Context, path string) error
	ClearRoot(ctx context.Context) error
	GetLastScan(ctx context.Context) (time.Time, error)
	SetLastScan(ctx context.Context, t time.Time) error
}

// Publisher receives workspace events.
type Publisher interface {
	Publish(events.Event)
}

// Options wires the workspace to its host.
type Options struct {
	Opener    fsapi.Opener
	Store     RootStore // optional
	Scanner   *scanner.Scanner
	Blobs     *blobstore.Registry
	Scheduler scheduler.Scheduler
	Events    Publisher // optional

	// RescanDelay is the pause before the rescan that follows CreateFolder.
	RescanDelay time.Duration
	// After runs fn once d has elapsed. Defaults to time.AfterFunc.
	After func(d time.Duration, fn func())
	// OnRootChange is told the new root path, or "" when detached.
	OnRootChange func(path string)
	Now          func() time.Time
}

// Workspace holds the model.
type Workspace struct {
	opener   fsapi.Opener
	store    RootStore
	scanner  *scanner.Scanner
	blobs    *blobstore.Registry
	sched    scheduler.Scheduler
	events   Publisher
	after    func(time.Duration, func())
	onRoot   func(string)
	now      func() time.Time
	rescanIn time.Duration

	baseCtx context.Context
	stop    context.CancelFunc

	mu           sync.Mutex
	root         fsapi.DirHandle
	fallback     bool
	assets       []boards.Asset
	pending      []boards.Asset
	folders      []boards.Folder
	window       int
	selected     string
	loading      bool
	transferring bool
	progress     int
	errMsg       string
	lastNotice   *Notice
	lastScan     time.Time

	generation uint64 // bumped whenever the asset set is replaced
	scanSeq    uint64 // latest scan allowed to commit
	ticking    bool
	cancelTick func()
	closed     bool
}

// New creates a detached workspace.
func New(opts Options) *Workspace {
	if opts.Scanner == nil {
		opts.Scanner = scanner.New(0)
	}
	if opts.Blobs == nil {
		opts.Blobs = blobstore.NewRegistry()
	}
	if opts.Scheduler == nil {
		opts.Scheduler = scheduler.NewIdle(scheduler.DefaultDelay)
	}
	if opts.RescanDelay <= 0 {
		opts.RescanDelay = DefaultRescanDelay
	}
	if opts.After == nil {
		opts.After = func(d time.Duration, fn func()) { time.AfterFunc(d, fn) }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Workspace{
		opener:   opts.Opener,
		store:    opts.Store,
		scanner:  opts.Scanner,
		blobs:    opts.Blobs,
		sched:    opts.Scheduler,
		events:   opts.Events,
		after:    opts.After,
		onRoot:   opts.OnRootChange,
		now:      opts.Now,
		rescanIn: opts.RescanDelay,
		baseCtx:  ctx,
		stop:     cancel,
		window:   InitialWindow,
	}
}

// Blobs returns the registry that holds materialized references.
func (w *Workspace) Blobs() *blobstore.Registry {
	return w.blobs
}

// Snapshot is an immutable view of the model.
type Snapshot struct {
	Source         string          `json:"source"`
	RootPath       string          `json:"rootPath,omitempty"`
	Connected      bool            `json:"connected"`
	Fallback       bool            `json:"fallback"`
	Assets         []boards.Asset  `json:"assets"`
	Queued         []boards.Asset  `json:"queued"`
	Pending        int             `json:"pending"`
	Total          int             `json:"total"`
	Folders        []boards.Folder `json:"folders"`
	Window         int             `json:"window"`
	SelectedFolder string          `json:"selectedFolderId,omitempty"`
	Loading        bool            `json:"loading"`
	Transferring   bool            `json:"transferring"`
	Progress       int             `json:"progress"`
	Error          string          `json:"error,omitempty"`
	Notice         *Notice         `json:"notice,omitempty"`
	LastScan       *time.Time      `json:"lastScan,omitempty"`
	Generation     uint64          `json:"generation"`
}

// Snapshot copies the current model.
func (w *Workspace) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Snapshot{
		Connected:      w.root != nil || w.fallback,
		Fallback:       w.fallback,
		Assets:         append([]boards.Asset{}, w.assets...),
		Queued:         append([]boards.Asset{}, w.pending...),
		Pending:        len(w.pending),
		Total:          len(w.assets) + len(w.pending),
		Folders:        append([]boards.Folder{}, w.folders...),
		Window:         w.window,
		SelectedFolder: w.selected,
		Loading:        w.loading,
		Transferring:   w.transferring,
		Progress:       w.progress,
		Error:          w.errMsg,
		Generation:     w.generation,
	}

	switch {
	case w.root != nil:
		s.Source = w.root.Name()
		s.RootPath = w.root.Path()
	case w.fallback:
		s.Source = "Local Pool"
	default:
		s.Source = "No Source"
	}

	if w.lastNotice != nil && !w.lastNotice.Expired(w.now()) {
		n := *w.lastNotice
		s.Notice = &n
	}
	if !w.lastScan.IsZero() {
		t := w.lastScan
		s.LastScan = &t
	}
	return s
}

// Stats implements metrics.StatsProvider.
func (w *Workspace) Stats() metrics.Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return metrics.Stats{
		Materialized: len(w.assets),
		Pending:      len(w.pending),
		Folders:      len(w.folders),
		Window:       w.window,
		Fallback:     w.fallback,
	}
}

// Asset looks an asset up in either collection.
func (w *Workspace) Asset(id string) (boards.Asset, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if i := indexOf(w.assets, id); i >= 0 {
		return w.assets[i], true
	}
	if i := indexOf(w.pending, id); i >= 0 {
		return w.pending[i], true
	}
	return boards.Asset{}, false
}

// SelectFolder stores the selected board. An empty id clears the selection.
func (w *Workspace) SelectFolder(id string) error {
	w.mu.Lock()
	if id != "" && folderIndex(w.folders, id) < 0 {
		w.mu.Unlock()
		return ErrFolderNotFound
	}
	w.selected = id
	w.mu.Unlock()

	w.changed()
	return nil
}

// Close releases every reference and stops background work.
func (w *Workspace) Close() {
	w.mu.Lock()
	w.closed = true
	if w.cancelTick != nil {
		w.cancelTick()
		w.cancelTick = nil
	}
	w.revokeAllLocked()
	w.generation++
	w.mu.Unlock()

	w.stop()
}

// revokeAllLocked releases every materialized reference.
func (w *Workspace) revokeAllLocked() {
	for _, a := range w.assets {
		w.blobs.Revoke(a.URL)
	}
	for _, a := range w.pending {
		w.blobs.Revoke(a.URL)
	}
}

// removeAssetLocked drops id from both collections and releases its
// reference. Reports whether anything was removed.
func (w *Workspace) removeAssetLocked(id string) bool {
	removed := false
	if i := indexOf(w.assets, id); i >= 0 {
		w.blobs.Revoke(w.assets[i].URL)
		w.assets = append(w.assets[:i:i], w.assets[i+1:]...)
		removed = true
	}
	if i := indexOf(w.pending, id); i >= 0 {
		w.blobs.Revoke(w.pending[i].URL)
		w.pending = append(w.pending[:i:i], w.pending[i+1:]...)
		removed = true
	}
	return removed
}

func indexOf(assets []boards.Asset, id string) int {
	for i := range assets {
		if assets[i].ID == id {
			return i
		}
	}
	return -1
}

func folderIndex(folders []boards.Folder, id string) int {
	for i := range folders {
		if folders[i].ID == id {
			return i
		}
	}
	return -1
}
