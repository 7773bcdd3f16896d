// Package remotelist keeps display-ready copies of the backend's collections
// (services, projects, blog posts, careers) for the surfaces that list them.
package remotelist

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"itsite/models"
)

type State int

const (
	Idle State = iota
	Loading
	Ready
	Failed
)

var stateNames = [...]string{"idle", "loading", "ready", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// Trigger is the UI event that asks for data.
type Trigger int

const (
	TriggerMount Trigger = iota
	TriggerMenuOpened
	TriggerRetry
	// TriggerRefresh always fetches and supersedes any fetch in flight.
	TriggerRefresh
)

func ParseTrigger(s string) (Trigger, error) {
	switch s {
	case "", "mount":
		return TriggerMount, nil
	case "open":
		return TriggerMenuOpened, nil
	case "retry":
		return TriggerRetry, nil
	case "refresh":
		return TriggerRefresh, nil
	}
	return 0, fmt.Errorf("unknown trigger %q", s)
}

// Fetcher returns the raw body of a collection endpoint. backend.Client implements it.
type Fetcher interface {
	Get(ctx context.Context, path string) ([]byte, error)
}

type Options struct {
	// ImageBaseURL prefixes relative image paths.
	ImageBaseURL string
	// Timeout bounds each fetch. Zero means no limit.
	Timeout time.Duration
	// MaxAge is how long ready data satisfies a non-refresh trigger. Zero means forever.
	MaxAge time.Duration
	Logger *slog.Logger
	Now    func() time.Time
}

type Snapshot struct {
	Collection string        `json:"collection"`
	State      State         `json:"state"`
	Items      []models.Item `json:"items"`
	Error      string        `json:"error,omitempty"`
	Selected   string        `json:"selected,omitempty"`
	FetchedAt  time.Time     `json:"fetchedAt,omitzero"`
}

// WithSelection returns a copy whose selection is derived from previous.
func (s Snapshot) WithSelection(previous string) Snapshot {
	s.Selected = SelectDefault(s.Items, previous)
	return s
}

// Sync owns one collection's tri-state, its items and the selected item.
// Every fetch is stamped with a generation; a response is applied only while
// its generation is current and the surface is still mounted.
type Sync struct {
	col     Collection
	fetcher Fetcher
	opts    Options

	mu         sync.Mutex
	state      State
	items      []models.Item
	errMsg     string
	selected   string
	fetchedAt  time.Time
	generation uint64
	mounted    bool

	subMu   sync.Mutex
	nextSub int
	subs    map[int]func(Snapshot)
}

func New(col Collection, fetcher Fetcher, opts Options) *Sync {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Sync{
		col:     col,
		fetcher: fetcher,
		opts:    opts,
		subs:    make(map[int]func(Snapshot)),
	}
}

func (s *Sync) Collection() Collection { return s.col }

// Fetch loads the collection if trigger warrants it and blocks until that
// fetch resolves. It reports whether a fetch was issued.
func (s *Sync) Fetch(ctx context.Context, trigger Trigger) bool {
	s.mu.Lock()
	if !s.shouldFetchLocked(trigger) {
		s.mu.Unlock()
		return false
	}
	s.generation++
	gen := s.generation
	s.mounted = true
	s.state = Loading
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	log := s.opts.Logger.With("collection", s.col.Name, "generation", gen)
	log.Debug("fetching collection")

	items, err := s.load(ctx)

	s.mu.Lock()
	if gen != s.generation || !s.mounted {
		s.mu.Unlock()
		log.Debug("discarding stale collection response")
		return true
	}
	if err != nil {
		s.state = Failed
		s.items = nil
		s.selected = ""
		s.fetchedAt = time.Time{}
		s.errMsg = err.Error()
		if s.errMsg == "" {
			s.errMsg = "unknown error"
		}
	} else {
		s.state = Ready
		s.items = items
		s.errMsg = ""
		s.selected = SelectDefault(items, s.selected)
		s.fetchedAt = s.opts.Now()
	}
	snap = s.snapshotLocked()
	s.mu.Unlock()

	if err != nil {
		log.Warn("collection fetch failed", "error", err)
	} else {
		log.Debug("collection ready", "items", len(items))
	}
	s.notify(snap)
	return true
}

func (s *Sync) shouldFetchLocked(trigger Trigger) bool {
	if trigger == TriggerRefresh {
		return true
	}
	switch s.state {
	case Loading:
		return false
	case Ready:
		return s.opts.MaxAge > 0 && s.opts.Now().Sub(s.fetchedAt) >= s.opts.MaxAge
	default:
		return true
	}
}

func (s *Sync) load(ctx context.Context) ([]models.Item, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	body, err := s.fetcher.Get(ctx, s.col.Path)
	if err != nil {
		return nil, err
	}
	raws, err := Decode(body)
	if err != nil {
		return nil, err
	}

	items := TransformAll(raws, s.opts.ImageBaseURL, s.col)
	if s.col.DateField != "" {
		SortByDate(items)
	}
	if s.col.Limit > 0 && len(items) > s.col.Limit {
		items = items[:s.col.Limit]
	}
	return items, nil
}

// Close marks the surface hidden or unmounted. A fetch still in flight will
// not be applied; the next trigger starts over.
func (s *Sync) Close() {
	s.mu.Lock()
	s.mounted = false
	s.generation++
	changed := false
	if s.state == Loading {
		changed = true
		if s.fetchedAt.IsZero() {
			s.state = Idle
		} else {
			s.state = Ready
		}
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if changed {
		s.notify(snap)
	}
}

// Select records the hovered/active item. Unknown ids are ignored.
func (s *Sync) Select(id string) bool {
	s.mu.Lock()
	if s.state != Ready || !contains(s.items, id) {
		s.mu.Unlock()
		return false
	}
	changed := s.selected != id
	s.selected = id
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if changed {
		s.notify(snap)
	}
	return true
}

func (s *Sync) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Sync) snapshotLocked() Snapshot {
	items := make([]models.Item, len(s.items))
	copy(items, s.items)
	return Snapshot{
		Collection: s.col.Name,
		State:      s.state,
		Items:      items,
		Error:      s.errMsg,
		Selected:   s.selected,
		FetchedAt:  s.fetchedAt,
	}
}

// Subscribe calls fn with a snapshot after every state or selection change.
func (s *Sync) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Sync) notify(snap Snapshot) {
	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
