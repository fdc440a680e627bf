// Package statefiles implements the provider interface over the state
// directory the workflow CLI writes, watching it with fsnotify and
// debouncing the CLI's rapid successive writes.
package statefiles

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hochfrequenz/claude-exec-monitor/internal/domain"
)

// DefaultStateDir is the directory name the CLI writes under a project root
const DefaultStateDir = ".claude-workflow"

const defaultDebounce = 200 * time.Millisecond

// Provider watches a project's workflow state directory and serves bulk
// reads from the same files. It implements session.Provider.
type Provider struct {
	root     string // state directory
	debounce time.Duration

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer

	subs subscribers
}

// subscribers holds callback registries keyed by subscription id
type subscribers struct {
	mu       sync.Mutex
	nextID   int
	state    map[int]func(any)
	plan     map[int]func(*domain.ExecutionPlan)
	queue    map[int]func([]domain.QueueItem)
	release  map[int]func(domain.Release)
	switched map[int]func(string)
}

// Option configures a Provider
type Option func(*Provider)

// WithDebounce overrides the write-debounce window
func WithDebounce(d time.Duration) Option {
	return func(p *Provider) { p.debounce = d }
}

// New creates a provider over the state directory of the given project root
func New(projectRoot, stateDir string, opts ...Option) (*Provider, error) {
	if stateDir == "" {
		stateDir = DefaultStateDir
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	p := &Provider{
		root:     filepath.Join(projectRoot, stateDir),
		debounce: defaultDebounce,
		watcher:  watcher,
		pending:  make(map[string]struct{}),
		subs: subscribers{
			state:    make(map[int]func(any)),
			plan:     make(map[int]func(*domain.ExecutionPlan)),
			queue:    make(map[int]func([]domain.QueueItem)),
			release:  make(map[int]func(domain.Release)),
			switched: make(map[int]func(string)),
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Start begins watching the state directory. The directory may not exist
// yet; the CLI creates it on first run, so a missing directory is retried
// on the next Start.
func (p *Provider) Start(ctx context.Context) error {
	if _, err := os.Stat(p.root); err != nil {
		return err
	}
	if err := p.watcher.Add(p.root); err != nil {
		return err
	}
	// Plans live in a subdirectory; watch it when present.
	if dir := filepath.Join(p.root, plansDir); dirExists(dir) {
		if err := p.watcher.Add(dir); err != nil {
			return err
		}
	}

	ctx, p.cancel = context.WithCancel(ctx)
	go p.run(ctx)
	return nil
}

// Stop stops watching
func (p *Provider) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.watcher.Close()
}

func (p *Provider) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			p.handleEvent(event)
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("watch error: %v", err)
		}
	}
}

func (p *Provider) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	// The plans directory can appear after Start.
	if event.Op&fsnotify.Create != 0 && filepath.Base(event.Name) == plansDir && dirExists(event.Name) {
		p.watcher.Add(event.Name)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending[event.Name] = struct{}{}
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.debounce, p.flush)
}

// flush dispatches one callback per changed file. Malformed files dispatch
// nothing; the CLI's next good write corrects the view.
func (p *Provider) flush() {
	p.mu.Lock()
	pending := p.pending
	p.pending = make(map[string]struct{})
	p.mu.Unlock()

	for path := range pending {
		p.dispatch(path)
	}
}

func (p *Provider) dispatch(path string) {
	name := filepath.Base(path)
	switch name {
	case stateFile:
		raw, err := readRawState(path)
		if err != nil || raw == nil {
			return
		}
		p.subs.eachState(raw)
	case queueFile:
		items, err := readQueue(path)
		if err != nil {
			return
		}
		p.subs.eachQueue(items)
	case releasesFile:
		releases, err := readReleases(path)
		if err != nil {
			return
		}
		for _, rel := range releases {
			p.subs.eachRelease(rel)
		}
	case projectFile:
		switchedTo, err := readProjectMarker(path)
		if err != nil {
			return
		}
		p.subs.eachSwitched(switchedTo)
	default:
		if planIssueNumber(name) < 0 {
			return
		}
		plan, err := readPlan(path)
		if err != nil {
			return
		}
		p.subs.eachPlan(plan)
	}
}

// State reads the raw global state payload
func (p *Provider) State(ctx context.Context) (any, error) {
	return readRawState(filepath.Join(p.root, stateFile))
}

// Plan reads the plan file for an issue; nil when none exists
func (p *Provider) Plan(ctx context.Context, issue int) (*domain.ExecutionPlan, error) {
	path := findPlanFile(filepath.Join(p.root, plansDir), issue)
	if path == "" {
		return nil, nil
	}
	return readPlan(path)
}

// Queue reads the work queue
func (p *Provider) Queue(ctx context.Context) ([]domain.QueueItem, error) {
	return readQueue(filepath.Join(p.root, queueFile))
}

// Releases reads the release registry
func (p *Provider) Releases(ctx context.Context) ([]domain.Release, error) {
	return readReleases(filepath.Join(p.root, releasesFile))
}

// OnStateChange registers a raw-state callback
func (p *Provider) OnStateChange(fn func(any)) func() {
	return register(&p.subs, p.subs.state, fn)
}

// OnPlanChange registers a plan callback
func (p *Provider) OnPlanChange(fn func(*domain.ExecutionPlan)) func() {
	return register(&p.subs, p.subs.plan, fn)
}

// OnQueueChange registers a queue callback
func (p *Provider) OnQueueChange(fn func([]domain.QueueItem)) func() {
	return register(&p.subs, p.subs.queue, fn)
}

// OnReleaseChange registers a release callback
func (p *Provider) OnReleaseChange(fn func(domain.Release)) func() {
	return register(&p.subs, p.subs.release, fn)
}

// OnProjectSwitched registers a switch-completed callback
func (p *Provider) OnProjectSwitched(fn func(string)) func() {
	return register(&p.subs, p.subs.switched, fn)
}

func register[T any](s *subscribers, m map[int]T, fn T) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	m[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(m, id)
		s.mu.Unlock()
	}
}

func (s *subscribers) eachState(raw any) {
	for _, fn := range snapshotSubs(s, s.state) {
		fn(raw)
	}
}

func (s *subscribers) eachPlan(plan *domain.ExecutionPlan) {
	for _, fn := range snapshotSubs(s, s.plan) {
		fn(plan)
	}
}

func (s *subscribers) eachQueue(items []domain.QueueItem) {
	for _, fn := range snapshotSubs(s, s.queue) {
		fn(items)
	}
}

func (s *subscribers) eachRelease(rel domain.Release) {
	for _, fn := range snapshotSubs(s, s.release) {
		fn(rel)
	}
}

func (s *subscribers) eachSwitched(path string) {
	for _, fn := range snapshotSubs(s, s.switched) {
		fn(path)
	}
}

func snapshotSubs[T any](s *subscribers, m map[int]T) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, 0, len(m))
	for _, fn := range m {
		out = append(out, fn)
	}
	return out
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
