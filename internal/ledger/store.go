package ledger

import (
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xelth-com/eckpunchgo/internal/database"
	"github.com/xelth-com/eckpunchgo/internal/models"
	"go.uber.org/zap"
)

const readAttempts = 3

// Options configures a Store
type Options struct {
	DB       database.Options
	Location string
	DeviceID string
	// Now overrides the clock, mostly for tests
	Now func() time.Time
}

// Change describes a committed ledger mutation
type Change struct {
	Punch *models.Punch // set for a new punch
	Reset bool          // set after ResetAll
}

// Store persists punches and the employee directory in one embedded file.
//
// Mutations are serialized by a single mutex and every operation works on its
// own short-lived handle bounded by the busy timeout. Reads skip the mutex and
// retry on contention.
type Store struct {
	opts Options
	log  *zap.Logger

	mu       sync.Mutex
	closed   atomic.Bool
	degraded atomic.Bool

	obsMu     sync.RWMutex
	observers []func(Change)
}

// Open migrates the schema and runs the startup self-test.
// A failed self-test is logged and flagged, it never aborts Open.
func Open(opts Options, log *zap.Logger) (*Store, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{opts: opts, log: log.Named("ledger")}

	db, err := database.Connect(opts.DB)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := db.AutoMigrate(&models.Punch{}, &models.Employee{}); err != nil {
		return nil, err
	}

	problems, err := db.QuickCheck()
	switch {
	case err != nil:
		s.degraded.Store(true)
		s.log.Warn("integrity self-test could not run", zap.Error(err))
	case len(problems) > 0:
		s.degraded.Store(true)
		s.log.Warn("integrity self-test failed", zap.Strings("problems", problems))
	default:
		s.log.Info("store opened", zap.String("path", opts.DB.Path))
	}

	return s, nil
}

// Close ends the store lifecycle. Later calls fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed.Store(true)
	return nil
}

// Degraded reports whether the startup self-test failed
func (s *Store) Degraded() bool {
	return s.degraded.Load()
}

// Path returns the store file location
func (s *Store) Path() string {
	return s.opts.DB.Path
}

// OnChange registers fn to run after every committed punch or reset.
// Observers run outside the store lock and must not block.
func (s *Store) OnChange(fn func(Change)) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Store) emit(c Change) {
	s.obsMu.RLock()
	observers := append([]func(Change){}, s.observers...)
	s.obsMu.RUnlock()
	for _, fn := range observers {
		fn(c)
	}
}

func (s *Store) withHandle(fn func(db *database.DB) error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	db, err := database.Connect(s.opts.DB)
	if err != nil {
		return classify(err)
	}
	defer db.Close()
	return classify(fn(db))
}

// write runs fn under the process-wide mutation lock
func (s *Store) write(fn func(db *database.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withHandle(fn)
}

// read runs fn on an independent handle, retrying transient contention
func (s *Store) read(fn func(db *database.DB) error) error {
	var err error
	for attempt := 1; attempt <= readAttempts; attempt++ {
		err = s.withHandle(fn)
		if !errors.Is(err, ErrTransient) {
			return err
		}
		s.log.Debug("read contention, retrying", zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
	}
	return err
}

// Snapshot writes a consistent copy of the store file to dst
func (s *Store) Snapshot(dst string) error {
	err := s.write(func(db *database.DB) error {
		return db.SnapshotTo(dst)
	})
	if err != nil {
		s.log.Error("snapshot failed", zap.String("dst", dst), zap.Error(err))
	}
	return err
}

func (s *Store) sizeOnDisk() int64 {
	var total int64
	for _, p := range []string{s.opts.DB.Path, s.opts.DB.Path + "-wal"} {
		if info, err := os.Stat(p); err == nil {
			total += info.Size()
		}
	}
	return total
}
