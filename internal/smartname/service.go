package smartname

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/iot-admin-core/internal/objects"
)

// Store is the object access the Service needs.
type Store interface {
	GetObject(ctx context.Context, id string) (*objects.Object, error)
	SetObject(ctx context.Context, obj *objects.Object) error
}

// Logger defines the logging interface used by the Service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Result reports what an update did.
type Result string

// Update results.
const (
	ResultUpdated Result = "updated"
	ResultSkipped Result = "skipped"
	ResultFailed  Result = "failed"
)

// Observer is notified after every update attempt.
type Observer func(op string, result Result)

// Service runs smart-name edits as read-modify-write cycles against a
// Store. The object is fetched fresh before every mutation; concurrent
// writers resolve as last-writer-wins.
type Service struct {
	store    Store
	opts     Options
	logger   Logger
	observer Observer
}

// NewService creates a Service writing with the given instance options.
func NewService(store Store, opts Options) *Service {
	return &Service{store: store, opts: opts, logger: noopLogger{}}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// SetObserver registers a callback for update outcomes (metrics).
func (s *Service) SetObserver(o Observer) {
	s.observer = o
}

// Options returns the instance options the service writes with.
func (s *Service) Options() Options {
	return s.opts
}

// GetSmartName returns the normalized descriptor stored for id.
func (s *Service) GetSmartName(ctx context.Context, id string) (Value, error) {
	obj, err := s.store.GetObject(ctx, id)
	if err != nil {
		return Value{}, err
	}
	return Read(obj, s.opts)
}

// UpdateSmartName applies patch to the object id and writes it back.
//
// Returns the stored object, or (nil, nil) when the object has no common
// section and the write was skipped. An empty patch writes nothing and
// returns the current object.
func (s *Service) UpdateSmartName(ctx context.Context, id string, patch Patch) (*objects.Object, error) {
	if patch.IsEmpty() {
		obj, err := s.store.GetObject(ctx, id)
		if err != nil {
			return nil, err
		}
		s.observe("smartname", ResultSkipped)
		return obj, nil
	}
	return s.modify(ctx, "smartname", id, func(obj *objects.Object) error {
		return Update(obj, patch, s.opts)
	})
}

// UpdateGoogleHome applies a Google Home patch to the object id.
// Invalid attribute JSON is reported before anything is written.
func (s *Service) UpdateGoogleHome(ctx context.Context, id string, patch GoogleHomePatch) (*objects.Object, error) {
	return s.modify(ctx, "googlehome", id, func(obj *objects.Object) error {
		return UpdateGoogleHome(obj, patch, s.opts)
	})
}

func (s *Service) modify(ctx context.Context, op, id string, mutate func(*objects.Object) error) (*objects.Object, error) {
	obj, err := s.store.GetObject(ctx, id)
	if err != nil {
		s.observe(op, ResultFailed)
		return nil, err
	}

	if err := mutate(obj); err != nil {
		if errors.Is(err, ErrNoCommon) {
			s.logger.Debug("smart name write skipped", "id", id, "reason", err)
			s.observe(op, ResultSkipped)
			return nil, nil
		}
		s.observe(op, ResultFailed)
		return nil, err
	}

	if err := s.store.SetObject(ctx, obj); err != nil {
		s.observe(op, ResultFailed)
		return nil, fmt.Errorf("storing %s: %w", id, err)
	}

	s.logger.Info("smart name updated", "id", id, "op", op,
		"location", Resolve(s.opts.NoCommon, s.opts.InstanceID).String())
	s.observe(op, ResultUpdated)
	return obj, nil
}

func (s *Service) observe(op string, result Result) {
	if s.observer != nil {
		s.observer(op, result)
	}
}
