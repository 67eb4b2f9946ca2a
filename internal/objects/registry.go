package objects

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DefaultSource is the writer name recorded on states set by the registry.
const DefaultSource = "system.adapter.iotadmin"

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides object and state access with caching, change
// notification and optional bus publishing.
//
// The object cache is populated on startup via RefreshCache() and kept in
// sync by every write. States are cached on first read or write.
//
// All public methods are thread-safe.
type Registry struct {
	repo Repository

	cache   map[string]*Object
	states  map[string]*State
	cacheMu sync.RWMutex
	loaded  bool // cache holds every object

	stateSubs  *subscriptions[StateListener]
	objectSubs *subscriptions[ObjectListener]

	publisher Publisher
	source    string
	logger    Logger
}

// NewRegistry creates a new object registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:       repo,
		cache:      make(map[string]*Object),
		states:     make(map[string]*State),
		stateSubs:  newSubscriptions[StateListener](),
		objectSubs: newSubscriptions[ObjectListener](),
		source:     DefaultSource,
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetPublisher mirrors every successful write onto p. Publishing errors are
// logged and never fail the write.
func (r *Registry) SetPublisher(p Publisher) {
	r.publisher = p
}

// SetSource sets the writer name recorded in State.From.
func (r *Registry) SetSource(source string) {
	r.source = source
}

// RefreshCache reloads all objects from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	objs, err := r.repo.ListObjects(ctx, "", "")
	if err != nil {
		return fmt.Errorf("loading objects: %w", err)
	}

	r.cacheMu.Lock()
	r.cache = make(map[string]*Object, len(objs))
	for i := range objs {
		r.cache[objs[i].ID] = objs[i].DeepCopy()
	}
	r.loaded = true
	r.cacheMu.Unlock()

	r.logger.Info("object cache refreshed", "count", len(objs))
	return nil
}

// GetObject retrieves an object by id.
// Returns ErrObjectNotFound if the object does not exist.
// The returned object is a deep copy; callers can safely modify it.
func (r *Registry) GetObject(ctx context.Context, id string) (*Object, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()
	if ok {
		return cached.DeepCopy(), nil
	}

	obj, err := r.repo.GetObject(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.cache[id] = obj.DeepCopy()
	r.cacheMu.Unlock()

	return obj, nil
}

// ListObjects returns objects whose id starts with prefix, optionally
// filtered by type, ordered by id. The results are deep copies.
// Before RefreshCache has run the repository is queried directly.
func (r *Registry) ListObjects(ctx context.Context, prefix string, objType Type) ([]Object, error) {
	r.cacheMu.RLock()
	populated := r.loaded
	var objs []Object
	if populated {
		for id, obj := range r.cache {
			if !strings.HasPrefix(id, prefix) {
				continue
			}
			if objType != "" && obj.Type != objType {
				continue
			}
			objs = append(objs, *obj.DeepCopy())
		}
	}
	r.cacheMu.RUnlock()

	if !populated {
		return r.repo.ListObjects(ctx, prefix, objType)
	}

	sort.Slice(objs, func(i, j int) bool { return objs[i].ID < objs[j].ID })
	return objs, nil
}

// SetObject validates and stores obj, replacing any existing object with
// the same id. Listeners and the publisher see the stored copy.
func (r *Registry) SetObject(ctx context.Context, obj *Object) error {
	if err := validateObject(obj); err != nil {
		return err
	}

	stored := obj.DeepCopy()
	stored.From = r.source
	stored.Ts = nowMillis()

	if err := r.repo.PutObject(ctx, stored); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[stored.ID] = stored
	r.cacheMu.Unlock()

	r.logger.Debug("object stored", "id", stored.ID, "type", stored.Type)
	r.notifyObject(stored.ID, stored)
	return nil
}

// SetObjectNotExists stores obj only when no object with its id exists.
// Returns true when the object was created.
func (r *Registry) SetObjectNotExists(ctx context.Context, obj *Object) (bool, error) {
	if err := validateObject(obj); err != nil {
		return false, err
	}

	stored := obj.DeepCopy()
	stored.From = r.source
	stored.Ts = nowMillis()

	created, err := r.repo.CreateObject(ctx, stored)
	if err != nil {
		return false, err
	}
	if !created {
		return false, nil
	}

	r.cacheMu.Lock()
	r.cache[stored.ID] = stored
	r.cacheMu.Unlock()

	r.logger.Info("object created", "id", stored.ID, "type", stored.Type)
	r.notifyObject(stored.ID, stored)
	return true, nil
}

// DeleteObject removes an object. Its state, if any, is kept.
func (r *Registry) DeleteObject(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := r.repo.DeleteObject(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Info("object deleted", "id", id)
	r.notifyObject(id, nil)
	return nil
}

// GetState retrieves the current value of a state.
// Returns ErrStateNotFound if the state has never been written.
func (r *Registry) GetState(ctx context.Context, id string) (*State, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	r.cacheMu.RLock()
	cached, ok := r.states[id]
	r.cacheMu.RUnlock()
	if ok {
		return cached.Copy(), nil
	}

	state, err := r.repo.GetState(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.states[id] = state.Copy()
	r.cacheMu.Unlock()

	return state, nil
}

// SetState writes a state value. Ts is always refreshed; Lc only moves when
// the value differs from the previous one. Returns the stored state.
func (r *Registry) SetState(ctx context.Context, id string, val any, ack bool) (*State, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	prev, err := r.GetState(ctx, id)
	if err != nil && !errors.Is(err, ErrStateNotFound) {
		return nil, err
	}

	now := nowMillis()
	state := &State{
		Val:  deepCopyValue(val),
		Ack:  ack,
		Ts:   now,
		Lc:   now,
		From: r.source,
	}
	if prev != nil && sameValue(prev.Val, val) {
		state.Lc = prev.Lc
	}

	if err := r.repo.PutState(ctx, id, state); err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.states[id] = state.Copy()
	r.cacheMu.Unlock()

	r.notifyState(id, state)
	return state.Copy(), nil
}

// SubscribeState registers l for changes of the given ids or patterns
// ("hue.0.*"). Returns the number of new registrations.
func (r *Registry) SubscribeState(l StateListener, ids ...string) int {
	return r.stateSubs.add(l, ids...)
}

// UnsubscribeState removes l from the given ids or patterns.
// Returns the number of registrations removed.
func (r *Registry) UnsubscribeState(l StateListener, ids ...string) int {
	return r.stateSubs.remove(l, ids...)
}

// SubscribeObject registers l for changes of the given object ids or patterns.
func (r *Registry) SubscribeObject(l ObjectListener, ids ...string) int {
	return r.objectSubs.add(l, ids...)
}

// UnsubscribeObject removes l from the given object ids or patterns.
func (r *Registry) UnsubscribeObject(l ObjectListener, ids ...string) int {
	return r.objectSubs.remove(l, ids...)
}

// StateSubscriptionCount returns the number of distinct subscribed state patterns.
func (r *Registry) StateSubscriptionCount() int {
	return r.stateSubs.count()
}

// GetObjectCount returns the number of cached objects.
func (r *Registry) GetObjectCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

func (r *Registry) notifyState(id string, state *State) {
	for _, l := range r.stateSubs.match(id) {
		l.OnStateChange(id, state.Copy())
	}
	if r.publisher != nil {
		if err := r.publisher.PublishState(id, state); err != nil {
			r.logger.Warn("publishing state change failed", "id", id, "error", err)
		}
	}
}

func (r *Registry) notifyObject(id string, obj *Object) {
	for _, l := range r.objectSubs.match(id) {
		l.OnObjectChange(id, obj.DeepCopy())
	}
	if r.publisher != nil {
		if err := r.publisher.PublishObject(id, obj); err != nil {
			r.logger.Warn("publishing object change failed", "id", id, "error", err)
		}
	}
}

func validateObject(obj *Object) error {
	if obj == nil {
		return fmt.Errorf("%w: nil object", ErrInvalidObject)
	}
	if err := ValidateID(obj.ID); err != nil {
		return err
	}
	if !validTypes[obj.Type] {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidObject, obj.Type)
	}
	return nil
}
