package objects

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
)

// MockRepository is a test implementation of Repository.
type MockRepository struct {
	mu      sync.Mutex
	objects map[string]*Object
	states  map[string]*State

	putErr error
	gets   int
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		objects: make(map[string]*Object),
		states:  make(map[string]*State),
	}
}

func (m *MockRepository) GetObject(_ context.Context, id string) (*Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if obj, ok := m.objects[id]; ok {
		return obj.DeepCopy(), nil
	}
	return nil, ErrObjectNotFound
}

func (m *MockRepository) ListObjects(_ context.Context, prefix string, objType Type) ([]Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Object
	for id, obj := range m.objects {
		if strings.HasPrefix(id, prefix) && (objType == "" || obj.Type == objType) {
			out = append(out, *obj.DeepCopy())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockRepository) PutObject(_ context.Context, obj *Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[obj.ID] = obj.DeepCopy()
	return nil
}

func (m *MockRepository) CreateObject(_ context.Context, obj *Object) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[obj.ID]; ok {
		return false, nil
	}
	m.objects[obj.ID] = obj.DeepCopy()
	return true, nil
}

func (m *MockRepository) DeleteObject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[id]; !ok {
		return ErrObjectNotFound
	}
	delete(m.objects, id)
	return nil
}

func (m *MockRepository) GetState(_ context.Context, id string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.states[id]; ok {
		return s.Copy(), nil
	}
	return nil, ErrStateNotFound
}

func (m *MockRepository) PutState(_ context.Context, id string, state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.states[id] = state.Copy()
	return nil
}

// recordingListener collects notifications.
type recordingListener struct {
	mu      sync.Mutex
	states  []string
	objects []string
	deleted []string
}

func (l *recordingListener) OnStateChange(id string, _ *State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, id)
}

func (l *recordingListener) OnObjectChange(id string, obj *Object) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if obj == nil {
		l.deleted = append(l.deleted, id)
		return
	}
	l.objects = append(l.objects, id)
}

// recordingPublisher collects published ids.
type recordingPublisher struct {
	states  []string
	objects []string
	err     error
}

func (p *recordingPublisher) PublishState(id string, _ *State) error {
	p.states = append(p.states, id)
	return p.err
}

func (p *recordingPublisher) PublishObject(id string, _ *Object) error {
	p.objects = append(p.objects, id)
	return p.err
}

func TestRegistry_GetObjectReturnsCopy(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	ctx := context.Background()

	if err := reg.SetObject(ctx, testObject("hue.0.kitchen.on")); err != nil {
		t.Fatalf("SetObject() error = %v", err)
	}

	first, err := reg.GetObject(ctx, "hue.0.kitchen.on")
	if err != nil {
		t.Fatalf("GetObject() error = %v", err)
	}
	first.Common["smartName"].(map[string]any)["en"] = "mutated"

	second, _ := reg.GetObject(ctx, "hue.0.kitchen.on")
	if second.Common["smartName"].(map[string]any)["en"] != "Kitchen" {
		t.Error("mutating a returned object changed the cache")
	}
	if second.From != DefaultSource || second.Ts == 0 {
		t.Errorf("From/Ts not stamped: %q/%d", second.From, second.Ts)
	}
}

func TestRegistry_GetObjectFallsBackToRepository(t *testing.T) {
	repo := NewMockRepository()
	repo.objects["hue.0.kitchen.on"] = testObject("hue.0.kitchen.on")
	reg := NewRegistry(repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := reg.GetObject(ctx, "hue.0.kitchen.on"); err != nil {
			t.Fatalf("GetObject() error = %v", err)
		}
	}
	if repo.gets != 1 {
		t.Errorf("repository hit %d times, want 1", repo.gets)
	}

	if _, err := reg.GetObject(ctx, "hue.0.missing"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("GetObject(missing) error = %v, want ErrObjectNotFound", err)
	}
}

func TestRegistry_Validation(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	ctx := context.Background()

	tests := []struct {
		name    string
		obj     *Object
		wantErr error
	}{
		{"nil object", nil, ErrInvalidObject},
		{"empty id", &Object{Type: TypeState}, ErrInvalidID},
		{"forbidden char", &Object{ID: "hue.0.a*b", Type: TypeState}, ErrInvalidID},
		{"unknown type", &Object{ID: "hue.0.a", Type: "widget"}, ErrInvalidObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := reg.SetObject(ctx, tt.obj); !errors.Is(err, tt.wantErr) {
				t.Errorf("SetObject() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := reg.GetObject(ctx, ""); !errors.Is(err, ErrInvalidID) {
		t.Errorf("GetObject(\"\") error = %v, want ErrInvalidID", err)
	}
	if _, err := reg.SetState(ctx, "bad id?", 1, true); !errors.Is(err, ErrInvalidID) {
		t.Errorf("SetState(bad id) error = %v, want ErrInvalidID", err)
	}
}

func TestRegistry_SetObjectNotExists(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	ctx := context.Background()
	listener := &recordingListener{}
	reg.SubscribeObject(listener, "iot.0.app.*")

	obj := &Object{ID: "iot.0.app.geofence.home", Type: TypeState, Common: map[string]any{"name": "home"}}

	created, err := reg.SetObjectNotExists(ctx, obj)
	if err != nil || !created {
		t.Fatalf("first SetObjectNotExists() = %v, %v", created, err)
	}
	created, err = reg.SetObjectNotExists(ctx, obj)
	if err != nil || created {
		t.Fatalf("second SetObjectNotExists() = %v, %v", created, err)
	}
	if len(listener.objects) != 1 {
		t.Errorf("listener notified %d times, want 1", len(listener.objects))
	}
}

func TestRegistry_SetStateLastChange(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	ctx := context.Background()

	first, err := reg.SetState(ctx, "hue.0.kitchen.on", true, false)
	if err != nil {
		t.Fatalf("SetState() error = %v", err)
	}
	if first.Lc != first.Ts {
		t.Errorf("first write: Lc = %d, Ts = %d, want equal", first.Lc, first.Ts)
	}

	// Force a distinguishable lc on the stored state.
	reg.cacheMu.Lock()
	reg.states["hue.0.kitchen.on"].Lc = 1
	reg.cacheMu.Unlock()

	same, err := reg.SetState(ctx, "hue.0.kitchen.on", true, true)
	if err != nil {
		t.Fatalf("SetState() error = %v", err)
	}
	if same.Lc != 1 {
		t.Errorf("unchanged value: Lc = %d, want 1", same.Lc)
	}
	if !same.Ack {
		t.Error("Ack not updated")
	}

	changed, err := reg.SetState(ctx, "hue.0.kitchen.on", false, true)
	if err != nil {
		t.Fatalf("SetState() error = %v", err)
	}
	if changed.Lc == 1 {
		t.Error("changed value should move Lc")
	}

	got, err := reg.GetState(ctx, "hue.0.kitchen.on")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if got.Val != false {
		t.Errorf("GetState().Val = %v, want false", got.Val)
	}
}

func TestRegistry_SetStateNumericEquality(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	ctx := context.Background()

	if _, err := reg.SetState(ctx, "iot.0.app.devices.pixel.batteryLevel", 80, true); err != nil {
		t.Fatal(err)
	}
	reg.cacheMu.Lock()
	reg.states["iot.0.app.devices.pixel.batteryLevel"].Lc = 7
	reg.cacheMu.Unlock()

	st, err := reg.SetState(ctx, "iot.0.app.devices.pixel.batteryLevel", 80.0, true)
	if err != nil {
		t.Fatal(err)
	}
	if st.Lc != 7 {
		t.Errorf("80 and 80.0 should compare equal; Lc = %d", st.Lc)
	}
}

func TestRegistry_StateSubscriptions(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	ctx := context.Background()

	exact := &recordingListener{}
	wildcard := &recordingListener{}

	if n := reg.SubscribeState(exact, "hue.0.kitchen.on", "hue.0.kitchen.on"); n != 1 {
		t.Errorf("duplicate subscribe registered %d, want 1", n)
	}
	reg.SubscribeState(wildcard, "hue.0.*", "hue.0.kitchen.*")

	for _, id := range []string{"hue.0.kitchen.on", "hue.0.hall.on", "zigbee.0.x"} {
		if _, err := reg.SetState(ctx, id, 1, true); err != nil {
			t.Fatalf("SetState(%s) error = %v", id, err)
		}
	}

	if len(exact.states) != 1 || exact.states[0] != "hue.0.kitchen.on" {
		t.Errorf("exact listener got %v", exact.states)
	}
	if len(wildcard.states) != 2 {
		t.Errorf("wildcard listener got %v, want each match once", wildcard.states)
	}

	if n := reg.UnsubscribeState(exact, "hue.0.kitchen.on", "never.subscribed"); n != 1 {
		t.Errorf("UnsubscribeState() removed %d, want 1", n)
	}
	if _, err := reg.SetState(ctx, "hue.0.kitchen.on", 2, true); err != nil {
		t.Fatal(err)
	}
	if len(exact.states) != 1 {
		t.Errorf("unsubscribed listener still notified: %v", exact.states)
	}
	if reg.StateSubscriptionCount() != 2 {
		t.Errorf("StateSubscriptionCount() = %d, want 2", reg.StateSubscriptionCount())
	}
}

func TestRegistry_DeleteObjectNotifies(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	ctx := context.Background()
	listener := &recordingListener{}
	reg.SubscribeObject(listener, "*")

	if err := reg.SetObject(ctx, testObject("hue.0.kitchen.on")); err != nil {
		t.Fatal(err)
	}
	if err := reg.DeleteObject(ctx, "hue.0.kitchen.on"); err != nil {
		t.Fatalf("DeleteObject() error = %v", err)
	}
	if len(listener.deleted) != 1 {
		t.Errorf("deletions notified = %v", listener.deleted)
	}
	if _, err := reg.GetObject(ctx, "hue.0.kitchen.on"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("GetObject() after delete error = %v", err)
	}
}

func TestRegistry_Publisher(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	pub := &recordingPublisher{err: errors.New("broker down")}
	reg.SetPublisher(pub)
	ctx := context.Background()

	if err := reg.SetObject(ctx, testObject("hue.0.kitchen.on")); err != nil {
		t.Fatalf("SetObject() should not fail on publish error: %v", err)
	}
	if _, err := reg.SetState(ctx, "hue.0.kitchen.on", true, true); err != nil {
		t.Fatalf("SetState() should not fail on publish error: %v", err)
	}
	if len(pub.objects) != 1 || len(pub.states) != 1 {
		t.Errorf("published objects=%v states=%v", pub.objects, pub.states)
	}
}

func TestRegistry_WriteFailureLeavesCache(t *testing.T) {
	repo := NewMockRepository()
	reg := NewRegistry(repo)
	ctx := context.Background()

	if err := reg.SetObject(ctx, testObject("hue.0.kitchen.on")); err != nil {
		t.Fatal(err)
	}
	repo.putErr = errors.New("disk full")

	changed := testObject("hue.0.kitchen.on")
	changed.Common["name"] = "changed"
	if err := reg.SetObject(ctx, changed); err == nil {
		t.Fatal("SetObject() should surface repository error")
	}

	got, _ := reg.GetObject(ctx, "hue.0.kitchen.on")
	if got.Common["name"] != "Kitchen Light" {
		t.Errorf("cache updated despite failed write: %v", got.Common["name"])
	}
}

func TestRegistry_ListObjects(t *testing.T) {
	repo := NewMockRepository()
	for _, id := range []string{"system.adapter.iot.1", "system.adapter.iot.0", "hue.0.a"} {
		repo.objects[id] = &Object{ID: id, Type: TypeInstance}
	}
	reg := NewRegistry(repo)
	ctx := context.Background()

	// Before refresh the repository answers.
	objs, err := reg.ListObjects(ctx, "system.adapter.", TypeInstance)
	if err != nil || len(objs) != 2 {
		t.Fatalf("ListObjects() = %d, %v", len(objs), err)
	}

	if err := reg.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	if reg.GetObjectCount() != 3 {
		t.Errorf("GetObjectCount() = %d, want 3", reg.GetObjectCount())
	}

	objs, err = reg.ListObjects(ctx, "system.adapter.", TypeInstance)
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 2 || objs[0].ID != "system.adapter.iot.0" || objs[1].ID != "system.adapter.iot.1" {
		t.Errorf("ListObjects() from cache = %v", objs)
	}
}
