package smartname

import "fmt"

const (
	keySmartName = "smartName"
	keyCustom    = "custom"
)

// Location selects where a descriptor is read from and written to.
// Resolve it once per operation and use it for both read and write.
type Location struct {
	noCommon   bool
	instanceID string
}

// Resolve returns the shared location, or the per-instance location of
// instanceID when noCommon is set.
func Resolve(noCommon bool, instanceID string) Location {
	return Location{noCommon: noCommon, instanceID: instanceID}
}

// Shared reports whether the location is common.smartName.
func (l Location) Shared() bool {
	return !l.noCommon
}

// String returns the path of the location for logs.
func (l Location) String() string {
	if l.Shared() {
		return "common.smartName"
	}
	return fmt.Sprintf("common.custom[%s].smartName", l.instanceID)
}

// Get returns the raw stored value and whether the key is present.
// It never creates intermediate levels.
func (l Location) Get(common map[string]any) (any, bool) {
	if common == nil {
		return nil, false
	}
	if l.Shared() {
		v, ok := common[keySmartName]
		return v, ok
	}
	custom, ok := common[keyCustom].(map[string]any)
	if !ok {
		return nil, false
	}
	entry, ok := custom[l.instanceID].(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := entry[keySmartName]
	return v, ok
}

// Set stores v, creating common.custom and custom[instance] as needed.
func (l Location) Set(common map[string]any, v any) {
	if l.Shared() {
		common[keySmartName] = v
		return
	}
	entry := ensureMap(ensureMap(common, keyCustom), l.instanceID)
	entry[keySmartName] = v
}

// Clear marks the descriptor as absent after a prune. Shared storage keeps
// an explicit null; per-instance storage deletes custom[instance] and then
// custom itself when nothing else is left in it.
func (l Location) Clear(common map[string]any) {
	if l.Shared() {
		common[keySmartName] = nil
		return
	}
	custom, ok := common[keyCustom].(map[string]any)
	if !ok {
		return
	}
	delete(custom, l.instanceID)
	if len(custom) == 0 {
		delete(common, keyCustom)
	}
}

// ensureMap returns parent[key] as a map, replacing any non-map value with
// a new empty map.
func ensureMap(parent map[string]any, key string) map[string]any {
	if m, ok := parent[key].(map[string]any); ok {
		return m
	}
	m := make(map[string]any)
	parent[key] = m
	return m
}
