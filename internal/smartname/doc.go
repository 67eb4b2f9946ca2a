// Package smartname reads and edits the smart-name descriptors that expose
// automation states to voice assistants.
//
// A descriptor lives on an object's common section, in one of two places:
//
//	common.smartName                     shared by every adapter instance
//	common.custom[<instance>].smartName  private to one instance (noCommon)
//
// Its canonical form is a map of language code → display name plus the
// auxiliary keys smartType, byON, noAutoDetect and the Google Home keys
// (ghType, ghTraits, ghAttributes, ghConv2GH, ghConv2iob). Two legacy shapes
// are still read: a plain string (one name for every language) and boolean
// false (disabled). null marks a descriptor the user explicitly cleared.
//
// # Three-state model
//
//	Absent      never configured (key missing)
//	Disabled    false or null
//	Descriptor  a map with at least one own key
//
// A descriptor is never stored as an empty map. Update prunes it to null
// (shared) or deletes custom[<instance>] (per-instance) instead.
//
// # Usage
//
//	patch := smartname.Patch{SmartName: smartname.Set("Kitchen, Cooking")}
//	opts := smartname.Options{InstanceID: "iot.0", Language: "de"}
//	if err := smartname.Update(obj, patch, opts); err != nil {
//	    return err
//	}
//	registry.SetObject(ctx, obj)
//
// Service bundles the read-modify-write cycle against an object store.
package smartname
