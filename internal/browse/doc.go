// Package browse holds the device lists returned by the voice-assistant
// adapter's browse commands and the subscription batcher the admin UI uses
// to follow their states.
//
// The adapter answers browse, browse3, browseGH and browseAlisa with a list
// of devices. Each device groups controls, and each control groups the
// states it operates on:
//
//	DeviceDescription
//	  └── ControlDescription (e.g. a dimmer)
//	        └── StateDescription (power, brightness, ...)
//
// Results are read-only. The Cache keeps the latest list per Kind and
// answers lookups by state id.
//
// # Subscription batching
//
// Batcher collects subscribe and unsubscribe requests for a short window
// (200ms by default) and sends them as one call each. Every Add or Remove
// restarts the window. Close flushes what is pending and unsubscribes
// everything still active.
//
//	b := browse.NewBatcher(sub, browse.BatcherConfig{Window: cfg.BatchWindow()})
//	defer b.Close()
//	b.Add("hue.0.lamp.on", "hue.0.lamp.level")
package browse
