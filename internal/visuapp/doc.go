// Package visuapp handles messages from the ioBroker.visu mobile app.
//
// The app sends either a command:
//
//	sendToAdapter {instance, message, data}  forwards to an adapter via messagebox
//	getInstances  {adapterName}              lists the adapter's instances
//
// or a raw report that is mapped onto the object tree under the instance
// namespace:
//
//	{"presence": {"home": true}}
//	    → <ns>.app.geofence.home (boolean, indicator)
//	{"devices": {"Pixel": {"batteryLevel": 80, "connectionType": "wifi"}}}
//	    → <ns>.app.devices.Pixel (device) and one state per field
//
// Objects are created if missing; states are written acknowledged. When a
// Telemetry writer is set the same readings are recorded as time series.
//
// Messages arrive over HTTP (api package) or MQTT (Intake).
package visuapp
