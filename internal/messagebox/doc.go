// Package messagebox sends commands to adapter instances over MQTT and
// waits for their replies.
//
// A request is published on
//
//	iotadmin/messagebox/<target>/<command>
//
// carrying a uuid and the topic to answer on. The adapter answers on
//
//	iotadmin/messagebox/reply/<clientID>
//
// echoing the id. Replies are matched to waiting callers by id; a reply
// with an error field becomes ErrRemote. Requests time out after the
// configured messagebox timeout.
//
// Adapter restricts the commands the admin UI may send to an instance of
// the voice-assistant adapter (browse, browse3, browseGH, browseAlisa,
// update, debug, updateValidTill). Client.SendTo itself accepts any
// command; visuApp's sendToAdapter relies on that.
package messagebox
