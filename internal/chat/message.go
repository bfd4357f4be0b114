package chat

import "time"

// GlobalRoom tags messages sent to everyone rather than a named room.
const GlobalRoom = "global"

// timeLayout is the wall-clock format browser clients render directly,
// e.g. "3:04:05 PM".
const timeLayout = "3:04:05 PM"

// Message is an immutable chat record stored in the History. Global and
// room messages share this shape; typing, file, read-receipt, and
// reaction events are never stored.
type Message struct {
	ID        any    `json:"id,omitempty"`
	Room      string `json:"room"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
}

func clockStamp(now time.Time) string {
	return now.Format(timeLayout)
}
