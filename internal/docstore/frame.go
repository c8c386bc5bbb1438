package docstore

// Frame types sent over a live-query websocket.
const (
	FrameSnapshot = "snapshot"
	FrameError    = "error"
)

// Frame is one websocket message of a live query. A snapshot carries the full
// result set (Documents is omitted when it is empty); an error frame carries
// Message and leaves the subscription open.
type Frame struct {
	Type      string     `json:"type"`
	Documents []Document `json:"documents,omitempty"`
	Message   string     `json:"message,omitempty"`
}
