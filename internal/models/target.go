package models

// TargetEvent is one observation from the copy-source stream.
type TargetEvent struct {
	Source    string         `json:"source"`
	Side      string         `json:"side"`
	Size      float64        `json:"size"`
	Timestamp string         `json:"ts"`
	Meta      map[string]any `json:"meta"`
}
