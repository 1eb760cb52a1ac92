package models

// ClassificationResult describes a product photo in the vocabulary used by the
// room-scene prompt templates.
type ClassificationResult struct {
	FurnitureType string   `json:"furniture_type"`
	SubType       string   `json:"sub_type,omitempty"`
	Style         string   `json:"style"`
	Material      string   `json:"material"`
	ColorDesc     string   `json:"color_desc"`
	Labels        []string `json:"labels"`
}

// RoomContext is one staged room a product can be placed in.
type RoomContext struct {
	RoomType   string `json:"room_type"`
	RoomDesc   string `json:"room_desc"`
	Placement  string `json:"placement"`
	Supporting string `json:"supporting"`
}
