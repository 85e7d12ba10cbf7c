package jobs

import "time"

// Result describes the rendered output of a completed job.
type Result struct {
	JobID    string         `json:"jobId"`
	Status   Status         `json:"status"`
	VideoURL string         `json:"videoUrl"`
	Duration float64        `json:"duration"`
	FileSize int64          `json:"fileSize"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Scene is one shot of a storyboard
type Scene struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
	Order       int     `json:"order"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
}

// Storyboard is the planned scene breakdown of a job.
type Storyboard struct {
	ID          string    `json:"id"`
	Scenes      []Scene   `json:"scenes"`
	Duration    float64   `json:"duration"`
	AspectRatio string    `json:"aspectRatio"`
	GeneratedAt time.Time `json:"generatedAt"`
}
