package chat

// Source is a citation attached to an assistant message, pointing at the
// document material that backed the reply. Every field is optional; the
// remote API is inconsistent about which ones it fills.
type Source struct {
	Title        string            `json:"title,omitempty"`
	DocumentName string            `json:"documentName,omitempty"`
	URL          string            `json:"url,omitempty"`
	Page         int               `json:"page,omitempty"`
	Origin       string            `json:"origin,omitempty"`
	Score        float64           `json:"score,omitempty"`
	ChunkID      string            `json:"chunkId,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}
