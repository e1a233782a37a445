package component

// Vulnerability is a knowledge base vulnerability record. Its content is
// passed through to the report untouched.
type Vulnerability struct {
	ID          string            `json:"vulnerabilityId"`
	Name        string            `json:"name,omitempty"`
	Severity    string            `json:"severity,omitempty"`
	Score       float64           `json:"score,omitempty"`
	Description string            `json:"description,omitempty"`
	PublishDate string            `json:"publishDate,omitempty"`
	URL         string            `json:"url,omitempty"`
	Source      string            `json:"source,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}
