package models

// Record is one flattened resource with its ancestry denormalised.
type Record struct {
	ID      string `json:"id"`
	Year    string `json:"year"`
	Branch  string `json:"branch"`
	Subject string `json:"subject"`
	Title   string `json:"title"`
	Type    string `json:"type"`
	URL     string `json:"url,omitempty"`
	Path    string `json:"path,omitempty"`
}

// Location renders the record's ancestry as "year / branch / subject".
func (r Record) Location() string {
	return r.Year + " / " + r.Branch + " / " + r.Subject
}
