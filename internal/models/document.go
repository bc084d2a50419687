package models

// Document is one extracted document from a fetched page.
type Document struct {
	ID       string
	URL      string
	Title    string
	Content  string
	Metadata map[string]interface{}
}

// Segment is a span of text owned by an index.
type Segment struct {
	Text string
}

// ScoredSegment is a segment returned by a similarity search.
type ScoredSegment struct {
	Text  string
	Score float64
}
