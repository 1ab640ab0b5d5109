package models

// Placeholders substituted for optional fields that are missing in the source table.
const (
	NoDescription = "No description available"
	NoCategory    = "No category available"
	NoRating      = "No rating available"
)

// ReviewRecord is one review plus its business context, ready for classification.
// It is passed by value and never modified once built by the dataset adapter.
type ReviewRecord struct {
	Index        int    `json:"index"`
	BusinessName string `json:"business_name"`
	Rating       *int   `json:"rating,omitempty"` // nil when absent or unparseable
	Text         string `json:"text"`
	Description  string `json:"description"`
	Category     string `json:"category"`
}

// ClassificationInput is the JSON payload sent to the classification service.
// Rating is either an int or the NoRating placeholder.
type ClassificationInput struct {
	BusinessName string `json:"business_name"`
	Rating       any    `json:"rating"`
	Text         string `json:"text"`
	Description  string `json:"description"`
	Category     string `json:"category"`
}

// Input converts the record to the service payload, filling placeholders.
func (r ReviewRecord) Input() ClassificationInput {
	in := ClassificationInput{
		BusinessName: r.BusinessName,
		Rating:       NoRating,
		Text:         r.Text,
		Description:  r.Description,
		Category:     r.Category,
	}
	if r.Rating != nil {
		in.Rating = *r.Rating
	}
	if in.Description == "" {
		in.Description = NoDescription
	}
	if in.Category == "" {
		in.Category = NoCategory
	}
	return in
}

// IntPtr is a small helper for building records in code and tests.
func IntPtr(v int) *int { return &v }
