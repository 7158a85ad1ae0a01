package dreams

import "time"

// SavedDream is one persisted interpretation. It is written once and never
// updated.
type SavedDream struct {
	ID                      string    `json:"id"`
	OwnerID                 string    `json:"ownerId"`
	OriginalText            string    `json:"originalText"`
	FormattedInterpretation string    `json:"formattedInterpretation"`
	CreatedAt               time.Time `json:"createdAt"`
	Tags                    []string  `json:"tags"`
	Mood                    string    `json:"mood"`
	ArchiveKey              string    `json:"archiveKey,omitempty"`
}
