package analyses

import "time"

// Document statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Section statuses.
const (
	SectionQueued    = "queued"
	SectionPending   = "pending"
	SectionCompleted = "completed"
	SectionFailed    = "failed"
)

// Input is the user-supplied business description. Immutable once submitted.
type Input struct {
	Description     string `json:"description"`
	Industry        string `json:"industry"`
	SubIndustry     string `json:"subIndustry,omitempty"`
	TargetCustomers string `json:"targetCustomers,omitempty"`
	PricingModel    string `json:"pricingModel,omitempty"`
	Stage           string `json:"stage,omitempty"`
	TeamSize        int    `json:"teamSize,omitempty"`
	AdditionalInfo  string `json:"additionalInfo,omitempty"`
	PlanID          string `json:"planId,omitempty"`
}

// Section is one named unit of analysis work within a document.
type Section struct {
	SectionID string         `json:"sectionId"`
	Status    string         `json:"status"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Analysis is the aggregate root: one analysis run over one business idea.
type Analysis struct {
	ID        string             `json:"id"`
	UserID    string             `json:"userId"`
	Input     Input              `json:"userInput"`
	Sections  map[string]Section `json:"sections"`
	Status    string             `json:"status"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Resolved reports whether every section has reached a terminal status.
func (a Analysis) Resolved() bool {
	if len(a.Sections) == 0 {
		return false
	}
	for _, s := range a.Sections {
		if s.Status != SectionCompleted && s.Status != SectionFailed {
			return false
		}
	}
	return true
}
