package transport

// MessagePayload is one history turn supplied by the caller.
type MessagePayload struct {
	Role string `json:"role" validate:"required,oneof=user assistant"`
	Text string `json:"text" validate:"required,max=5000"`
}

// ProcessMessageRequest is the inbound turn for a conversation.
type ProcessMessageRequest struct {
	ConversationID string           `json:"conversationId" validate:"required,min=1,max=128"`
	Message        string           `json:"message" validate:"required,min=1"`
	Name           string           `json:"name,omitempty" validate:"max=200"`
	Phone          string           `json:"phone,omitempty" validate:"max=32"`
	History        []MessagePayload `json:"history,omitempty" validate:"max=200,dive"`
	HandoffContext bool             `json:"handoffContext,omitempty"`
}

// ListManualReviewRequest pages the manual review queue.
type ListManualReviewRequest struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=200"`
}

// SnapshotResponse is the read model for one conversation.
type SnapshotResponse struct {
	ConversationID          string  `json:"conversationId"`
	ContactName             string  `json:"contactName,omitempty"`
	Step                    string  `json:"step"`
	FinancingStatus         string  `json:"financingStatus"`
	FinancialReadinessScore float64 `json:"financialReadinessScore"`
	MotivationScore         float64 `json:"motivationScore"`
	Temperature             string  `json:"temperature"`
	IsQualified             bool    `json:"isQualified"`
	RequiresManualReview    bool    `json:"requiresManualReview"`
	UpdatedAt               string  `json:"updatedAt"`
}

// SnapshotListResponse wraps a page of snapshots.
type SnapshotListResponse struct {
	Items []SnapshotResponse `json:"items"`
	Total int                `json:"total"`
}
