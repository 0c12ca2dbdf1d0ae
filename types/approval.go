package types

// ApprovalRequest describes an action awaiting human sign-off.
type ApprovalRequest struct {
	Action      string   `json:"action"`
	Description string   `json:"description"`
	Metadata    Metadata `json:"metadata"`
}

// ApprovalDecision is the answer returned by the approval proxy.
type ApprovalDecision struct {
	Approved bool   `json:"approved"`
	Approver string `json:"approver"`
	Notes    string `json:"notes,omitempty"`
}
