package domain

import "fmt"

type ReviewStatus string

const (
	// StatusNotUploaded is a display-only value for an empty required slot.
	// It is never persisted on a Document.
	StatusNotUploaded ReviewStatus = "NOT_UPLOADED"

	StatusDraft     ReviewStatus = "DRAFT"
	StatusSubmitted ReviewStatus = "SUBMITTED"
	StatusApproved  ReviewStatus = "APPROVED"
	StatusRejected  ReviewStatus = "REJECTED"
	StatusExpired   ReviewStatus = "EXPIRED"
)

func ParseReviewStatus(raw string) (ReviewStatus, error) {
	switch ReviewStatus(raw) {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusRejected, StatusExpired:
		return ReviewStatus(raw), nil
	default:
		return "", WrapError(ErrValidation, "parse review status", fmt.Errorf("unknown status %q", raw))
	}
}

type ReviewDecision string

const (
	DecisionSubmit  ReviewDecision = "SUBMIT"
	DecisionApprove ReviewDecision = "APPROVE"
	DecisionReject  ReviewDecision = "REJECT"
	DecisionUndo    ReviewDecision = "UNDO"
)

func ParseReviewDecision(raw string) (ReviewDecision, error) {
	switch ReviewDecision(raw) {
	case DecisionSubmit, DecisionApprove, DecisionReject, DecisionUndo:
		return ReviewDecision(raw), nil
	default:
		return "", WrapError(ErrValidation, "parse review decision", fmt.Errorf("unknown decision %q", raw))
	}
}

// ApplyDecision returns the status resulting from a review decision.
// UNDO re-opens any decision; the other edges follow the document state machine.
func ApplyDecision(current ReviewStatus, decision ReviewDecision) (ReviewStatus, error) {
	switch decision {
	case DecisionUndo:
		return StatusSubmitted, nil
	case DecisionSubmit:
		if current != StatusDraft && current != StatusRejected {
			return "", WrapError(ErrConflict, "submit document", fmt.Errorf("cannot submit from %s", current))
		}
		return StatusSubmitted, nil
	case DecisionApprove:
		if current != StatusSubmitted {
			return "", WrapError(ErrConflict, "approve document", fmt.Errorf("cannot approve from %s", current))
		}
		return StatusApproved, nil
	case DecisionReject:
		if current != StatusSubmitted {
			return "", WrapError(ErrConflict, "reject document", fmt.Errorf("cannot reject from %s", current))
		}
		return StatusRejected, nil
	default:
		return "", WrapError(ErrValidation, "apply review decision", fmt.Errorf("unknown decision %q", decision))
	}
}
