package domain

import "time"

// AggregateStatus derives a category folder's status from its documents.
// Rules, first match wins:
//
//  1. no documents            -> DRAFT
//  2. any rejected            -> REJECTED
//  3. any expired             -> EXPIRED (approved docs past their expiration count)
//  4. all approved            -> APPROVED
//  5. none draft              -> SUBMITTED
//  6. otherwise               -> DRAFT
//
// The result depends only on the multiset of effective statuses, never on
// document order. This is the single authority for folder status; every
// mutation persists its output in the same transaction.
func AggregateStatus(docs []Document, now time.Time) ReviewStatus {
	if len(docs) == 0 {
		return StatusDraft
	}

	var anyRejected, anyExpired, anyDraft bool
	approved := 0
	for _, d := range docs {
		switch d.EffectiveStatus(now) {
		case StatusRejected:
			anyRejected = true
		case StatusExpired:
			anyExpired = true
		case StatusApproved:
			approved++
		case StatusDraft:
			anyDraft = true
		}
	}

	switch {
	case anyRejected:
		return StatusRejected
	case anyExpired:
		return StatusExpired
	case approved == len(docs):
		return StatusApproved
	case !anyDraft:
		return StatusSubmitted
	default:
		return StatusDraft
	}
}

// RollUp applies the same precedence to folder statuses for the root and
// company reporting views.
func RollUp(statuses []ReviewStatus) ReviewStatus {
	if len(statuses) == 0 {
		return StatusDraft
	}

	var anyRejected, anyExpired, anyDraft bool
	approved := 0
	for _, s := range statuses {
		switch s {
		case StatusRejected:
			anyRejected = true
		case StatusExpired:
			anyExpired = true
		case StatusApproved:
			approved++
		case StatusDraft, StatusNotUploaded:
			anyDraft = true
		}
	}

	switch {
	case anyRejected:
		return StatusRejected
	case anyExpired:
		return StatusExpired
	case approved == len(statuses):
		return StatusApproved
	case !anyDraft:
		return StatusSubmitted
	default:
		return StatusDraft
	}
}
