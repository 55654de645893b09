package enums

import "fmt"

// DropReason classifies why on-hand inventory was written off.
type DropReason string

const (
	DropReasonExpired        DropReason = "expired"
	DropReasonEndOfDay       DropReason = "end_of_day"
	DropReasonQualityIssue   DropReason = "quality_issue"
	DropReasonDamaged        DropReason = "damaged"
	DropReasonContaminated   DropReason = "contaminated"
	DropReasonOverproduction DropReason = "overproduction"
	DropReasonOther          DropReason = "other"
)

var dropReasons = map[DropReason]struct{}{
	DropReasonExpired:        {},
	DropReasonEndOfDay:       {},
	DropReasonQualityIssue:   {},
	DropReasonDamaged:        {},
	DropReasonContaminated:   {},
	DropReasonOverproduction: {},
	DropReasonOther:          {},
}

// String returns the literal enum value.
func (r DropReason) String() string {
	return string(r)
}

// IsValid reports whether r is one of the recognized write-off reasons.
func (r DropReason) IsValid() bool {
	_, ok := dropReasons[r]
	return ok
}

// ParseDropReason types raw input, rejecting values outside the enum.
func ParseDropReason(value string) (DropReason, error) {
	reason := DropReason(value)
	if !reason.IsValid() {
		return "", fmt.Errorf("invalid drop reason %q", value)
	}
	return reason, nil
}
