package enums

import "fmt"

// AllotmentStatus tracks whether a block is still an option or firmly bought.
type AllotmentStatus string

const (
	AllotmentStatusOption    AllotmentStatus = "option"
	AllotmentStatusConfirmed AllotmentStatus = "confirmed"
	AllotmentStatusReleased  AllotmentStatus = "released"
)

var validAllotmentStatuses = []AllotmentStatus{
	AllotmentStatusOption,
	AllotmentStatusConfirmed,
	AllotmentStatusReleased,
}

func (s AllotmentStatus) String() string {
	return string(s)
}

func (s AllotmentStatus) IsValid() bool {
	for _, candidate := range validAllotmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransition allows option -> confirmed|released only.
func (s AllotmentStatus) CanTransition(next AllotmentStatus) bool {
	return s == AllotmentStatusOption && (next == AllotmentStatusConfirmed || next == AllotmentStatusReleased)
}

func ParseAllotmentStatus(value string) (AllotmentStatus, error) {
	for _, candidate := range validAllotmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid allotment status %q", value)
}
