package enums

// AlertSeverity grades how close a due date is.
type AlertSeverity string

const (
	AlertSeverityDanger  AlertSeverity = "danger"
	AlertSeverityWarning AlertSeverity = "warning"
)

// AlertKind names the due date an alert is raised for.
type AlertKind string

const (
	AlertKindOptionDue  AlertKind = "option_due"
	AlertKindDepositDue AlertKind = "deposit_due"
	AlertKindBalanceDue AlertKind = "balance_due"
)

// Rank orders kinds that share a due date.
func (k AlertKind) Rank() int {
	switch k {
	case AlertKindOptionDue:
		return 0
	case AlertKindDepositDue:
		return 1
	case AlertKindBalanceDue:
		return 2
	default:
		return 3
	}
}
