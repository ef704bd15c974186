package models

// Internal payment statuses. Gateway values that do not map to one of these
// are stored unchanged and treated as non-terminal.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusPaid      = "paid"
	PaymentStatusCancelled = "cancelled"
	PaymentStatusExpired   = "expired"
)

// Gateway statuses with a special mapping.
const (
	GatewayStatusApproved  = "approved"
	GatewayStatusCancelled = "cancelled"
	GatewayStatusRejected  = "rejected"
	GatewayStatusExpired   = "expired"
)

// MapGatewayStatus converts a gateway payment status to the internal one.
func MapGatewayStatus(status string) string {
	switch status {
	case GatewayStatusApproved:
		return PaymentStatusPaid
	case GatewayStatusCancelled, GatewayStatusRejected, GatewayStatusExpired:
		return PaymentStatusCancelled
	default:
		return status
	}
}

// TerminalStatuses lists the statuses IsTerminal accepts.
func TerminalStatuses() []string {
	return []string{PaymentStatusPaid, PaymentStatusCancelled, PaymentStatusExpired}
}

// IsTerminal reports whether no further transition is expected from status.
func IsTerminal(status string) bool {
	switch status {
	case PaymentStatusPaid, PaymentStatusCancelled, PaymentStatusExpired:
		return true
	}
	return false
}

// CanTransition reports whether a payment may move from one status to another.
// Terminal states are final except expired -> paid: expiry is derived locally
// while the gateway is the authority on money received.
func CanTransition(from, to string) bool {
	switch {
	case to == "" || from == to:
		return false
	case from == "":
		return true
	case to == PaymentStatusPending:
		return false
	case !IsTerminal(from):
		return true
	case from == PaymentStatusExpired && to == PaymentStatusPaid:
		return true
	default:
		return false
	}
}
