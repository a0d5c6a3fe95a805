package event

// Type identifies the type of domain event
type Type string

const (
	TypeInvoiceCreated       Type = "invoice.created"
	TypeInvoiceStatusChanged Type = "invoice.status_changed"
	TypeInvoicePaymentDated  Type = "invoice.payment_date_changed"
	TypeInvoiceDeleted       Type = "invoice.deleted"
	TypeCommitFailed         Type = "invoice.commit_failed"
	TypeTokenRejected        Type = "token.rejected"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeInvoiceCreated,
		TypeInvoiceStatusChanged,
		TypeInvoicePaymentDated,
		TypeInvoiceDeleted,
		TypeCommitFailed,
		TypeTokenRejected:
		return true
	default:
		return false
	}
}
