package enums

// PaymentAttemptStatus tracks one checkout's payment from intent creation to outcome.
type PaymentAttemptStatus string

const (
	PaymentAttemptPending   PaymentAttemptStatus = "pending"
	PaymentAttemptSucceeded PaymentAttemptStatus = "succeeded"
	PaymentAttemptFailed    PaymentAttemptStatus = "failed"
	PaymentAttemptExpired   PaymentAttemptStatus = "expired"
)

var paymentAttemptStatuses = []PaymentAttemptStatus{
	PaymentAttemptPending,
	PaymentAttemptSucceeded,
	PaymentAttemptFailed,
	PaymentAttemptExpired,
}

func (s PaymentAttemptStatus) String() string { return string(s) }

func (s PaymentAttemptStatus) IsValid() bool { return oneOf(s, paymentAttemptStatuses) }

// IsTerminal reports whether no further transition is allowed.
func (s PaymentAttemptStatus) IsTerminal() bool {
	return s.IsValid() && s != PaymentAttemptPending
}

func ParsePaymentAttemptStatus(value string) (PaymentAttemptStatus, error) {
	return parse("payment attempt status", value, paymentAttemptStatuses, false)
}
