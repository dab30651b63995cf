// Package notify provides alert notification dispatch and delivery outcome
// handling.
package notify

import "context"

// Gateway abstracts the multicast push capability: one payload delivered to
// many recipient tokens with independent per-recipient outcomes.
type Gateway interface {
	// SendMulticast delivers the message to every token in one logical
	// call. A returned error means the whole batch failed (auth, network,
	// malformed payload) and no per-token outcomes are available.
	SendMulticast(ctx context.Context, msg *Message, tokens []string) (*DeliveryReport, error)
}

// DeliveryReport summarizes a multicast send.
type DeliveryReport struct {
	// AttemptedCount is the number of tokens the send was attempted for.
	AttemptedCount int

	// SuccessCount is the number of tokens the gateway accepted.
	SuccessCount int

	// FailureCount is the number of tokens the gateway rejected.
	FailureCount int

	// Outcomes holds one entry per input token, in input order.
	Outcomes []TokenOutcome
}

// TokenOutcome is the per-recipient result of a multicast send.
type TokenOutcome struct {
	Token   string
	Success bool

	// ErrorCode is the gateway's error identifier for failed sends,
	// e.g. "UNREGISTERED".
	ErrorCode string
}

// FailedTokens returns the tokens the gateway rejected.
func (r *DeliveryReport) FailedTokens() []string {
	var failed []string
	for _, o := range r.Outcomes {
		if !o.Success {
			failed = append(failed, o.Token)
		}
	}
	return failed
}
