package service

// QuotaAllowed reports whether an owner with current live channels may create
// another under max. Zero or negative max means unlimited.
//
// The check is evaluated against a snapshot taken before the external channel
// creation, so two concurrent requests can both pass at the boundary. The
// overshoot is bounded by the number of in-flight requests and corrects
// itself as channels expire; serializing creations across the Discord round
// trip is not worth that guarantee.
func QuotaAllowed(current, max int) bool {
	if max <= 0 {
		return true
	}
	return current < max
}
