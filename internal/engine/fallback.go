package engine

// FallbackLine is the fixed in-character reply used whenever the dialogue
// backend fails. The visitor never sees a technical error.
const FallbackLine = "...signal's bad.  say that again."

// Fallback converts a failed turn into a safe result: the prior
// collected/checkout snapshot is echoed back unchanged so a backend outage
// can never regress what the visitor already provided.
func Fallback(req TurnRequest) TurnResult {
	return TurnResult{
		Reply:     FallbackLine,
		Collected: req.Collected,
		Checkout:  req.Checkout,
		Mood:      "neutral",
	}
}
