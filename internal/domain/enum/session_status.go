package enum

// SessionStatus is the state of the asynchronous payment session bound to a
// checkout. IDLE is both the initial and the terminal state.
type SessionStatus string

const (
	SessionStatusIdle            SessionStatus = "IDLE"
	SessionStatusShowingQR       SessionStatus = "SHOWING_QR"
	SessionStatusWaitingTerminal SessionStatus = "WAITING_TERMINAL"
)

// IsActive reports whether an async payment is currently being awaited.
func (s SessionStatus) IsActive() bool {
	return s == SessionStatusShowingQR || s == SessionStatusWaitingTerminal
}

func (s SessionStatus) String() string {
	return string(s)
}
