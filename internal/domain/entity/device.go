package entity

// TerminalDevice is a physical card terminal available to the branch.
type TerminalDevice struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	OperatingMode string `json:"operating_mode,omitempty"`
}
