package events

// Event enumerates the governance topics published on the bus.
type Event string

const (
	EventDecisionApproved Event = "decision.approved"
	EventDecisionDenied   Event = "decision.denied"
	EventTradeExecuted    Event = "trade.executed"
	EventModeChanged      Event = "mode.changed"
	EventRiskStateChanged Event = "risk.state_changed"
	EventRiskAlert        Event = "risk.alert"
)
