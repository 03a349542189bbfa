package models

type State string

const (
	// supervisor
	AwaitingDelegation State = "awaiting_delegation"
	Searching          State = "searching"
	Reducing           State = "reducing"
	Planning           State = "planning"
	Done               State = "done"

	// guardian
	Collecting State = "collecting"
	Delegating State = "delegating"
)
