package domain

// Guard is a predicate that can veto a transition whose From and Trigger
// already match. A nil Guard always accepts.
type Guard func(status ConnectionStatus, event Event) bool

// Transition is one edge of the session state machine.
type Transition struct {
	From    ConnectionState
	Trigger Trigger
	Guard   Guard
	To      ConnectionState
}

// DefaultTransitions returns the session state machine in match order: the
// first edge whose From, Trigger and Guard accept the event wins. Events
// matching no edge are dropped.
func DefaultTransitions() []Transition {
	return []Transition{
		{From: StateDisconnected, Trigger: TriggerProviderDetected, To: StateConnecting},
		{From: StateDisconnected, Trigger: TriggerConnectRequested, To: StateConnecting},
		{From: StateConnecting, Trigger: TriggerConnectionSucceeded, To: StateConnected},
		{From: StateConnecting, Trigger: TriggerConnectionFailed, To: StateDisconnected},
		{From: StateConnecting, Trigger: TriggerDisconnected, To: StateDisconnected},
		{From: StateConnected, Trigger: TriggerNetworkChanged, To: StateConnecting},
		{From: StateConnected, Trigger: TriggerAccountChanged, To: StateConnecting},
		{From: StateConnected, Trigger: TriggerDisconnected, To: StateDisconnected},
	}
}

// Match scans transitions in order and returns the first edge accepting
// the event in the given status, or false when the event should be dropped.
func Match(transitions []Transition, status ConnectionStatus, event Event) (Transition, bool) {
	for _, t := range transitions {
		if t.From != status.State || t.Trigger != event.Trigger {
			continue
		}
		if t.Guard != nil && !t.Guard(status, event) {
			continue
		}
		return t, true
	}
	return Transition{}, false
}

// NextStatus computes the snapshot after taking a transition. The previous
// snapshot does not contribute: each target state fully determines its
// fields from the event, which is what clears a stale Err on success and
// drops network and account the moment a session stops being Connected.
func NextStatus(t Transition, event Event) ConnectionStatus {
	next := ConnectionStatus{State: t.To}
	switch t.To {
	case StateConnected:
		next.Network = event.Network
		next.Account = event.Account
	case StateDisconnected:
		if event.Trigger == TriggerConnectionFailed {
			next.Err = event.Err
		}
	}
	return next
}
