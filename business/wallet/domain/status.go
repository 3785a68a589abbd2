package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ConnectionStatus is the snapshot of the session exposed to subscribers.
// A zero Account means no account; Network and Account are set together,
// and only while Connected. Err survives only until the next transition.
type ConnectionStatus struct {
	State   ConnectionState
	Network *NetworkHandle
	Account common.Address
	Err     error
}

// IsLoading reports whether a handshake is in flight.
func (s ConnectionStatus) IsLoading() bool {
	return s.State == StateConnecting
}

// IsConnected reports whether a session is established.
func (s ConnectionStatus) IsConnected() bool {
	return s.State == StateConnected
}

// Validate checks the structural invariants of the snapshot.
func (s ConnectionStatus) Validate() error {
	hasNetwork := s.Network != nil
	hasAccount := s.Account != (common.Address{})
	if hasNetwork != hasAccount {
		return fmt.Errorf("status %s: network and account must be set together (network=%t account=%t)",
			s.State, hasNetwork, hasAccount)
	}
	if connected := s.State == StateConnected; connected != hasNetwork {
		return fmt.Errorf("status %s: network must be set exactly while connected (network=%t)",
			s.State, hasNetwork)
	}
	if s.Err != nil && hasNetwork {
		return fmt.Errorf("status %s: error cannot coexist with a settled session", s.State)
	}
	return nil
}
