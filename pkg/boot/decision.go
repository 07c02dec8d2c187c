// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package boot turns a verification outcome into a go/no-go decision and
// hands control to the original boot loader when the gate allows it.
package boot

import (
	"fmt"

	"github.com/kairos-io/go-bootsum/pkg/types"
)

// State of the decision machine. Transitions are strictly
// Init -> Verifying -> Decided -> Exited.
type State int

const (
	StateInit State = iota
	StateVerifying
	StateDecided
	StateExited
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateVerifying:
		return "verifying"
	case StateDecided:
		return "decided"
	case StateExited:
		return "exited"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Machine drives the boot decision. It is owned by the single execution
// path of a run; there is no locking.
type Machine struct {
	state    State
	decision types.BootDecision
}

func NewMachine() *Machine {
	return &Machine{state: StateInit}
}

func (m *Machine) State() State {
	return m.state
}

// BeginVerification moves the machine out of Init.
func (m *Machine) BeginVerification() error {
	if m.state != StateInit {
		return fmt.Errorf("cannot begin verification in state %s", m.state)
	}
	m.state = StateVerifying
	return nil
}

// Decide consumes the run summary and resolves the boot decision:
//
//   - no chain-load target was resolvable -> NoChainTarget
//   - zero failures and not cancelled     -> Proceed
//   - otherwise                           -> Prompt, except in automated
//     test mode which never blocks on input and refuses instead.
func (m *Machine) Decide(summary types.RunSummary, hasTarget, testMode bool) (types.BootDecision, error) {
	if m.state != StateVerifying {
		return 0, fmt.Errorf("cannot decide in state %s", m.state)
	}

	switch {
	case !hasTarget:
		m.decision = types.DecisionNoChainTarget
	case summary.Clean():
		m.decision = types.DecisionProceed
	case testMode:
		m.decision = types.DecisionRefuse
	default:
		m.decision = types.DecisionPrompt
	}
	m.state = StateDecided
	return m.decision, nil
}

// ResolvePrompt records the user's answer to the proceed prompt. Only an
// explicit yes proceeds; anything else refuses.
func (m *Machine) ResolvePrompt(accepted bool) (types.BootDecision, error) {
	if m.state != StateDecided || m.decision != types.DecisionPrompt {
		return 0, fmt.Errorf("no prompt pending in state %s", m.state)
	}
	if accepted {
		m.decision = types.DecisionProceed
	} else {
		m.decision = types.DecisionRefuse
	}
	return m.decision, nil
}

// Decision returns the resolved decision.
func (m *Machine) Decision() types.BootDecision {
	return m.decision
}

// Exit moves the machine to its terminal state.
func (m *Machine) Exit() {
	m.state = StateExited
}
