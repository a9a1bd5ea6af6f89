package app

import (
	"fmt"

	"github.com/qmuntal/stateless"

	billingdb "github.com/tbeaudouin05/subscription-reconciler/api/services/billing/db"
)

// Triggers of the account status machine.
const (
	triggerStart      = "start"
	triggerCharge     = "charge_succeeded"
	triggerActivated  = "subscription_activated"
	triggerTerminated = "subscription_terminated"
)

// newStatusMachine configures the account status transitions starting at from.
// There is no terminal state: an account cycles between Inactive and Active.
func newStatusMachine(from billingdb.AccountStatus) *stateless.StateMachine {
	machine := stateless.NewStateMachine(from)

	machine.Configure(billingdb.StatusIncomplete).
		Permit(triggerStart, billingdb.StatusActive).
		Permit(triggerCharge, billingdb.StatusActive).
		Permit(triggerActivated, billingdb.StatusActive)

	machine.Configure(billingdb.StatusInactive).
		Permit(triggerStart, billingdb.StatusActive).
		Permit(triggerCharge, billingdb.StatusActive).
		Permit(triggerActivated, billingdb.StatusActive).
		PermitReentry(triggerTerminated)

	machine.Configure(billingdb.StatusActive).
		PermitReentry(triggerCharge).
		PermitReentry(triggerActivated).
		Permit(triggerTerminated, billingdb.StatusInactive)

	return machine
}

// transition returns the status reached by firing trigger from the given status.
func transition(from billingdb.AccountStatus, trigger string) (billingdb.AccountStatus, error) {
	machine := newStatusMachine(from)
	if err := machine.Fire(trigger); err != nil {
		return from, fmt.Errorf("%w: cannot %s while %s", ErrConflict, trigger, from)
	}
	return machine.MustState().(billingdb.AccountStatus), nil
}
