package workload

import (
	"fmt"

	"github.com/ahoi-sim/provider-sim/sim"
)

// Customer is a synthetic requester. It counts the jobs it asked for and
// tracks how many are in service, as told by the service behaviors.
type Customer struct {
	ID string

	Requested     int   // requests accepted onto a queue
	Rejected      int   // requests turned away as duplicates
	Started       int   // jobs admitted
	Completed     int   // jobs completed
	InService     int   // jobs currently active
	LastCompleted int64 // step of the most recent completion, -1 if none
}

// NewCustomer creates a customer with the given index.
func NewCustomer(idx int) *Customer {
	return &Customer{ID: fmt.Sprintf("customer_%d", idx), LastCompleted: -1}
}

// RequesterID implements sim.Requester.
func (c *Customer) RequesterID() string { return c.ID }

// JobStarted implements sim.JobObserver.
func (c *Customer) JobStarted(_ *sim.Job, _ int64) {
	c.Started++
	c.InService++
}

// JobCompleted implements sim.JobObserver.
func (c *Customer) JobCompleted(_ *sim.Job, step int64) {
	c.Completed++
	c.InService--
	c.LastCompleted = step
}

func (c *Customer) String() string {
	return fmt.Sprintf("Customer: (ID: %s, Requested: %d, InService: %d, Completed: %d)", c.ID, c.Requested, c.InService, c.Completed)
}
