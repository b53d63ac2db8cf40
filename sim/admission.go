package sim

import "fmt"

// AdmissionOrder decides which service's queue head is admitted next when
// several services of one provider compete for its remaining capacity.
// Within a service, jobs are always admitted in FIFO order.
type AdmissionOrder interface {
	// Next returns a service with a non-empty queue, or nil if all are empty.
	Next(services []*Service) *Service
}

// RoundRobin serves the services in turn. The cursor starts at the service
// after the one served last and persists across steps, so a busy first
// service cannot hold back the others.
type RoundRobin struct {
	cursor int
}

func (rr *RoundRobin) Next(services []*Service) *Service {
	n := len(services)
	for i := 0; i < n; i++ {
		idx := (rr.cursor + i) % n
		if services[idx].queue.Len() > 0 {
			rr.cursor = (idx + 1) % n
			return services[idx]
		}
	}
	return nil
}

// DeclarationOrder is strict priority: the first declared service with
// queued work is always served first.
type DeclarationOrder struct{}

func (DeclarationOrder) Next(services []*Service) *Service {
	for _, s := range services {
		if s.queue.Len() > 0 {
			return s
		}
	}
	return nil
}

// ValidAdmissionOrders is the set of recognized admission order names.
var ValidAdmissionOrders = map[string]bool{"": true, "round-robin": true, "declaration-order": true}

// IsValidAdmissionOrder returns true if name is a recognized admission order.
func IsValidAdmissionOrder(name string) bool {
	return ValidAdmissionOrders[name]
}

// NewAdmissionOrder creates an admission order by name.
// An empty string defaults to RoundRobin.
// Panics on unrecognized names.
func NewAdmissionOrder(name string) AdmissionOrder {
	if !IsValidAdmissionOrder(name) {
		panic(fmt.Sprintf("unknown admission order %q", name))
	}
	switch name {
	case "", "round-robin":
		return &RoundRobin{}
	case "declaration-order":
		return DeclarationOrder{}
	default:
		panic(fmt.Sprintf("unhandled admission order %q", name))
	}
}
