package queueentry

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinicq/clinicq/internal/domain/concept"
	"github.com/clinicq/clinicq/internal/domain/queue"
)

// Policy names accepted in configuration.
const (
	PolicyPriorityPosition = "priority-position"
	PolicyExistingValue    = "existing-value"
)

// WeightPolicy produces the sort weight persisted with an entry. The weight is
// recomputed on every admission so a policy change takes effect without a
// backfill.
type WeightPolicy interface {
	// Generate returns the weight for the entry about to be saved. The entry
	// is fully populated except for SortWeight itself.
	Generate(ctx context.Context, e *QueueEntry) (float64, error)
}

// PolicyRegistry maps configuration names to policies. The registry is built
// once at startup; resolving an unknown name is a configuration error, not a
// fallback.
type PolicyRegistry struct {
	policies map[string]WeightPolicy
}

func NewPolicyRegistry() *PolicyRegistry {
	return &PolicyRegistry{policies: make(map[string]WeightPolicy)}
}

func (r *PolicyRegistry) Register(name string, p WeightPolicy) {
	r.policies[name] = p
}

func (r *PolicyRegistry) Resolve(name string) (WeightPolicy, error) {
	p, ok := r.policies[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown sort weight policy %q", ErrConfiguration, name)
	}
	return p, nil
}

// QueueLookup is the slice of the queue service the priority policy needs.
type QueueLookup interface {
	GetQueue(ctx context.Context, id uuid.UUID) (*queue.Queue, error)
}

// PriorityPositionPolicy ranks entries by where their priority concept sits in
// the queue's allowed-priority set: weight is the zero-based position, so later
// members of the set rank higher. Entries with no priority, an unresolvable
// set, or a priority outside the set weigh zero.
type PriorityPositionPolicy struct {
	queues       QueueLookup
	concepts     concept.Resolver
	defaultSetID uuid.UUID
}

// NewPriorityPositionPolicy builds the policy. defaultSetID is the global
// allowed-priority set used by queues that do not configure their own; pass
// uuid.Nil when no global set is configured.
func NewPriorityPositionPolicy(queues QueueLookup, concepts concept.Resolver, defaultSetID uuid.UUID) *PriorityPositionPolicy {
	return &PriorityPositionPolicy{queues: queues, concepts: concepts, defaultSetID: defaultSetID}
}

func (p *PriorityPositionPolicy) Generate(ctx context.Context, e *QueueEntry) (float64, error) {
	if e.PriorityConceptID == nil {
		return 0, nil
	}
	q, err := p.queues.GetQueue(ctx, e.QueueID)
	if err != nil {
		return 0, err
	}
	setID := p.defaultSetID
	if q.AllowedPrioritiesSetID != nil {
		setID = *q.AllowedPrioritiesSetID
	}
	if setID == uuid.Nil {
		return 0, nil
	}
	members, err := p.concepts.SetMembers(ctx, setID)
	if err != nil {
		return 0, err
	}
	for i, m := range members {
		if m.ID == *e.PriorityConceptID {
			return float64(i), nil
		}
	}
	return 0, nil
}

// ExistingValuePolicy keeps whatever weight the entry already carries. Useful
// when weights are assigned by an external system and must survive rewrites.
type ExistingValuePolicy struct{}

func (ExistingValuePolicy) Generate(_ context.Context, e *QueueEntry) (float64, error) {
	return e.SortWeight, nil
}
