package systems

import "github.com/mlange-42/ark/ecs"

// ClaimTable is the neutral arbitrator for predation ownership. Hunters
// record "I am hunting X" here instead of holding mutual object
// references, so prey removal cannot leave dangling pointers and the
// at-most-one-hunter invariant is enforced in one place.
type ClaimTable struct {
	byTarget map[ecs.Entity]ecs.Entity // target -> hunter
	byHunter map[ecs.Entity]ecs.Entity // hunter -> target
}

// NewClaimTable creates an empty claim table.
func NewClaimTable() *ClaimTable {
	return &ClaimTable{
		byTarget: make(map[ecs.Entity]ecs.Entity, 16),
		byHunter: make(map[ecs.Entity]ecs.Entity, 16),
	}
}

// Claim records hunter as the sole hunter of target. Returns false if
// another hunter already holds a claim on target. A hunter re-claiming
// its own target succeeds. Claiming a new target releases the hunter's
// previous claim.
func (c *ClaimTable) Claim(target, hunter ecs.Entity) bool {
	if existing, ok := c.byTarget[target]; ok {
		return existing == hunter
	}
	if prev, ok := c.byHunter[hunter]; ok {
		delete(c.byTarget, prev)
	}
	c.byTarget[target] = hunter
	c.byHunter[hunter] = target
	return true
}

// Holder returns the hunter claiming target, if any.
func (c *ClaimTable) Holder(target ecs.Entity) (ecs.Entity, bool) {
	h, ok := c.byTarget[target]
	return h, ok
}

// TargetOf returns the target claimed by hunter, if any.
func (c *ClaimTable) TargetOf(hunter ecs.Entity) (ecs.Entity, bool) {
	t, ok := c.byHunter[hunter]
	return t, ok
}

// Claimed reports whether target is claimed by a hunter other than self.
func (c *ClaimTable) Claimed(target, self ecs.Entity) bool {
	h, ok := c.byTarget[target]
	return ok && h != self
}

// ReleaseHunter drops the claim held by hunter, if any.
func (c *ClaimTable) ReleaseHunter(hunter ecs.Entity) {
	if t, ok := c.byHunter[hunter]; ok {
		delete(c.byTarget, t)
		delete(c.byHunter, hunter)
	}
}

// ReleaseTarget drops any claim on target. Called whenever an entity is
// removed from the population, so stale claims cannot outlive their prey.
func (c *ClaimTable) ReleaseTarget(target ecs.Entity) {
	if h, ok := c.byTarget[target]; ok {
		delete(c.byHunter, h)
		delete(c.byTarget, target)
	}
}

// Drop removes every claim involving e, as hunter or as target.
func (c *ClaimTable) Drop(e ecs.Entity) {
	c.ReleaseHunter(e)
	c.ReleaseTarget(e)
}

// Len returns the number of active claims.
func (c *ClaimTable) Len() int {
	return len(c.byTarget)
}
