/*******************************************************************************
*
* Copyright 2025 SAP SE
*
* Licensed under the Apache License, Version 2.0 (the "License");
* you may not use this file except in compliance with the License.
* You should have received a copy of the License along with this
* program. If not, you may obtain a copy of the License at
*
*     http://www.apache.org/licenses/LICENSE-2.0
*
* Unless required by applicable law or agreed to in writing, software
* distributed under the License is distributed on an "AS IS" BASIS,
* WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
* See the License for the specific language governing permissions and
* limitations under the License.
*
*******************************************************************************/

// Package core contains the domain types shared by the catalog, query,
// matcher, planner and executor packages, plus the engine's typed error
// taxonomy.
package core

import "github.com/gofrs/uuid"

// ProviderRef identifies a provider by its internal ID and its externally
// visible UUID. AllocationItems borrow this pair rather than holding a
// reference to the full Provider record.
type ProviderRef struct {
	ID   int64
	UUID uuid.UUID
}

// ResourceConstraint asks for an amount of one resource type, optionally
// scoped to providers meeting an embedded capability constraint.
//
// MinAmount and MaxAmount default to each other when the collaborator that
// builds a ClaimRequest leaves one unset; the matcher always works off
// MaxAmount (spec's resource-capacity query binds on the requested amount,
// which is the upper bound of what the caller is willing to accept).
type ResourceConstraint struct {
	ResourceTypeCode    string
	MinAmount           int64
	MaxAmount           int64
	CapabilityConstraint *CapabilityConstraint
}

// CapabilityConstraint expresses a positive-union (Any), positive-
// intersection (Require) and exclusion (Forbid) filter over capability
// codes. Any subset may be empty; at least one is expected to be non-empty
// for the constraint to do anything.
type CapabilityConstraint struct {
	Require []string
	Any     []string
	Forbid  []string
}

// IsEmpty returns true if none of Require, Any or Forbid carry anything,
// i.e. the constraint is a no-op.
func (c CapabilityConstraint) IsEmpty() bool {
	return len(c.Require) == 0 && len(c.Any) == 0 && len(c.Forbid) == 0
}

// ProviderGroupConstraint is accepted in the request schema but rejected by
// the planner (see DESIGN.md's resolution of the corresponding Open
// Question): the matcher has no algorithm to enforce it.
type ProviderGroupConstraint struct {
	RequireGroups []string
	AnyGroups     []string
	ForbidGroups  []string
}

// DistanceConstraint is accepted in the request schema but rejected by the
// planner, for the same reason as ProviderGroupConstraint.
type DistanceConstraint struct {
	ProviderGroupUUID uuid.UUID
	Minimum           *int
	Maximum           *int
}

// ClaimRequestGroupOptions controls per-group placement behavior. Only
// SingleProvider: true is implemented; any other combination is rejected by
// the planner (see SPEC_FULL.md §9).
type ClaimRequestGroupOptions struct {
	SingleProvider bool
	IsolateFrom    []int
}

// ClaimRequestGroup bundles the constraints that apply together, OR'd
// across capability constraints and AND'd across resource constraints, as
// described by the matcher (internal/matcher).
type ClaimRequestGroup struct {
	Options                 ClaimRequestGroupOptions
	ResourceConstraints     []ResourceConstraint
	CapabilityConstraints   []CapabilityConstraint
	ProviderGroupConstraints []ProviderGroupConstraint
	DistanceConstraints     []DistanceConstraint
}

// ClaimRequest is the top-level input to the placement planner.
type ClaimRequest struct {
	Consumer     ConsumerRef
	RequestGroups []ClaimRequestGroup
	AcquireTime  int64 // epoch seconds
	ReleaseTime  int64 // epoch seconds
}

// ConsumerRef identifies the consumer a claim is made on behalf of. The
// consumer record itself is upserted lazily by the executor (spec.md §3
// Lifecycle); the planner only needs enough identity to let the executor do
// that.
type ConsumerRef struct {
	UUID         uuid.UUID
	TypeCode     string
	OwnerProject uuid.UUID
	OwnerUser    uuid.UUID
}

// AllocationItem is a single resource commitment against one provider,
// produced by the matcher and destined for the executor. It borrows the
// provider's identity by (id, uuid) rather than holding a back-reference to
// the Provider record (SPEC_FULL.md §9, cycle-free ownership).
type AllocationItem struct {
	Provider         ProviderRef
	ResourceTypeCode string
	Used             int64
}

// Claim is the planner's output: a fully assembled, not-yet-committed
// placement. An empty Items slice signifies infeasibility (spec.md §7,
// Infeasible).
type Claim struct {
	AcquireTime   int64
	ReleaseTime   int64
	Items         []AllocationItem
	ItemToGroup   map[int]int // allocation item index -> originating request group index
}

// Allocation is the persisted header for a committed Claim, as returned by
// the executor after a successful commit.
type Allocation struct {
	ID          int64
	ConsumerUUID uuid.UUID
	AcquireTime int64
	ReleaseTime int64
}
