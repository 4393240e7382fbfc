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

package matcher

import (
	"strconv"

	"github.com/gofrs/uuid"

	"github.com/sapcc/go-placement/internal/catalog"
	"github.com/sapcc/go-placement/internal/core"
	"github.com/sapcc/go-placement/internal/db"
	"github.com/sapcc/go-placement/internal/query"
)

// ErrGroupUnsatisfiable marks a fatal match failure for one request group
// (spec.md §4.3: "a fatal group causes the entire claim request to produce
// an empty result for that group"). The planner catches this and turns it
// into an empty-result group rather than a hard error.
type ErrGroupUnsatisfiable struct {
	GroupIndex int
	Reason     string
}

func (e ErrGroupUnsatisfiable) Error() string {
	return "request group " + strconv.Itoa(e.GroupIndex) + " is unsatisfiable: " + e.Reason
}

// GroupResult is the outcome of matching one request group: the chosen
// provider and one AllocationItem per resource constraint, bound to it.
type GroupResult struct {
	Provider core.ProviderRef
	Items    []core.AllocationItem
}

// MatchGroup evaluates one ClaimRequestGroup against the current database
// state (spec.md §4.3): capability constraints first (OR'd across the
// group via match_or, exclude always unioned via exclude_or), then resource
// constraints (AND'd via match_and, scoped by the accumulated exclude set),
// then picks one surviving provider and emits one AllocationItem per
// resource constraint with used = max_amount.
//
// Reports unsupported-but-accepted-in-schema features (provider-group and
// distance constraints, non-default group options) as
// core.ErrUnsupportedConstraint rather than silently ignoring them — this
// is a deliberate SPEC_FULL.md deviation from the permissive original
// behavior (see SPEC_FULL.md §9).
func MatchGroup(
	dbi db.Interface,
	cat *catalog.Catalog,
	window query.Window,
	groupIndex int,
	group core.ClaimRequestGroup,
) (GroupResult, error) {
	if err := rejectUnsupportedFeatures(groupIndex, group); err != nil {
		return GroupResult{}, err
	}

	ctx := newMatchContext()

	for _, cc := range group.CapabilityConstraints {
		result, err := evaluateCapabilityConstraint(dbi, cat, cc)
		if err != nil {
			return GroupResult{}, err
		}
		switch result.kind {
		case capResultNoExclude:
			continue
		case capResultNoMatches:
			return GroupResult{}, ErrGroupUnsatisfiable{GroupIndex: groupIndex, Reason: "capability constraint matched no providers"}
		default:
			if result.exclude != nil {
				ctx.excludeOr(result.exclude)
				continue
			}
			if !ctx.matchOr(result.matches) {
				return GroupResult{}, ErrGroupUnsatisfiable{GroupIndex: groupIndex, Reason: "capability constraints matched no providers"}
			}
		}
	}

	capQuery := query.CapacityQuery{Catalog: cat}
	for _, rc := range group.ResourceConstraints {
		result, err := evaluateResourceConstraint(dbi, capQuery, window, ctx.exclude, rc)
		if err != nil {
			return GroupResult{}, err
		}
		if !ctx.matchAnd(result.matches) {
			return GroupResult{}, ErrGroupUnsatisfiable{GroupIndex: groupIndex, Reason: "resource constraint '" + rc.ResourceTypeCode + "' matched no providers"}
		}
	}

	if len(ctx.matches) == 0 {
		return GroupResult{}, ErrGroupUnsatisfiable{GroupIndex: groupIndex, Reason: "group has no constraints and no candidate providers"}
	}

	provider := selectProvider(ctx.matches)

	items := make([]core.AllocationItem, 0, len(group.ResourceConstraints))
	for _, rc := range group.ResourceConstraints {
		items = append(items, core.AllocationItem{
			Provider:         provider,
			ResourceTypeCode: rc.ResourceTypeCode,
			Used:             rc.MaxAmount,
		})
	}

	return GroupResult{Provider: provider, Items: items}, nil
}

// selectProvider applies the tie-break spec.md §4.3 documents as
// "implementation-defined... current behavior is first by iteration
// order". Go map iteration order is randomized, so this picks the
// candidate with the lowest internal provider ID to make the choice
// deterministic and reproducible across runs (SPEC_FULL.md §9).
func selectProvider(matches providerSet) core.ProviderRef {
	var (
		bestID   int64
		bestUUID uuid.UUID
		first    = true
	)
	for id, u := range matches {
		if first || id < bestID {
			bestID, bestUUID, first = id, u, false
		}
	}
	return core.ProviderRef{ID: bestID, UUID: bestUUID}
}

// rejectUnsupportedFeatures implements SPEC_FULL.md §9's resolution of
// spec.md's Open Question on provider-group/distance constraints and
// group options: the original prototype accepted these in its schema but
// never enforced them. Rather than silently drop them, this rejects the
// request outright so a caller never gets an allocation that ignores
// constraints it explicitly asked for.
func rejectUnsupportedFeatures(groupIndex int, group core.ClaimRequestGroup) error {
	if len(group.ProviderGroupConstraints) > 0 {
		return core.ErrUnsupportedConstraint{GroupIndex: groupIndex, Feature: "provider_group_constraints"}
	}
	if len(group.DistanceConstraints) > 0 {
		return core.ErrUnsupportedConstraint{GroupIndex: groupIndex, Feature: "distance_constraints"}
	}
	if !group.Options.SingleProvider {
		return core.ErrUnsupportedConstraint{GroupIndex: groupIndex, Feature: "options.single_provider=false"}
	}
	if len(group.Options.IsolateFrom) > 0 {
		return core.ErrUnsupportedConstraint{GroupIndex: groupIndex, Feature: "options.isolate_from"}
	}
	return nil
}
