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

// Package planner implements the placement planner (spec.md §4.4): it
// iterates a ClaimRequest's groups in order, delegates each to
// internal/matcher, and assembles the resulting AllocationItems into one
// Claim with an item-to-group index for downstream reporting.
package planner

import (
	"github.com/sapcc/go-bits/logg"

	"github.com/sapcc/go-placement/internal/catalog"
	"github.com/sapcc/go-placement/internal/core"
	"github.com/sapcc/go-placement/internal/db"
	"github.com/sapcc/go-placement/internal/matcher"
	"github.com/sapcc/go-placement/internal/query"
)

// Plan evaluates every request group in req.RequestGroups, in order, and
// assembles their AllocationItems into a single core.Claim. Groups are
// independent: there is no inter-group coordination (spec.md §4.4).
//
// A group that cannot be satisfied yields an empty Claim for the whole
// request (spec.md §4.3 "Fatal conditions", §7 "Infeasible") rather than a
// partial one: the caller gets either everything it asked for or nothing.
// A group using a feature the matcher rejects outright (provider-group or
// distance constraints, non-default options) instead returns
// core.ErrUnsupportedConstraint, since that failure reflects a malformed
// request rather than an infeasible one.
func Plan(dbi db.Interface, cat *catalog.Catalog, req core.ClaimRequest) (core.Claim, error) {
	window := query.Window{AcquireTime: req.AcquireTime, ReleaseTime: req.ReleaseTime}

	claim := core.Claim{
		AcquireTime: req.AcquireTime,
		ReleaseTime: req.ReleaseTime,
		ItemToGroup: map[int]int{},
	}

	for groupIndex, group := range req.RequestGroups {
		result, err := matcher.MatchGroup(dbi, cat, window, groupIndex, group)
		if err != nil {
			if _, unsupported := err.(core.ErrUnsupportedConstraint); unsupported {
				return core.Claim{}, err
			}
			if unsat, ok := err.(matcher.ErrGroupUnsatisfiable); ok {
				logg.Debug("planner: %s", unsat.Error())
				return core.Claim{}, nil
			}
			return core.Claim{}, err
		}

		for _, item := range result.Items {
			claim.ItemToGroup[len(claim.Items)] = groupIndex
			claim.Items = append(claim.Items, item)
		}
	}

	return claim, nil
}
