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
	"github.com/sapcc/go-placement/internal/core"
	"github.com/sapcc/go-placement/internal/db"
	"github.com/sapcc/go-placement/internal/query"
)

// resourceMatchResult is the outcome of evaluating one resource constraint:
// the providers with enough capacity and correct unit sizing, after the
// group's exclude set and its own embedded capability constraint have both
// been applied.
type resourceMatchResult struct {
	matches providerSet
}

// evaluateResourceConstraint runs Primitive A (internal/query.CapacityQuery)
// for one resource constraint, scoped to the group's current exclude set
// (spec.md §4.3: resource constraints never add to exclude, they only
// consume it).
func evaluateResourceConstraint(
	dbi db.Interface,
	capQuery query.CapacityQuery,
	window query.Window,
	exclude providerSet,
	c core.ResourceConstraint,
) (resourceMatchResult, error) {
	providers, err := capQuery.ProvidersWithCapacity(
		dbi,
		window,
		c.ResourceTypeCode,
		c.MaxAmount,
		exclude,
		c.CapabilityConstraint,
		query.Unlimited,
	)
	if err != nil {
		return resourceMatchResult{}, err
	}
	return resourceMatchResult{matches: providerSet(providers)}, nil
}
