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
	"github.com/sapcc/go-bits/logg"

	"github.com/sapcc/go-placement/internal/catalog"
	"github.com/sapcc/go-placement/internal/core"
	"github.com/sapcc/go-placement/internal/db"
	"github.com/sapcc/go-placement/internal/query"
)

// defaultCapabilityRowLimit bounds the number of providers a "require" or
// "any" capability query returns, since the matcher only needs enough
// candidates to intersect against the rest of the group. It does not apply
// to "forbid" evaluation, which must be exhaustive (spec.md §4.2).
const defaultCapabilityRowLimit = 50

// capResultKind is the three-valued logic spec.md §4.3 describes: a normal
// result, a fatal miss ("NoMatches"), or a positive null telling the caller
// to skip this constraint without disturbing `matches` ("NoExclude").
type capResultKind int

const (
	capResultNormal capResultKind = iota
	capResultNoMatches
	capResultNoExclude
)

// capabilityMatchResult describes the matches and exclusions determined for
// one capability constraint.
type capabilityMatchResult struct {
	kind    capResultKind
	matches providerSet
	exclude providerSet
}

// evaluateCapabilityConstraint implements spec.md §4.3's per-constraint
// capability evaluation:
//
//  1. require non-empty -> Primitive B; empty result is fatal (NoMatches).
//  2. any non-empty -> Primitive C; empty result is fatal (NoMatches);
//     intersect with the require-set if present.
//  3. forbid non-empty -> Primitive C with Unlimited; subtract from the
//     running set if require/any were present, otherwise stash in exclude.
//  4. forbid-only and zero providers matched forbid -> NoExclude.
func evaluateCapabilityConstraint(dbi db.Interface, cat *catalog.Catalog, c core.CapabilityConstraint) (capabilityMatchResult, error) {
	matched := providerSet{}
	haveRequireOrAny := false

	if len(c.Require) > 0 {
		ids, err := cat.CapabilityIDs(c.Require)
		if err != nil {
			return capabilityMatchResult{}, err
		}
		providers, err := query.ProvidersWithAllCapabilities(dbi, ids, defaultCapabilityRowLimit)
		if err != nil {
			return capabilityMatchResult{}, err
		}
		if len(providers) == 0 {
			logg.Debug("matcher: no providers matched required capabilities %v", c.Require)
			return capabilityMatchResult{kind: capResultNoMatches}, nil
		}
		matched = providerSet(providers)
		haveRequireOrAny = true
	}

	if len(c.Any) > 0 {
		ids, err := cat.CapabilityIDs(c.Any)
		if err != nil {
			return capabilityMatchResult{}, err
		}
		providers, err := query.ProvidersWithAnyCapabilities(dbi, ids, defaultCapabilityRowLimit)
		if err != nil {
			return capabilityMatchResult{}, err
		}
		if len(providers) == 0 {
			logg.Debug("matcher: no providers matched any-of capabilities %v", c.Any)
			return capabilityMatchResult{kind: capResultNoMatches}, nil
		}
		if haveRequireOrAny {
			for id := range matched {
				if _, ok := providers[id]; !ok {
					delete(matched, id)
				}
			}
			if len(matched) == 0 {
				return capabilityMatchResult{kind: capResultNoMatches}, nil
			}
		} else {
			matched = providerSet(providers)
		}
		haveRequireOrAny = true
	}

	if len(c.Forbid) > 0 {
		ids, err := cat.CapabilityIDs(c.Forbid)
		if err != nil {
			return capabilityMatchResult{}, err
		}
		forbidden, err := query.ProvidersWithAnyCapabilities(dbi, ids, query.Unlimited)
		if err != nil {
			return capabilityMatchResult{}, err
		}
		if len(forbidden) > 0 {
			if haveRequireOrAny {
				for id := range forbidden {
					delete(matched, id)
				}
				if len(matched) == 0 {
					return capabilityMatchResult{kind: capResultNoMatches}, nil
				}
			} else {
				return capabilityMatchResult{kind: capResultNormal, exclude: providerSet(forbidden)}, nil
			}
		} else if !haveRequireOrAny {
			// Constraint contained only a forbid section and nothing matched
			// it: a positive result that must not disturb `matches`.
			return capabilityMatchResult{kind: capResultNoExclude}, nil
		}
	}

	return capabilityMatchResult{kind: capResultNormal, matches: matched}, nil
}
