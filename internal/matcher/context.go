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

// Package matcher implements the constraint matcher (spec.md §4.3): filter
// composition (positive union, positive intersection, exclusion
// carry-through) across capability and resource constraints within one
// request group.
package matcher

import "github.com/gofrs/uuid"

// providerSet maps internal provider ID to provider UUID.
type providerSet map[int64]uuid.UUID

func (s providerSet) clone() providerSet {
	out := make(providerSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// matchContext threads state through one request group's evaluation
// (spec.md §4.3). It is a local value, never shared across groups
// (SPEC_FULL.md §9, cycle-free ownership / no cross-group sharing).
type matchContext struct {
	// matches holds the currently surviving candidates, keyed by provider ID.
	matches providerSet
	// exclude holds providers barred from all subsequent constraints in the
	// group because they matched a forbid filter.
	exclude providerSet
	// startedFiltering latches true the first time matches is populated.
	startedFiltering bool
}

func newMatchContext() *matchContext {
	return &matchContext{
		matches: providerSet{},
		exclude: providerSet{},
	}
}

// matchOr unions `next` into matches (or seeds matches with it, the first
// time). Returns whether matches is non-empty afterward.
func (c *matchContext) matchOr(next providerSet) bool {
	if !c.startedFiltering {
		c.matches = next.clone()
		c.startedFiltering = true
	} else {
		for id, u := range next {
			c.matches[id] = u
		}
	}
	return len(c.matches) > 0
}

// matchAnd intersects `next` into matches by key (or seeds matches with it,
// the first time). Returns whether matches is non-empty afterward.
func (c *matchContext) matchAnd(next providerSet) bool {
	if !c.startedFiltering {
		c.matches = next.clone()
		c.startedFiltering = true
	} else {
		for id := range c.matches {
			if _, ok := next[id]; !ok {
				delete(c.matches, id)
			}
		}
	}
	return len(c.matches) > 0
}

// excludeOr unconditionally unions `next` into exclude.
func (c *matchContext) excludeOr(next providerSet) {
	for id, u := range next {
		c.exclude[id] = u
	}
}
