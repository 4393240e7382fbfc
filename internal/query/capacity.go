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

package query

import (
	"database/sql"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/sapcc/go-bits/sqlext"

	"github.com/sapcc/go-placement/internal/catalog"
	"github.com/sapcc/go-placement/internal/core"
	"github.com/sapcc/go-placement/internal/db"
)

// CapacityQuery implements Primitive A (spec.md §4.2): the query that
// finds providers with capacity and correct unit sizing for one resource
// constraint, within a claim's acquire/release window.
type CapacityQuery struct {
	Catalog *catalog.Catalog
}

// ProvidersWithCapacity returns providers having an Inventory row for
// resourceTypeCode such that:
//
//  1. effective capacity >= amount + overlapping usage;
//  2. min_unit <= amount <= max_unit and amount is a multiple of step_size;
//  3. the provider is not in `exclude`;
//  4. if capConstraint is non-nil and non-empty, the provider independently
//     satisfies it (resolved via Primitive B/C, scoped to this resource
//     constraint only -- never through the outer MatchContext, per
//     spec.md §4.3).
//
// limit bounds the number of rows returned; pass Unlimited to disable it.
func (q CapacityQuery) ProvidersWithCapacity(
	dbi db.Interface,
	window Window,
	resourceTypeCode string,
	amount int64,
	exclude map[int64]uuid.UUID,
	capConstraint *core.CapabilityConstraint,
	limit int,
) (map[int64]uuid.UUID, error) {
	resourceTypeID, err := q.Catalog.ResourceTypeID(resourceTypeCode)
	if err != nil {
		return nil, err
	}

	var filter *embeddedCapabilityFilter
	if capConstraint != nil && !capConstraint.IsEmpty() {
		filter, err = q.resolveEmbeddedCapabilityConstraint(dbi, *capConstraint)
		if err != nil {
			return nil, err
		}
	}

	query := sqlext.SimplifyWhitespace(fmt.Sprintf(`
		SELECT p.id, p.uuid
		  FROM providers AS p
		  JOIN inventories AS i ON p.id = i.provider_id AND i.resource_type_id = $1
		  LEFT JOIN (
		      SELECT ai.provider_id, SUM(ai.used) AS total_used
		        FROM allocation_items AS ai
		        JOIN allocations AS a ON ai.allocation_id = a.id
		       WHERE ai.resource_type_id = $1
		         AND %s
		       GROUP BY ai.provider_id
		  ) AS usages ON usages.provider_id = p.id
		 WHERE ((i.total - i.reserved) * i.allocation_ratio) >= ($2 + COALESCE(usages.total_used, 0))
		   AND i.min_unit <= $2
		   AND i.max_unit >= $2
		   AND MOD($2, i.step_size) = 0
	`, fmt.Sprintf(OverlapPredicate, "$4", "$3")))
	args := []any{resourceTypeID, amount, window.AcquireTime, window.ReleaseTime}

	if len(exclude) > 0 {
		excludeIDs := make([]any, 0, len(exclude))
		for id := range exclude {
			excludeIDs = append(excludeIDs, id)
		}
		where, extraArgs := db.BuildSimpleWhereClause(map[string]any{"p.id": excludeIDs}, len(args))
		query = sqlext.SimplifyWhitespace(query + " AND NOT (" + where + ")")
		args = append(args, extraArgs...)
	}

	if limit != Unlimited {
		query = sqlext.SimplifyWhitespace(fmt.Sprintf("%s LIMIT %d", query, limit))
	}

	result := make(map[int64]uuid.UUID)
	err = sqlext.ForeachRow(dbi, query, args, func(rows *sql.Rows) error {
		var (
			id      int64
			rawUUID string
		)
		scanErr := rows.Scan(&id, &rawUUID)
		if scanErr != nil {
			return scanErr
		}
		if !filter.permits(id) {
			return nil
		}
		parsed, parseErr := uuid.FromString(rawUUID)
		if parseErr != nil {
			return parseErr
		}
		result[id] = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// embeddedCapabilityFilter is a tri-state row filter for the capacity
// query's embedded capability constraint. It is either:
//   - nil: no constraint, every row passes;
//   - an allow-list (require and/or any were given): only IDs in `set` pass;
//   - a deny-list (forbid only was given): every ID except those in `set` passes.
type embeddedCapabilityFilter struct {
	isAllowList bool
	set         map[int64]bool
}

func (f *embeddedCapabilityFilter) permits(id int64) bool {
	if f == nil {
		return true
	}
	if f.isAllowList {
		return f.set[id]
	}
	return !f.set[id]
}

// resolveEmbeddedCapabilityConstraint evaluates a resource constraint's
// embedded capability constraint and returns a filter describing which
// provider IDs satisfy it. Unlike the group-level capability constraints
// handled by internal/matcher, this evaluation is entirely local: it never
// touches a MatchContext, because its scope is this one resource constraint.
func (q CapacityQuery) resolveEmbeddedCapabilityConstraint(dbi db.Interface, c core.CapabilityConstraint) (*embeddedCapabilityFilter, error) {
	allow := make(map[int64]bool)
	haveRequireOrAny := false

	if len(c.Require) > 0 {
		ids, err := q.Catalog.CapabilityIDs(c.Require)
		if err != nil {
			return nil, err
		}
		providers, err := ProvidersWithAllCapabilities(dbi, ids, Unlimited)
		if err != nil {
			return nil, err
		}
		for id := range providers {
			allow[id] = true
		}
		haveRequireOrAny = true
	}

	if len(c.Any) > 0 {
		ids, err := q.Catalog.CapabilityIDs(c.Any)
		if err != nil {
			return nil, err
		}
		providers, err := ProvidersWithAnyCapabilities(dbi, ids, Unlimited)
		if err != nil {
			return nil, err
		}
		if haveRequireOrAny {
			for id := range allow {
				if _, ok := providers[id]; !ok {
					delete(allow, id)
				}
			}
		} else {
			for id := range providers {
				allow[id] = true
			}
		}
		haveRequireOrAny = true
	}

	if len(c.Forbid) > 0 {
		ids, err := q.Catalog.CapabilityIDs(c.Forbid)
		if err != nil {
			return nil, err
		}
		providers, err := ProvidersWithAnyCapabilities(dbi, ids, Unlimited)
		if err != nil {
			return nil, err
		}
		if haveRequireOrAny {
			for id := range providers {
				delete(allow, id)
			}
			return &embeddedCapabilityFilter{isAllowList: true, set: allow}, nil
		}
		// forbid-only: deny-list, every provider except these passes.
		deny := make(map[int64]bool, len(providers))
		for id := range providers {
			deny[id] = true
		}
		return &embeddedCapabilityFilter{isAllowList: false, set: deny}, nil
	}

	return &embeddedCapabilityFilter{isAllowList: true, set: allow}, nil
}
