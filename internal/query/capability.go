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

// Package query implements the inventory and usage query layer (spec.md
// §4.2): the three read-only primitives that the constraint matcher
// composes into capability and resource constraint evaluation.
package query

import (
	"database/sql"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/sapcc/go-bits/sqlext"

	"github.com/sapcc/go-placement/internal/db"
)

// Unlimited disables the row limit on Primitive B/C queries. It must be
// used for the "forbid" use of Primitive C, because exclusions have to be
// exhaustive (spec.md §4.2).
const Unlimited = -1

// ProvidersWithAllCapabilities is Primitive B: returns providers having
// every one of the given capability IDs, keyed by internal provider ID.
func ProvidersWithAllCapabilities(dbi db.Interface, capabilityIDs []int64, limit int) (map[int64]uuid.UUID, error) {
	if len(capabilityIDs) == 0 {
		return map[int64]uuid.UUID{}, nil
	}
	where, args := db.BuildSimpleWhereClause(map[string]any{
		"pc.capability_id": toAnySlice(capabilityIDs),
	}, 0)
	query := sqlext.SimplifyWhitespace(fmt.Sprintf(`
		SELECT p.id, p.uuid
		  FROM providers AS p
		  JOIN provider_capabilities AS pc ON p.id = pc.provider_id
		 WHERE %s
		 GROUP BY p.id, p.uuid
		HAVING COUNT(pc.capability_id) = $%d
	`, where, len(args)+1))
	args = append(args, len(capabilityIDs))
	return scanProviders(dbi, applyLimit(query, limit), args)
}

// ProvidersWithAnyCapabilities is Primitive C: returns providers having at
// least one of the given capability IDs, keyed by internal provider ID. No
// HAVING/COUNT predicate, unlike Primitive B.
func ProvidersWithAnyCapabilities(dbi db.Interface, capabilityIDs []int64, limit int) (map[int64]uuid.UUID, error) {
	if len(capabilityIDs) == 0 {
		return map[int64]uuid.UUID{}, nil
	}
	where, args := db.BuildSimpleWhereClause(map[string]any{
		"pc.capability_id": toAnySlice(capabilityIDs),
	}, 0)
	query := sqlext.SimplifyWhitespace(fmt.Sprintf(`
		SELECT DISTINCT p.id, p.uuid
		  FROM providers AS p
		  JOIN provider_capabilities AS pc ON p.id = pc.provider_id
		 WHERE %s
	`, where))
	return scanProviders(dbi, applyLimit(query, limit), args)
}

func applyLimit(query string, limit int) string {
	if limit == Unlimited {
		return query
	}
	return fmt.Sprintf("%s LIMIT %d", query, limit)
}

func scanProviders(dbi db.Interface, query string, args []any) (map[int64]uuid.UUID, error) {
	result := make(map[int64]uuid.UUID)
	err := sqlext.ForeachRow(dbi, query, args, func(rows *sql.Rows) error {
		var (
			id       int64
			rawUUID  string
		)
		err := rows.Scan(&id, &rawUUID)
		if err != nil {
			return err
		}
		parsed, err := uuid.FromString(rawUUID)
		if err != nil {
			return err
		}
		result[id] = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func toAnySlice(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
