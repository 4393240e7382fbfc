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

// Package executor implements the claim executor (spec.md §4.5): a
// two-phase commit that re-validates a planned Claim against current
// database state and then writes it, serializing concurrent claims on the
// same provider through a per-provider generation compare-and-swap.
package executor

import (
	"database/sql"
	"fmt"
	"time"

	gorp "github.com/go-gorp/gorp/v3"
	"github.com/gofrs/uuid"
	"github.com/sapcc/go-bits/sqlext"

	"github.com/sapcc/go-placement/internal/catalog"
	"github.com/sapcc/go-placement/internal/core"
	"github.com/sapcc/go-placement/internal/db"
	"github.com/sapcc/go-placement/internal/query"
)

// Executor commits planned Claims, running both commit phases inside a
// single database transaction (spec.md §4.5).
type Executor struct {
	DB      *gorp.DbMap
	Catalog *catalog.Catalog
}

// New wires up an Executor against the given connection and catalog.
func New(dbMap *gorp.DbMap, cat *catalog.Catalog) *Executor {
	return &Executor{DB: dbMap, Catalog: cat}
}

// Execute runs the two-phase commit for claim on behalf of consumer. On
// success, it returns the persisted Allocation header. On a validation
// failure it returns a core.ErrorSet describing every violated
// (provider, resource type) pair; on a concurrent-write race it returns
// core.GenerationConflict, which the caller should treat as a signal to
// re-plan and retry (spec.md §4.5 "Retry policy").
func (e *Executor) Execute(consumer core.ConsumerRef, claim core.Claim) (result core.Allocation, err error) {
	start := time.Now()
	defer func() {
		observeCommit(err, time.Since(start))
	}()

	if len(claim.Items) == 0 {
		return core.Allocation{}, fmt.Errorf("cannot execute an empty claim")
	}

	tx, err := e.DB.Begin()
	if err != nil {
		return core.Allocation{}, err
	}
	defer sqlext.RollbackUnlessCommitted(tx)

	generations, err := e.revalidate(tx, claim)
	if err != nil {
		return core.Allocation{}, err
	}

	allocation, err := e.write(tx, consumer, claim, generations)
	if err != nil {
		return core.Allocation{}, err
	}

	err = tx.Commit()
	if err != nil {
		return core.Allocation{}, err
	}
	return allocation, nil
}

// touchedProvider groups a claim's items by provider, for the purposes of
// re-validation and the per-provider generation CAS.
type touchedProvider struct {
	id         int64
	uuid       uuid.UUID
	generation int64
}

// revalidate implements Phase 1 (spec.md §4.5): re-read inventory and
// generation for every (provider, resource type) pair in the claim,
// re-aggregate overlapping usage, and re-check I1 (capacity) and I2 (unit
// discipline). Returns the current generation of every touched provider for
// Phase 2's CAS, or a core.ErrorSet if any pair fails validation.
func (e *Executor) revalidate(tx gorp.SqlExecutor, claim core.Claim) (map[int64]touchedProvider, error) {
	var errs core.ErrorSet
	touched := make(map[int64]touchedProvider)

	for _, item := range claim.Items {
		resourceTypeID, err := e.Catalog.ResourceTypeID(item.ResourceTypeCode)
		if err != nil {
			return nil, err
		}

		var row struct {
			Generation      int64   `db:"generation"`
			Total           int64   `db:"total"`
			Reserved        int64   `db:"reserved"`
			MinUnit         int64   `db:"min_unit"`
			MaxUnit         int64   `db:"max_unit"`
			StepSize        int64   `db:"step_size"`
			AllocationRatio float64 `db:"allocation_ratio"`
			TotalUsed       int64   `db:"total_used"`
		}
		queryStr := sqlext.SimplifyWhitespace(fmt.Sprintf(`
			SELECT p.generation, i.total, i.reserved, i.min_unit, i.max_unit, i.step_size, i.allocation_ratio,
			       COALESCE((
			           SELECT SUM(ai.used)
			             FROM allocation_items AS ai
			             JOIN allocations AS a ON ai.allocation_id = a.id
			            WHERE ai.provider_id = i.provider_id
			              AND ai.resource_type_id = i.resource_type_id
			              AND %s
			       ), 0) AS total_used
			  FROM providers AS p
			  JOIN inventories AS i ON i.provider_id = p.id
			 WHERE p.id = $3 AND i.resource_type_id = $4
		`, fmt.Sprintf(query.OverlapPredicate, "$2", "$1")))
		err = tx.SelectOne(&row, queryStr, claim.AcquireTime, claim.ReleaseTime, item.Provider.ID, resourceTypeID)
		if err == sql.ErrNoRows {
			errs.Add(core.MissingInventory{ProviderUUID: item.Provider.UUID, ResourceCode: item.ResourceTypeCode})
			continue
		}
		if err != nil {
			return nil, err
		}

		if item.Used < row.MinUnit {
			errs.Add(core.MinUnitViolation{
				ProviderUUID: item.Provider.UUID, ResourceCode: item.ResourceTypeCode,
				MinUnit: row.MinUnit, Requested: item.Used,
			})
		}
		if item.Used > row.MaxUnit {
			errs.Add(core.MaxUnitViolation{
				ProviderUUID: item.Provider.UUID, ResourceCode: item.ResourceTypeCode,
				MaxUnit: row.MaxUnit, Requested: item.Used,
			})
		}
		if row.StepSize != 0 && item.Used%row.StepSize != 0 {
			errs.Add(core.StepSizeViolation{
				ProviderUUID: item.Provider.UUID, ResourceCode: item.ResourceTypeCode,
				StepSize: row.StepSize, Requested: item.Used,
			})
		}
		effectiveCapacity := float64(row.Total-row.Reserved) * row.AllocationRatio
		if float64(item.Used+row.TotalUsed) > effectiveCapacity {
			errs.Add(core.CapacityExceeded{
				ProviderUUID: item.Provider.UUID, ResourceCode: item.ResourceTypeCode,
				Requested: item.Used, Total: row.Total, TotalUsed: row.TotalUsed,
				Reserved: row.Reserved, AllocationRatio: row.AllocationRatio,
			})
		}

		touched[item.Provider.ID] = touchedProvider{
			id: item.Provider.ID, uuid: item.Provider.UUID, generation: row.Generation,
		}
	}

	if !errs.IsEmpty() {
		return nil, errs
	}
	return touched, nil
}

// write implements Phase 2 (spec.md §4.5): upsert the consumer, insert the
// Allocation header and its items, then compare-and-swap each touched
// provider's generation. Any CAS miss raises core.GenerationConflict,
// which aborts the whole write (the deferred RollbackUnlessCommitted in
// Execute takes care of the rollback).
func (e *Executor) write(tx gorp.SqlExecutor, consumerRef core.ConsumerRef, claim core.Claim, touched map[int64]touchedProvider) (core.Allocation, error) {
	consumerID, err := e.upsertConsumer(tx, consumerRef)
	if err != nil {
		return core.Allocation{}, err
	}

	allocation := &db.Allocation{
		ConsumerID:  consumerID,
		AcquireTime: claim.AcquireTime,
		ReleaseTime: claim.ReleaseTime,
	}
	err = tx.Insert(allocation)
	if err != nil {
		return core.Allocation{}, err
	}

	for _, item := range claim.Items {
		resourceTypeID, err := e.Catalog.ResourceTypeID(item.ResourceTypeCode)
		if err != nil {
			return core.Allocation{}, err
		}
		row := &db.AllocationItem{
			AllocationID:   allocation.ID,
			ProviderID:     item.Provider.ID,
			ResourceTypeID: resourceTypeID,
			Used:           item.Used,
		}
		err = tx.Insert(row)
		if err != nil {
			return core.Allocation{}, err
		}
	}

	for _, p := range touched {
		result, err := tx.Exec(
			`UPDATE providers SET generation = generation + 1 WHERE id = $1 AND generation = $2`,
			p.id, p.generation,
		)
		if err != nil {
			return core.Allocation{}, err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return core.Allocation{}, err
		}
		if affected != 1 {
			return core.Allocation{}, core.GenerationConflict{ObjectType: "provider", ObjectUUID: p.uuid}
		}
	}

	return core.Allocation{
		ID:           allocation.ID,
		ConsumerUUID: consumerRef.UUID,
		AcquireTime:  claim.AcquireTime,
		ReleaseTime:  claim.ReleaseTime,
	}, nil
}

// upsertConsumer implements the lazy consumer creation spec.md §3
// describes: a consumer record is created the first time it is referenced
// by a claim, and reused (by UUID) on every subsequent one. Consumer
// generation is informational only and is never CAS-updated here
// (SPEC_FULL.md §9's resolution of the corresponding Open Question).
func (e *Executor) upsertConsumer(tx gorp.SqlExecutor, ref core.ConsumerRef) (int64, error) {
	var existing db.Consumer
	err := tx.SelectOne(&existing, `SELECT * FROM consumers WHERE uuid = $1`, ref.UUID.String())
	if err == nil {
		return existing.ID, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	typeID, err := e.Catalog.ConsumerTypeID(ref.TypeCode)
	if err != nil {
		return 0, err
	}

	consumer := &db.Consumer{
		UUID:         ref.UUID.String(),
		TypeID:       typeID,
		OwnerProject: ref.OwnerProject.String(),
		OwnerUser:    ref.OwnerUser.String(),
		Generation:   1,
	}
	err = tx.Insert(consumer)
	if err != nil {
		return 0, err
	}
	return consumer.ID, nil
}
