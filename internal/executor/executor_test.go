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

package executor_test

import (
	"sync"
	"testing"

	"github.com/gofrs/uuid"

	"github.com/sapcc/go-placement/internal/core"
	"github.com/sapcc/go-placement/internal/executor"
	"github.com/sapcc/go-placement/internal/test"
)

func seedExecutorCatalog(t *testing.T, s test.Setup) {
	t.Helper()
	_, err := s.DB.Exec(`INSERT INTO resource_types (code) VALUES ('compute_cores')`)
	test.MustNotFail(t, err)
	_, err = s.DB.Exec(`INSERT INTO consumer_types (code) VALUES ('vm')`)
	test.MustNotFail(t, err)
}

func insertExecutorProvider(t *testing.T, s test.Setup, total int64) core.ProviderRef {
	t.Helper()
	generated, err := uuid.NewV4()
	test.MustNotFail(t, err)
	var providerID int64
	err = s.DB.QueryRow(`INSERT INTO providers (uuid, name) VALUES ($1, 'host') RETURNING id`, generated.String()).Scan(&providerID)
	test.MustNotFail(t, err)

	resourceTypeID, err := s.Catalog.ResourceTypeID("compute_cores")
	test.MustNotFail(t, err)
	_, err = s.DB.Exec(
		`INSERT INTO inventories (provider_id, resource_type_id, total, min_unit, max_unit, step_size) VALUES ($1, $2, $3, 1, $3, 1)`,
		providerID, resourceTypeID, total,
	)
	test.MustNotFail(t, err)
	return core.ProviderRef{ID: providerID, UUID: generated}
}

func newExecutorConsumer(t *testing.T) core.ConsumerRef {
	t.Helper()
	generated, err := uuid.NewV4()
	test.MustNotFail(t, err)
	return core.ConsumerRef{UUID: generated, TypeCode: "vm"}
}

func TestExecuteCommitsAllocationAndBumpsGeneration(t *testing.T) {
	s := test.NewSetup(t)
	seedExecutorCatalog(t, s)
	provider := insertExecutorProvider(t, s, 64)

	exec := executor.New(s.DB, s.Catalog)
	consumer := newExecutorConsumer(t)
	claim := core.Claim{
		AcquireTime: 0,
		ReleaseTime: 100,
		Items:       []core.AllocationItem{{Provider: provider, ResourceTypeCode: "compute_cores", Used: 4}},
	}

	allocation, err := exec.Execute(consumer, claim)
	test.MustNotFail(t, err)
	if allocation.ID == 0 {
		t.Error("expected a persisted allocation with a nonzero ID")
	}
	if allocation.ConsumerUUID != consumer.UUID {
		t.Errorf("expected allocation consumer uuid %s, got %s", consumer.UUID, allocation.ConsumerUUID)
	}

	var generation int64
	err = s.DB.SelectOne(&generation, `SELECT generation FROM providers WHERE id = $1`, provider.ID)
	test.MustNotFail(t, err)
	if generation != 2 {
		t.Errorf("expected provider generation to advance from 1 to 2, got %d", generation)
	}

	var used int64
	err = s.DB.SelectOne(&used, `SELECT used FROM allocation_items WHERE allocation_id = $1`, allocation.ID)
	test.MustNotFail(t, err)
	if used != 4 {
		t.Errorf("expected persisted allocation item to record used=4, got %d", used)
	}
}

func TestExecuteRejectsOverCapacityClaimWithErrorSet(t *testing.T) {
	s := test.NewSetup(t)
	seedExecutorCatalog(t, s)
	provider := insertExecutorProvider(t, s, 10)

	exec := executor.New(s.DB, s.Catalog)
	claim := core.Claim{
		AcquireTime: 0,
		ReleaseTime: 100,
		Items:       []core.AllocationItem{{Provider: provider, ResourceTypeCode: "compute_cores", Used: 20}},
	}

	_, err := exec.Execute(newExecutorConsumer(t), claim)
	if err == nil {
		t.Fatal("expected a capacity violation error")
	}
	errs, ok := err.(core.ErrorSet)
	if !ok {
		t.Fatalf("expected core.ErrorSet, got %T: %v", err, err)
	}
	if errs.IsEmpty() {
		t.Fatal("expected a non-empty ErrorSet")
	}
}

// TestExecuteDetectsGenerationConflict drives genuinely concurrent commits
// against the same provider (ample capacity, so no commit is rejected for
// over-allocation) and checks that the per-provider generation CAS in Phase 2
// (executor.go's write) never lets two commits through believing they both
// observed the same generation: every successful commit strictly advances
// the provider's generation, and any commit that loses the race surfaces
// core.GenerationConflict rather than silently overwriting another's update.
func TestExecuteDetectsGenerationConflict(t *testing.T) {
	s := test.NewSetup(t)
	seedExecutorCatalog(t, s)
	provider := insertExecutorProvider(t, s, 1000)

	const attempts = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, conflicts, other := 0, 0, 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			generated, uuidErr := uuid.NewV4()
			if uuidErr != nil {
				mu.Lock()
				other++
				mu.Unlock()
				return
			}
			exec := executor.New(s.DB, s.Catalog)
			claim := core.Claim{
				AcquireTime: 0,
				ReleaseTime: 100,
				Items:       []core.AllocationItem{{Provider: provider, ResourceTypeCode: "compute_cores", Used: 1}},
			}
			_, err := exec.Execute(core.ConsumerRef{UUID: generated, TypeCode: "vm"}, claim)

			mu.Lock()
			defer mu.Unlock()
			switch err.(type) {
			case nil:
				successes++
			case core.GenerationConflict:
				conflicts++
			default:
				other++
			}
		}()
	}
	wg.Wait()

	if other != 0 {
		t.Fatalf("expected only successes or core.GenerationConflict, got %d other error(s)", other)
	}
	if successes == 0 {
		t.Fatal("expected at least one commit to succeed")
	}
	if successes+conflicts != attempts {
		t.Fatalf("expected %d total outcomes, got %d successes + %d conflicts", attempts, successes, conflicts)
	}

	var generation int64
	err := s.DB.SelectOne(&generation, `SELECT generation FROM providers WHERE id = $1`, provider.ID)
	test.MustNotFail(t, err)
	if generation != int64(1+successes) {
		t.Errorf("expected provider generation to have advanced by exactly the number of successful commits (%d), got generation %d", successes, generation)
	}
}
