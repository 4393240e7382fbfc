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

package query_test

import (
	"testing"

	"github.com/gofrs/uuid"

	"github.com/sapcc/go-placement/internal/catalog"
	"github.com/sapcc/go-placement/internal/query"
	"github.com/sapcc/go-placement/internal/test"
)

func seedCatalogCodes(t *testing.T, s test.Setup) {
	t.Helper()
	_, err := s.DB.Exec(`INSERT INTO resource_types (code) VALUES ('compute_cores')`)
	test.MustNotFail(t, err)
	_, err = s.DB.Exec(`INSERT INTO capabilities (code) VALUES ('ssd'), ('gpu')`)
	test.MustNotFail(t, err)
}

func insertProvider(t *testing.T, s test.Setup, name string) (providerID int64, providerUUID uuid.UUID) {
	t.Helper()
	generated, err := uuid.NewV4()
	test.MustNotFail(t, err)
	err = s.DB.QueryRow(
		`INSERT INTO providers (uuid, name) VALUES ($1, $2) RETURNING id`,
		generated.String(), name,
	).Scan(&providerID)
	test.MustNotFail(t, err)
	return providerID, generated
}

func insertInventory(t *testing.T, s test.Setup, providerID int64, resourceCode string, total, minUnit, maxUnit, stepSize int64) {
	t.Helper()
	resourceTypeID, err := s.Catalog.ResourceTypeID(resourceCode)
	test.MustNotFail(t, err)
	_, err = s.DB.Exec(
		`INSERT INTO inventories (provider_id, resource_type_id, total, min_unit, max_unit, step_size) VALUES ($1, $2, $3, $4, $5, $6)`,
		providerID, resourceTypeID, total, minUnit, maxUnit, stepSize,
	)
	test.MustNotFail(t, err)
}

func TestProvidersWithCapacityRespectsCapacityAndUnitDiscipline(t *testing.T) {
	s := test.NewSetup(t)
	seedCatalogCodes(t, s)

	ample, ampleUUID := insertProvider(t, s, "ample")
	insertInventory(t, s, ample, "compute_cores", 100, 1, 100, 1)

	tight, _ := insertProvider(t, s, "tight")
	insertInventory(t, s, tight, "compute_cores", 10, 1, 10, 1)

	steppy, _ := insertProvider(t, s, "steppy")
	insertInventory(t, s, steppy, "compute_cores", 100, 1, 100, 3)

	cq := query.CapacityQuery{Catalog: s.Catalog}
	result, err := cq.ProvidersWithCapacity(
		s.DB, query.Window{AcquireTime: 1000, ReleaseTime: 2000},
		"compute_cores", 20, nil, nil, query.Unlimited,
	)
	test.MustNotFail(t, err)

	if _, ok := result[ample]; !ok {
		t.Error("expected 'ample' provider to have capacity for 20 cores")
	}
	if _, ok := result[tight]; ok {
		t.Error("did not expect 'tight' provider to have capacity for 20 cores")
	}
	if _, ok := result[steppy]; ok {
		t.Error("did not expect 'steppy' provider to match: 20 is not a multiple of step_size 3")
	}
	if result[ample] != ampleUUID {
		t.Errorf("expected returned uuid %s to match inserted uuid %s", result[ample], ampleUUID)
	}
}

func TestProvidersWithCapacityExcludesOverlappingUsage(t *testing.T) {
	s := test.NewSetup(t)
	seedCatalogCodes(t, s)

	providerID, _ := insertProvider(t, s, "shared")
	insertInventory(t, s, providerID, "compute_cores", 100, 1, 100, 1)

	resourceTypeID, err := s.Catalog.ResourceTypeID("compute_cores")
	test.MustNotFail(t, err)

	_, err = s.DB.Exec(`INSERT INTO consumer_types (code) VALUES ('vm')`)
	test.MustNotFail(t, err)
	var consumerTypeID int64
	err = s.DB.SelectOne(&consumerTypeID, `SELECT id FROM consumer_types WHERE code = 'vm'`)
	test.MustNotFail(t, err)
	var consumerID int64
	err = s.DB.QueryRow(
		`INSERT INTO consumers (uuid, type_id) VALUES ($1, $2) RETURNING id`,
		mustNewUUID(t), consumerTypeID,
	).Scan(&consumerID)
	test.MustNotFail(t, err)

	var allocationID int64
	err = s.DB.QueryRow(
		`INSERT INTO allocations (consumer_id, acquire_time, release_time) VALUES ($1, 1000, 2000) RETURNING id`,
		consumerID,
	).Scan(&allocationID)
	test.MustNotFail(t, err)
	_, err = s.DB.Exec(
		`INSERT INTO allocation_items (allocation_id, provider_id, resource_type_id, used) VALUES ($1, $2, $3, 90)`,
		allocationID, providerID, resourceTypeID,
	)
	test.MustNotFail(t, err)

	cq := query.CapacityQuery{Catalog: s.Catalog}

	overlapping, err := cq.ProvidersWithCapacity(s.DB, query.Window{AcquireTime: 1500, ReleaseTime: 2500}, "compute_cores", 20, nil, nil, query.Unlimited)
	test.MustNotFail(t, err)
	if _, ok := overlapping[providerID]; ok {
		t.Error("expected provider to lack capacity: existing usage (90) + requested (20) exceeds total (100) within an overlapping window")
	}

	nonOverlapping, err := cq.ProvidersWithCapacity(s.DB, query.Window{AcquireTime: 2000, ReleaseTime: 3000}, "compute_cores", 20, nil, nil, query.Unlimited)
	test.MustNotFail(t, err)
	if _, ok := nonOverlapping[providerID]; !ok {
		t.Error("expected provider to have capacity once the existing allocation's window no longer overlaps")
	}
}

func mustNewUUID(t *testing.T) string {
	t.Helper()
	generated, err := uuid.NewV4()
	test.MustNotFail(t, err)
	return generated.String()
}
