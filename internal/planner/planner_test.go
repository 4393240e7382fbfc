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

package planner_test

import (
	"testing"

	"github.com/gofrs/uuid"

	"github.com/sapcc/go-placement/internal/core"
	"github.com/sapcc/go-placement/internal/planner"
	"github.com/sapcc/go-placement/internal/test"
)

func seedPlannerCatalog(t *testing.T, s test.Setup) {
	t.Helper()
	_, err := s.DB.Exec(`INSERT INTO resource_types (code) VALUES ('compute_cores'), ('memory_mb')`)
	test.MustNotFail(t, err)
}

func insertPlannerProvider(t *testing.T, s test.Setup, resourceCode string, total int64) int64 {
	t.Helper()
	generated, err := uuid.NewV4()
	test.MustNotFail(t, err)
	var providerID int64
	err = s.DB.QueryRow(`INSERT INTO providers (uuid, name) VALUES ($1, $2) RETURNING id`, generated.String(), resourceCode).Scan(&providerID)
	test.MustNotFail(t, err)

	resourceTypeID, err := s.Catalog.ResourceTypeID(resourceCode)
	test.MustNotFail(t, err)
	_, err = s.DB.Exec(
		`INSERT INTO inventories (provider_id, resource_type_id, total, min_unit, max_unit, step_size) VALUES ($1, $2, $3, 1, $3, 1)`,
		providerID, resourceTypeID, total,
	)
	test.MustNotFail(t, err)
	return providerID
}

func TestPlanAssignsItemsToOriginatingGroups(t *testing.T) {
	s := test.NewSetup(t)
	seedPlannerCatalog(t, s)
	_, err := s.DB.Exec(`INSERT INTO consumer_types (code) VALUES ('vm')`)
	test.MustNotFail(t, err)

	coreProvider := insertPlannerProvider(t, s, "compute_cores", 64)
	memProvider := insertPlannerProvider(t, s, "memory_mb", 65536)

	req := core.ClaimRequest{
		Consumer:    core.ConsumerRef{UUID: uuidMust(t), TypeCode: "vm"},
		AcquireTime: 0,
		ReleaseTime: 100,
		RequestGroups: []core.ClaimRequestGroup{
			{
				Options:             core.ClaimRequestGroupOptions{SingleProvider: true},
				ResourceConstraints: []core.ResourceConstraint{{ResourceTypeCode: "compute_cores", MinAmount: 4, MaxAmount: 4}},
			},
			{
				Options:             core.ClaimRequestGroupOptions{SingleProvider: true},
				ResourceConstraints: []core.ResourceConstraint{{ResourceTypeCode: "memory_mb", MinAmount: 1024, MaxAmount: 1024}},
			},
		},
	}

	claim, err := planner.Plan(s.DB, s.Catalog, req)
	test.MustNotFail(t, err)

	if len(claim.Items) != 2 {
		t.Fatalf("expected 2 allocation items, got %d", len(claim.Items))
	}
	if claim.ItemToGroup[0] != 0 || claim.Items[0].Provider.ID != coreProvider {
		t.Errorf("expected item 0 to belong to group 0 and provider %d, got group %d provider %d", coreProvider, claim.ItemToGroup[0], claim.Items[0].Provider.ID)
	}
	if claim.ItemToGroup[1] != 1 || claim.Items[1].Provider.ID != memProvider {
		t.Errorf("expected item 1 to belong to group 1 and provider %d, got group %d provider %d", memProvider, claim.ItemToGroup[1], claim.Items[1].Provider.ID)
	}
}

func TestPlanReturnsEmptyClaimWhenAGroupIsUnsatisfiable(t *testing.T) {
	s := test.NewSetup(t)
	seedPlannerCatalog(t, s)
	_, err := s.DB.Exec(`INSERT INTO consumer_types (code) VALUES ('vm')`)
	test.MustNotFail(t, err)

	insertPlannerProvider(t, s, "compute_cores", 8)

	req := core.ClaimRequest{
		Consumer:    core.ConsumerRef{UUID: uuidMust(t), TypeCode: "vm"},
		AcquireTime: 0,
		ReleaseTime: 100,
		RequestGroups: []core.ClaimRequestGroup{
			{
				Options:             core.ClaimRequestGroupOptions{SingleProvider: true},
				ResourceConstraints: []core.ResourceConstraint{{ResourceTypeCode: "compute_cores", MinAmount: 1000, MaxAmount: 1000}},
			},
		},
	}

	claim, err := planner.Plan(s.DB, s.Catalog, req)
	test.MustNotFail(t, err)
	if len(claim.Items) != 0 {
		t.Fatalf("expected an empty claim for an infeasible request, got %d items", len(claim.Items))
	}
}

func TestPlanPropagatesUnsupportedConstraintErrors(t *testing.T) {
	s := test.NewSetup(t)
	seedPlannerCatalog(t, s)

	req := core.ClaimRequest{
		Consumer:    core.ConsumerRef{UUID: uuidMust(t), TypeCode: "vm"},
		AcquireTime: 0,
		ReleaseTime: 100,
		RequestGroups: []core.ClaimRequestGroup{
			{Options: core.ClaimRequestGroupOptions{SingleProvider: false}},
		},
	}

	_, err := planner.Plan(s.DB, s.Catalog, req)
	if _, ok := err.(core.ErrUnsupportedConstraint); !ok {
		t.Fatalf("expected core.ErrUnsupportedConstraint, got %T: %v", err, err)
	}
}

func uuidMust(t *testing.T) uuid.UUID {
	t.Helper()
	generated, err := uuid.NewV4()
	test.MustNotFail(t, err)
	return generated
}
