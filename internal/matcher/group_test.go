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

package matcher_test

import (
	"testing"

	"github.com/gofrs/uuid"

	"github.com/sapcc/go-placement/internal/core"
	"github.com/sapcc/go-placement/internal/matcher"
	"github.com/sapcc/go-placement/internal/query"
	"github.com/sapcc/go-placement/internal/test"
)

func seedBasicCatalog(t *testing.T, s test.Setup) {
	t.Helper()
	_, err := s.DB.Exec(`INSERT INTO resource_types (code) VALUES ('compute_cores')`)
	test.MustNotFail(t, err)
	_, err = s.DB.Exec(`INSERT INTO capabilities (code) VALUES ('ssd'), ('gpu'), ('spinning_rust')`)
	test.MustNotFail(t, err)
}

func insertTestProvider(t *testing.T, s test.Setup, name string, capabilityCodes []string, coreTotal int64) int64 {
	t.Helper()
	generated, err := uuid.NewV4()
	test.MustNotFail(t, err)
	var providerID int64
	err = s.DB.QueryRow(`INSERT INTO providers (uuid, name) VALUES ($1, $2) RETURNING id`, generated.String(), name).Scan(&providerID)
	test.MustNotFail(t, err)

	resourceTypeID, err := s.Catalog.ResourceTypeID("compute_cores")
	test.MustNotFail(t, err)
	_, err = s.DB.Exec(
		`INSERT INTO inventories (provider_id, resource_type_id, total, min_unit, max_unit, step_size) VALUES ($1, $2, $3, 1, $3, 1)`,
		providerID, resourceTypeID, coreTotal,
	)
	test.MustNotFail(t, err)

	for _, code := range capabilityCodes {
		capabilityID, err := s.Catalog.CapabilityID(code)
		test.MustNotFail(t, err)
		_, err = s.DB.Exec(`INSERT INTO provider_capabilities (provider_id, capability_id) VALUES ($1, $2)`, providerID, capabilityID)
		test.MustNotFail(t, err)
	}
	return providerID
}

func TestMatchGroupRequireCapabilityAndResource(t *testing.T) {
	s := test.NewSetup(t)
	seedBasicCatalog(t, s)

	ssdProvider := insertTestProvider(t, s, "ssd-host", []string{"ssd"}, 64)
	_ = insertTestProvider(t, s, "spinny-host", []string{"spinning_rust"}, 64)

	group := core.ClaimRequestGroup{
		Options: core.ClaimRequestGroupOptions{SingleProvider: true},
		CapabilityConstraints: []core.CapabilityConstraint{
			{Require: []string{"ssd"}},
		},
		ResourceConstraints: []core.ResourceConstraint{
			{ResourceTypeCode: "compute_cores", MinAmount: 4, MaxAmount: 4},
		},
	}

	result, err := matcher.MatchGroup(s.DB, s.Catalog, query.Window{AcquireTime: 0, ReleaseTime: 100}, 0, group)
	test.MustNotFail(t, err)

	if result.Provider.ID != ssdProvider {
		t.Fatalf("expected match to select the ssd-capable provider %d, got %d", ssdProvider, result.Provider.ID)
	}
	if len(result.Items) != 1 || result.Items[0].Used != 4 {
		t.Fatalf("expected one allocation item with used=4, got %+v", result.Items)
	}
}

func TestMatchGroupForbidExcludesProvider(t *testing.T) {
	s := test.NewSetup(t)
	seedBasicCatalog(t, s)

	clean := insertTestProvider(t, s, "clean-host", nil, 64)
	_ = insertTestProvider(t, s, "gpu-host", []string{"gpu"}, 64)

	group := core.ClaimRequestGroup{
		Options: core.ClaimRequestGroupOptions{SingleProvider: true},
		CapabilityConstraints: []core.CapabilityConstraint{
			{Forbid: []string{"gpu"}},
		},
		ResourceConstraints: []core.ResourceConstraint{
			{ResourceTypeCode: "compute_cores", MinAmount: 4, MaxAmount: 4},
		},
	}

	result, err := matcher.MatchGroup(s.DB, s.Catalog, query.Window{AcquireTime: 0, ReleaseTime: 100}, 0, group)
	test.MustNotFail(t, err)
	if result.Provider.ID != clean {
		t.Fatalf("expected the gpu-host to be excluded, got provider %d", result.Provider.ID)
	}
}

func TestMatchGroupUnsatisfiableWhenRequireMatchesNothing(t *testing.T) {
	s := test.NewSetup(t)
	seedBasicCatalog(t, s)
	insertTestProvider(t, s, "plain-host", nil, 64)

	group := core.ClaimRequestGroup{
		Options: core.ClaimRequestGroupOptions{SingleProvider: true},
		CapabilityConstraints: []core.CapabilityConstraint{
			{Require: []string{"gpu"}},
		},
	}

	_, err := matcher.MatchGroup(s.DB, s.Catalog, query.Window{AcquireTime: 0, ReleaseTime: 100}, 2, group)
	unsat, ok := err.(matcher.ErrGroupUnsatisfiable)
	if !ok {
		t.Fatalf("expected matcher.ErrGroupUnsatisfiable, got %T: %v", err, err)
	}
	if unsat.GroupIndex != 2 {
		t.Errorf("expected GroupIndex 2, got %d", unsat.GroupIndex)
	}
}

func TestMatchGroupRejectsUnsupportedOptions(t *testing.T) {
	s := test.NewSetup(t)
	seedBasicCatalog(t, s)

	group := core.ClaimRequestGroup{
		Options: core.ClaimRequestGroupOptions{SingleProvider: false},
	}
	_, err := matcher.MatchGroup(s.DB, s.Catalog, query.Window{AcquireTime: 0, ReleaseTime: 100}, 0, group)
	if _, ok := err.(core.ErrUnsupportedConstraint); !ok {
		t.Fatalf("expected core.ErrUnsupportedConstraint, got %T: %v", err, err)
	}
}
