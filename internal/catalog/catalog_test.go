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

package catalog_test

import (
	"testing"

	"github.com/sapcc/go-bits/assert"

	"github.com/sapcc/go-placement/internal/catalog"
	"github.com/sapcc/go-placement/internal/core"
	"github.com/sapcc/go-placement/internal/test"
)

func TestResourceTypeIDResolvesAndCaches(t *testing.T) {
	s := test.NewSetup(t)
	_, err := s.DB.Exec(`INSERT INTO resource_types (code) VALUES ('compute_cores')`)
	test.MustNotFail(t, err)

	id1, err := s.Catalog.ResourceTypeID("compute_cores")
	test.MustNotFail(t, err)
	id2, err := s.Catalog.ResourceTypeID("compute_cores")
	test.MustNotFail(t, err)
	assert.DeepEqual(t, "resource type id is stable across calls", id1, id2)
}

func TestUnknownCodeIsReported(t *testing.T) {
	s := test.NewSetup(t)
	_, err := s.Catalog.ResourceTypeID("does_not_exist")
	if err == nil {
		t.Fatal("expected an error for an unresolvable resource type code")
	}
	unknown, ok := err.(core.UnknownCode)
	if !ok {
		t.Fatalf("expected core.UnknownCode, got %T: %s", err, err.Error())
	}
	assert.DeepEqual(t, "unknown code kind", unknown.Kind, "resource_type")
}

func TestCapabilityIDsStopsAtFirstUnknownCode(t *testing.T) {
	s := test.NewSetup(t)
	_, err := s.DB.Exec(`INSERT INTO capabilities (code) VALUES ('gpu')`)
	test.MustNotFail(t, err)

	_, err = s.Catalog.CapabilityIDs([]string{"gpu", "does_not_exist"})
	if err == nil {
		t.Fatal("expected an error resolving an unknown capability code")
	}
	if _, ok := err.(core.UnknownCode); !ok {
		t.Fatalf("expected core.UnknownCode, got %T", err)
	}
}

func catalogIDFor(t *testing.T, cat *catalog.Catalog, code string) int64 {
	t.Helper()
	id, err := cat.CapabilityID(code)
	test.MustNotFail(t, err)
	return id
}
