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

package db

import (
	"strings"

	gorp "github.com/go-gorp/gorp/v3"
)

// ProviderType contains a record from the `provider_types` catalog table.
type ProviderType struct {
	ID   int64  `db:"id"`
	Code string `db:"code"`
}

// ConsumerType contains a record from the `consumer_types` catalog table.
type ConsumerType struct {
	ID   int64  `db:"id"`
	Code string `db:"code"`
}

// ResourceType contains a record from the `resource_types` catalog table.
type ResourceType struct {
	ID   int64  `db:"id"`
	Code string `db:"code"`
}

// Capability contains a record from the `capabilities` catalog table.
type Capability struct {
	ID   int64  `db:"id"`
	Code string `db:"code"`
}

// Provider contains a record from the `providers` table.
type Provider struct {
	ID         int64  `db:"id"`
	UUID       string `db:"uuid"`
	Name       string `db:"name"`
	Partition  string `db:"partition"`
	Generation int64  `db:"generation"`
}

// ProviderGroup contains a record from the `provider_groups` table. Kind()
// infers the group's topology level from its dash-separated name, following the
// convention used by the original prototype's ProviderGroup.name_parts
// (site / site-rowN / site-rowN-rackM); it is informational only, since
// provider-group constraints are not enforced by the matcher (SPEC_FULL.md §9).
type ProviderGroup struct {
	ID   int64  `db:"id"`
	UUID string `db:"uuid"`
	Name string `db:"name"`
}

// Kind returns "site", "row" or "rack" depending on how many dash-separated
// parts the group's name has.
func (g ProviderGroup) Kind() string {
	switch strings.Count(g.Name, "-") {
	case 0:
		return "site"
	case 1:
		return "row"
	default:
		return "rack"
	}
}

// ProviderGroupMembership contains a record from the
// `provider_group_memberships` many-to-many join table.
type ProviderGroupMembership struct {
	ProviderID      int64 `db:"provider_id"`
	ProviderGroupID int64 `db:"provider_group_id"`
}

// ProviderCapability contains a record from the `provider_capabilities`
// many-to-many join table.
type ProviderCapability struct {
	ProviderID   int64 `db:"provider_id"`
	CapabilityID int64 `db:"capability_id"`
}

// Inventory contains a record from the `inventories` table: the
// per-(provider, resource type) capacity record described in spec.md §3.
type Inventory struct {
	ProviderID      int64   `db:"provider_id"`
	ResourceTypeID  int64   `db:"resource_type_id"`
	Total           int64   `db:"total"`
	Reserved        int64   `db:"reserved"`
	MinUnit         int64   `db:"min_unit"`
	MaxUnit         int64   `db:"max_unit"`
	StepSize        int64   `db:"step_size"`
	AllocationRatio float64 `db:"allocation_ratio"`
}

// EffectiveCapacity returns (total - reserved) * allocation_ratio, the
// upper bound used in capacity checks (spec.md Glossary).
func (i Inventory) EffectiveCapacity() float64 {
	return float64(i.Total-i.Reserved) * i.AllocationRatio
}

// Consumer contains a record from the `consumers` table. Consumers are
// created lazily by the executor on first claim (spec.md §3 Lifecycle).
type Consumer struct {
	ID           int64  `db:"id"`
	UUID         string `db:"uuid"`
	TypeID       int64  `db:"type_id"`
	OwnerProject string `db:"owner_project_uuid"`
	OwnerUser    string `db:"owner_user_uuid"`
	Generation   int64  `db:"generation"`
}

// Allocation contains a record from the `allocations` table: the header for
// a group of AllocationItems sharing one acquire/release window.
type Allocation struct {
	ID          int64 `db:"id"`
	ConsumerID  int64 `db:"consumer_id"`
	AcquireTime int64 `db:"acquire_time"`
	ReleaseTime int64 `db:"release_time"`
}

// AllocationItem contains a record from the `allocation_items` table: a
// single resource commitment within an Allocation.
type AllocationItem struct {
	ID             int64 `db:"id"`
	AllocationID   int64 `db:"allocation_id"`
	ProviderID     int64 `db:"provider_id"`
	ResourceTypeID int64 `db:"resource_type_id"`
	Used           int64 `db:"used"`
}

// ObjectType contains a record from the `object_types` table, used by
// `object_names` to record what kind of object a human-readable name
// belongs to.
type ObjectType struct {
	ID   int64  `db:"id"`
	Code string `db:"code"`
}

// ObjectName contains a record from the `object_names` table: a
// best-effort human-readable name for a provider, consumer or other
// catalog object, looked up by (object_type, uuid). Purely cosmetic; see
// SPEC_FULL.md §3.
type ObjectName struct {
	ObjectTypeID int64  `db:"object_type_id"`
	UUID         string `db:"uuid"`
	Name         string `db:"name"`
}

// initGorp registers all table mappings on the given DbMap. Single-column
// integer primary keys are marked as such so that gorp.Insert() can
// populate them from RETURNING; tables with composite primary keys are
// registered without autoincrement, so gorp.Insert() writes them as given
// (internal/fixtures inserts provider_capabilities and inventories this way).
func initGorp(dbMap *gorp.DbMap) {
	dbMap.AddTableWithName(ProviderType{}, "provider_types").SetKeys(true, "ID")
	dbMap.AddTableWithName(ConsumerType{}, "consumer_types").SetKeys(true, "ID")
	dbMap.AddTableWithName(ResourceType{}, "resource_types").SetKeys(true, "ID")
	dbMap.AddTableWithName(Capability{}, "capabilities").SetKeys(true, "ID")
	dbMap.AddTableWithName(Provider{}, "providers").SetKeys(true, "ID")
	dbMap.AddTableWithName(ProviderGroup{}, "provider_groups").SetKeys(true, "ID")
	dbMap.AddTableWithName(ProviderGroupMembership{}, "provider_group_memberships").SetKeys(false, "ProviderID", "ProviderGroupID")
	dbMap.AddTableWithName(ProviderCapability{}, "provider_capabilities").SetKeys(false, "ProviderID", "CapabilityID")
	dbMap.AddTableWithName(Inventory{}, "inventories").SetKeys(false, "ProviderID", "ResourceTypeID")
	dbMap.AddTableWithName(Consumer{}, "consumers").SetKeys(true, "ID")
	dbMap.AddTableWithName(Allocation{}, "allocations").SetKeys(true, "ID")
	dbMap.AddTableWithName(AllocationItem{}, "allocation_items").SetKeys(true, "ID")
	dbMap.AddTableWithName(ObjectType{}, "object_types").SetKeys(true, "ID")
	dbMap.AddTableWithName(ObjectName{}, "object_names").SetKeys(false, "ObjectTypeID", "UUID")
}
