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

// Package catalog resolves stable string codes (resource type, capability,
// consumer type, provider type) to the compact integer identifiers used by
// the store, and caches them for the process lifetime (spec.md §4.1).
package catalog

import (
	"database/sql"
	"sync"

	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/sqlext"

	"github.com/sapcc/go-placement/internal/core"
	"github.com/sapcc/go-placement/internal/db"
)

// Catalog caches the four code->ID lookup tables. Entries are immutable
// for the process lifetime: each table is loaded in full on first use of
// that code kind and never invalidated (spec.md §4.1). Per SPEC_FULL.md §5,
// a Catalog is constructed once by the CLI driver and threaded through the
// planner and executor as a constructor parameter, never held as a package
// global.
type Catalog struct {
	db db.Interface

	providerTypesOnce sync.Once
	providerTypes     map[string]int64
	providerTypesErr  error

	consumerTypesOnce sync.Once
	consumerTypes     map[string]int64
	consumerTypesErr  error

	resourceTypesOnce sync.Once
	resourceTypes     map[string]int64
	resourceTypesErr  error

	capabilitiesOnce sync.Once
	capabilities     map[string]int64
	capabilitiesErr  error
}

// New returns a Catalog backed by the given database connection. All four
// lookup tables are loaded lazily, on first use of the respective code kind.
func New(dbi db.Interface) *Catalog {
	return &Catalog{db: dbi}
}

func loadCodeMap(dbi db.Interface, table string) (map[string]int64, error) {
	result := make(map[string]int64)
	query := sqlext.SimplifyWhitespace(`SELECT id, code FROM ` + table)
	err := sqlext.ForeachRow(dbi, query, nil, func(rows *sql.Rows) error {
		var (
			id   int64
			code string
		)
		err := rows.Scan(&id, &code)
		if err != nil {
			return err
		}
		result[code] = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ProviderTypeID resolves a provider type code to its internal identifier.
func (c *Catalog) ProviderTypeID(code string) (int64, error) {
	c.providerTypesOnce.Do(func() {
		logg.Debug("catalog: loading provider_types")
		c.providerTypes, c.providerTypesErr = loadCodeMap(c.db, "provider_types")
	})
	return lookup(c.providerTypes, c.providerTypesErr, "provider_type", code)
}

// ConsumerTypeID resolves a consumer type code to its internal identifier.
func (c *Catalog) ConsumerTypeID(code string) (int64, error) {
	c.consumerTypesOnce.Do(func() {
		logg.Debug("catalog: loading consumer_types")
		c.consumerTypes, c.consumerTypesErr = loadCodeMap(c.db, "consumer_types")
	})
	return lookup(c.consumerTypes, c.consumerTypesErr, "consumer_type", code)
}

// ResourceTypeID resolves a resource type code to its internal identifier.
func (c *Catalog) ResourceTypeID(code string) (int64, error) {
	c.resourceTypesOnce.Do(func() {
		logg.Debug("catalog: loading resource_types")
		c.resourceTypes, c.resourceTypesErr = loadCodeMap(c.db, "resource_types")
	})
	return lookup(c.resourceTypes, c.resourceTypesErr, "resource_type", code)
}

// CapabilityID resolves a capability code to its internal identifier.
func (c *Catalog) CapabilityID(code string) (int64, error) {
	c.capabilitiesOnce.Do(func() {
		logg.Debug("catalog: loading capabilities")
		c.capabilities, c.capabilitiesErr = loadCodeMap(c.db, "capabilities")
	})
	return lookup(c.capabilities, c.capabilitiesErr, "capability", code)
}

// CapabilityIDs resolves a set of capability codes in one pass, failing
// with UnknownCode on the first code that cannot be resolved.
func (c *Catalog) CapabilityIDs(codes []string) ([]int64, error) {
	ids := make([]int64, 0, len(codes))
	for _, code := range codes {
		id, err := c.CapabilityID(code)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func lookup(m map[string]int64, loadErr error, kind, code string) (int64, error) {
	if loadErr != nil {
		return 0, loadErr
	}
	id, ok := m[code]
	if !ok {
		return 0, core.UnknownCode{Kind: kind, Code: code}
	}
	return id, nil
}
