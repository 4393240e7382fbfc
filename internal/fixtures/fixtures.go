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

// Package fixtures loads provider profile documents (spec.md §6: "Consumed
// by fixture loading only") and seeds them into the database. This is
// explicitly out of the claim engine's own scope (spec.md §1 Non-goals:
// "fixture/test data generation is a testing concern"), but a claim engine
// with nothing to place against is useless for the CLI driver or the test
// suite, so both lean on this package rather than hand-writing INSERTs.
package fixtures

import (
	"os"

	gorp "github.com/go-gorp/gorp/v3"
	"github.com/gofrs/uuid"
	"gopkg.in/yaml.v2"

	"github.com/sapcc/go-placement/internal/catalog"
	internaldb "github.com/sapcc/go-placement/internal/db"
)

// InventoryDoc mirrors one resource_code entry of a provider profile's
// inventory map (spec.md §6), with the documented defaults applied by
// resolve().
type InventoryDoc struct {
	Total           int64    `yaml:"total"`
	Reserved        *int64   `yaml:"reserved,omitempty"`
	MinUnit         *int64   `yaml:"min_unit,omitempty"`
	MaxUnit         *int64   `yaml:"max_unit,omitempty"`
	StepSize        *int64   `yaml:"step_size,omitempty"`
	AllocationRatio *float64 `yaml:"allocation_ratio,omitempty"`
}

func (d InventoryDoc) resolve() (reserved, minUnit, maxUnit, stepSize int64, ratio float64) {
	reserved = 0
	if d.Reserved != nil {
		reserved = *d.Reserved
	}
	minUnit = 1
	if d.MinUnit != nil {
		minUnit = *d.MinUnit
	}
	maxUnit = d.Total
	if d.MaxUnit != nil {
		maxUnit = *d.MaxUnit
	}
	stepSize = 1
	if d.StepSize != nil {
		stepSize = *d.StepSize
	}
	ratio = 1.0
	if d.AllocationRatio != nil {
		ratio = *d.AllocationRatio
	}
	return
}

// ProviderProfile mirrors the provider profile document from spec.md §6:
// `{ capabilities: [code], inventory: { resource_code: {...} } }`, plus the
// identity fields a fixture needs to create the underlying Provider row.
type ProviderProfile struct {
	UUID         string                  `yaml:"uuid"`
	Name         string                  `yaml:"name"`
	TypeCode     string                  `yaml:"type_code"`
	Partition    string                  `yaml:"partition"`
	Capabilities []string                `yaml:"capabilities"`
	Inventory    map[string]InventoryDoc `yaml:"inventory"`
}

// Document is the top-level fixture file shape: a flat list of provider
// profiles, loaded by LoadDocument and seeded by Seed.
type Document struct {
	Providers []ProviderProfile `yaml:"providers"`
}

// LoadDocument reads a Document from the YAML file at path.
func LoadDocument(path string) (Document, error) {
	var doc Document
	buf, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	err = yaml.Unmarshal(buf, &doc)
	return doc, err
}

// Seed inserts every provider profile in doc into the database, resolving
// catalog codes through cat and applying the inventory defaults spec.md §6
// documents. It assumes the resource type and capability codes referenced
// already exist in the respective catalog tables: neither the schema
// migration nor Seed creates them, and an unknown code fails with
// core.UnknownCode.
func Seed(dbMap *gorp.DbMap, cat *catalog.Catalog, doc Document) error {
	for _, p := range doc.Providers {
		err := seedProvider(dbMap, cat, p)
		if err != nil {
			return err
		}
	}
	return nil
}

func seedProvider(dbMap *gorp.DbMap, cat *catalog.Catalog, p ProviderProfile) error {
	providerUUID := p.UUID
	if providerUUID == "" {
		generated, err := uuid.NewV4()
		if err != nil {
			return err
		}
		providerUUID = generated.String()
	}

	row := &internaldb.Provider{
		UUID:       providerUUID,
		Name:       p.Name,
		Partition:  p.Partition,
		Generation: 1,
	}
	err := dbMap.Insert(row)
	if err != nil {
		return err
	}

	for _, code := range p.Capabilities {
		capabilityID, err := cat.CapabilityID(code)
		if err != nil {
			return err
		}
		err = dbMap.Insert(&internaldb.ProviderCapability{ProviderID: row.ID, CapabilityID: capabilityID})
		if err != nil {
			return err
		}
	}

	for resourceCode, inv := range p.Inventory {
		resourceTypeID, err := cat.ResourceTypeID(resourceCode)
		if err != nil {
			return err
		}
		reserved, minUnit, maxUnit, stepSize, ratio := inv.resolve()
		err = dbMap.Insert(&internaldb.Inventory{
			ProviderID:      row.ID,
			ResourceTypeID:  resourceTypeID,
			Total:           inv.Total,
			Reserved:        reserved,
			MinUnit:         minUnit,
			MaxUnit:         maxUnit,
			StepSize:        stepSize,
			AllocationRatio: ratio,
		})
		if err != nil {
			return err
		}
	}

	return nil
}
