/******************************************************************************
*
*  Copyright 2025 SAP SE
*
*  Licensed under the Apache License, Version 2.0 (the "License");
*  you may not use this file except in compliance with the License.
*  You may obtain a copy of the License at
*
*      http://www.apache.org/licenses/LICENSE-2.0
*
*  Unless required by applicable law or agreed to in writing, software
*  distributed under the License is distributed on an "AS IS" BASIS,
*  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
*  See the License for the specific language governing permissions and
*  limitations under the License.
*
******************************************************************************/

// Package test provides the shared test harness for the placement engine's
// package tests: a real Postgres connection via easypg.ConnectForTest,
// wired into a fresh gorp.DbMap and catalog.Catalog per test, with empty
// catalog tables and (optionally) provider fixtures loaded.
package test

import (
	"testing"

	gorp "github.com/go-gorp/gorp/v3"
	"github.com/sapcc/go-bits/easypg"

	"github.com/sapcc/go-placement/internal/catalog"
	"github.com/sapcc/go-placement/internal/db"
	"github.com/sapcc/go-placement/internal/fixtures"
)

// Setup bundles the handles a package test needs.
type Setup struct {
	DB      *gorp.DbMap
	Catalog *catalog.Catalog
}

// SetupOption customizes NewSetup.
type SetupOption func(*setupParams)

type setupParams struct {
	dbOpts     []easypg.TestSetupOption
	fixtureDoc *fixtures.Document
}

// WithFixtureFile loads and seeds the provider fixtures in the given YAML
// file (internal/fixtures document shape) after the baseline schema is in
// place.
func WithFixtureFile(t *testing.T, path string) SetupOption {
	return func(p *setupParams) {
		doc, err := fixtures.LoadDocument(path)
		if err != nil {
			t.Fatal(err.Error())
		}
		p.fixtureDoc = &doc
	}
}

// WithEasypgOptions passes additional easypg.TestSetupOption values through
// to easypg.ConnectForTest (e.g. extra easypg.LoadSQLFile calls).
func WithEasypgOptions(opts ...easypg.TestSetupOption) SetupOption {
	return func(p *setupParams) {
		p.dbOpts = append(p.dbOpts, opts...)
	}
}

// NewSetup connects to the test database, resets it to a clean baseline
// schema (clearing every domain table and resetting identity sequences so
// test expectations can hardcode IDs), and optionally seeds fixtures.
func NewSetup(t *testing.T, opts ...SetupOption) Setup {
	t.Helper()
	params := setupParams{}
	for _, opt := range opts {
		opt(&params)
	}

	allOpts := append([]easypg.TestSetupOption{
		easypg.ClearTables(
			"allocation_items", "allocations", "consumers",
			"provider_group_memberships", "provider_capabilities", "inventories",
			"provider_groups", "providers", "object_names",
			"resource_types", "capabilities", "consumer_types", "provider_types",
		),
		easypg.ResetPrimaryKeys(
			"providers", "provider_groups", "consumers", "allocations", "allocation_items",
		),
	}, params.dbOpts...)

	dbMap := db.InitORM(easypg.ConnectForTest(t, db.Configuration(), allOpts...))
	cat := catalog.New(dbMap)

	if params.fixtureDoc != nil {
		err := fixtures.Seed(dbMap, cat, *params.fixtureDoc)
		if err != nil {
			t.Fatal(err.Error())
		}
	}

	return Setup{DB: dbMap, Catalog: cat}
}

// MustNotFail is a small t.Fatal wrapper for tests that build up several
// preparatory calls before the behavior under test.
func MustNotFail(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err.Error())
	}
}
