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

var sqlMigrations = map[string]string{
	"001_initial_schema.down.sql": `
		DROP TABLE object_names;
		DROP TABLE object_types;
		DROP TABLE allocation_items;
		DROP TABLE allocations;
		DROP TABLE consumers;
		DROP TABLE consumer_types;
		DROP TABLE inventories;
		DROP TABLE provider_capabilities;
		DROP TABLE capabilities;
		DROP TABLE provider_group_memberships;
		DROP TABLE provider_groups;
		DROP TABLE providers;
		DROP TABLE provider_types;
		DROP TABLE resource_types;
	`,
	"001_initial_schema.up.sql": `
		---------- catalog tables (internal/catalog)

		CREATE TABLE resource_types (
			id    BIGSERIAL  NOT NULL PRIMARY KEY,
			code  TEXT       NOT NULL UNIQUE
		);

		CREATE TABLE provider_types (
			id    BIGSERIAL  NOT NULL PRIMARY KEY,
			code  TEXT       NOT NULL UNIQUE
		);

		CREATE TABLE capabilities (
			id    BIGSERIAL  NOT NULL PRIMARY KEY,
			code  TEXT       NOT NULL UNIQUE
		);

		CREATE TABLE consumer_types (
			id    BIGSERIAL  NOT NULL PRIMARY KEY,
			code  TEXT       NOT NULL UNIQUE
		);

		---------- providers and their topology

		CREATE TABLE providers (
			id          BIGSERIAL  NOT NULL PRIMARY KEY,
			uuid        TEXT       NOT NULL UNIQUE,
			name        TEXT       NOT NULL DEFAULT '',
			partition   TEXT       NOT NULL DEFAULT '',
			generation  BIGINT     NOT NULL DEFAULT 1
		);

		CREATE TABLE provider_groups (
			id    BIGSERIAL  NOT NULL PRIMARY KEY,
			uuid  TEXT       NOT NULL UNIQUE,
			name  TEXT       NOT NULL
		);

		CREATE TABLE provider_group_memberships (
			provider_id        BIGINT  NOT NULL REFERENCES providers ON DELETE CASCADE,
			provider_group_id  BIGINT  NOT NULL REFERENCES provider_groups ON DELETE CASCADE,
			PRIMARY KEY (provider_id, provider_group_id)
		);

		CREATE TABLE provider_capabilities (
			provider_id    BIGINT  NOT NULL REFERENCES providers ON DELETE CASCADE,
			capability_id  BIGINT  NOT NULL REFERENCES capabilities ON DELETE CASCADE,
			PRIMARY KEY (provider_id, capability_id)
		);

		---------- inventory

		CREATE TABLE inventories (
			provider_id       BIGINT   NOT NULL REFERENCES providers ON DELETE CASCADE,
			resource_type_id  BIGINT   NOT NULL REFERENCES resource_types ON DELETE CASCADE,
			total             BIGINT   NOT NULL,
			reserved          BIGINT   NOT NULL DEFAULT 0,
			min_unit          BIGINT   NOT NULL DEFAULT 1,
			max_unit          BIGINT   NOT NULL,
			step_size         BIGINT   NOT NULL DEFAULT 1,
			allocation_ratio  REAL     NOT NULL DEFAULT 1.0,
			PRIMARY KEY (provider_id, resource_type_id)
		);

		---------- consumers and allocations

		CREATE TABLE consumers (
			id                  BIGSERIAL  NOT NULL PRIMARY KEY,
			uuid                TEXT       NOT NULL UNIQUE,
			type_id             BIGINT     NOT NULL REFERENCES consumer_types,
			owner_project_uuid  TEXT       NOT NULL DEFAULT '',
			owner_user_uuid     TEXT       NOT NULL DEFAULT '',
			generation          BIGINT     NOT NULL DEFAULT 1
		);

		CREATE TABLE allocations (
			id            BIGSERIAL  NOT NULL PRIMARY KEY,
			consumer_id   BIGINT     NOT NULL REFERENCES consumers ON DELETE CASCADE,
			acquire_time  BIGINT     NOT NULL,
			release_time  BIGINT     NOT NULL
		);

		CREATE INDEX allocations_window_idx ON allocations (acquire_time, release_time);

		CREATE TABLE allocation_items (
			id                BIGSERIAL  NOT NULL PRIMARY KEY,
			allocation_id     BIGINT     NOT NULL REFERENCES allocations ON DELETE CASCADE,
			provider_id       BIGINT     NOT NULL REFERENCES providers,
			resource_type_id  BIGINT     NOT NULL REFERENCES resource_types,
			used              BIGINT     NOT NULL
		);

		CREATE INDEX allocation_items_provider_resource_idx ON allocation_items (provider_id, resource_type_id);

		---------- human-readable naming (cosmetic only, see SPEC_FULL.md §3)

		CREATE TABLE object_types (
			id    BIGSERIAL  NOT NULL PRIMARY KEY,
			code  TEXT       NOT NULL UNIQUE
		);

		CREATE TABLE object_names (
			object_type_id  BIGINT  NOT NULL REFERENCES object_types,
			uuid            TEXT    NOT NULL,
			name            TEXT    NOT NULL,
			PRIMARY KEY (object_type_id, uuid)
		);

		INSERT INTO object_types (code) VALUES ('provider'), ('consumer'), ('provider_group');
	`,
}
