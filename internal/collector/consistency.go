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

// Package collector runs periodic background reconciliation against the
// claim engine's database, independent of any single claim request. This
// complements internal/executor, which only ever touches the rows a
// specific claim needs.
package collector

import (
	"context"
	"database/sql"
	"time"

	gorp "github.com/go-gorp/gorp/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sapcc/go-bits/jobloop"
	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/sqlext"
)

// Collector runs the background jobs in this package against one database
// connection.
type Collector struct {
	DB *gorp.DbMap
}

// NewCollector wires up a Collector against dbMap.
func NewCollector(dbMap *gorp.DbMap) *Collector {
	return &Collector{DB: dbMap}
}

// CheckObjectNamesJob backfills a placeholder `object_names` row (spec.md
// §3's purely cosmetic human-readable name table) for any provider that is
// missing one. Neither internal/fixtures nor a direct SQL insert creates
// that row, so every new provider is picked up by this job.
func (c *Collector) CheckObjectNamesJob(registerer prometheus.Registerer) jobloop.Job {
	return (&jobloop.CronJob{
		Metadata: jobloop.JobMetadata{
			ReadableName: "ensure every provider has an object_names entry",
			CounterOpts: prometheus.CounterOpts{
				Name: "placement_object_names_reconcile_runs_total",
				Help: "Counter for object_names reconciliation runs.",
			},
		},
		Interval:     1 * time.Hour,
		InitialDelay: 10 * time.Second,
		Task: func(ctx context.Context, _ prometheus.Labels) error {
			return c.reconcileProviderObjectNames(ctx)
		},
	}).Setup(registerer)
}

func (c *Collector) reconcileProviderObjectNames(_ context.Context) error {
	var rows []struct {
		UUID string `db:"uuid"`
		Name string `db:"name"`
	}
	_, err := c.DB.Select(&rows, sqlext.SimplifyWhitespace(`
		SELECT p.uuid, p.name
		  FROM providers AS p
		  LEFT JOIN object_names AS n ON n.uuid = p.uuid AND n.object_type_id = (
		      SELECT id FROM object_types WHERE code = 'provider'
		  )
		 WHERE n.uuid IS NULL
	`))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	logg.Info("backfilling object_names for %d provider(s)", len(rows))

	var objectTypeID int64
	err = c.DB.SelectOne(&objectTypeID, `SELECT id FROM object_types WHERE code = 'provider'`)
	if err != nil {
		return err
	}

	tx, err := c.DB.Begin()
	if err != nil {
		return err
	}
	defer sqlext.RollbackUnlessCommitted(tx)

	for _, row := range rows {
		_, err := tx.Exec(
			`INSERT INTO object_names (object_type_id, uuid, name) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			objectTypeID, row.UUID, row.Name,
		)
		if err != nil && err != sql.ErrNoRows {
			return err
		}
	}
	return tx.Commit()
}
