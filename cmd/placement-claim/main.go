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

// placement-claim is the CLI driver for the claim engine: it plans and
// executes one claim request document against the configured database, or
// seeds a database with provider fixtures for local testing.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	gorp "github.com/go-gorp/gorp/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/osext"
	"gopkg.in/yaml.v2"

	"github.com/sapcc/go-placement/internal/catalog"
	"github.com/sapcc/go-placement/internal/collector"
	"github.com/sapcc/go-placement/internal/config"
	"github.com/sapcc/go-placement/internal/db"
	"github.com/sapcc/go-placement/internal/executor"
	"github.com/sapcc/go-placement/internal/fixtures"
	"github.com/sapcc/go-placement/internal/planner"
)

func main() {
	if len(os.Args) < 2 {
		printUsageAndExit()
	}

	dbConn, err := db.Init()
	if err != nil {
		logg.Fatal("cannot connect to database: %s", err.Error())
	}
	dbMap := db.InitORM(dbConn)
	cat := catalog.New(dbMap)

	switch os.Args[1] {
	case "seed":
		runSeed(dbMap, cat, os.Args[2:])
	case "claim":
		runClaim(dbMap, cat, os.Args[2:])
	case "serve":
		runServe(dbMap)
	default:
		printUsageAndExit()
	}
}

func printUsageAndExit() {
	fmt.Fprintf(os.Stderr, "Usage: %s seed <fixture-file.yaml>\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "       %s claim <claim-request.yaml>\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "       %s serve\n", os.Args[0])
	os.Exit(1)
}

// runServe starts the background reconciliation jobs (internal/collector)
// and exposes their metrics, plus the executor's commit metrics, on the
// Prometheus endpoint, following the same pattern as the teacher's
// cmd/limes-collect (promhttp.Handler + http.ListenAndServe).
func runServe(dbMap *gorp.DbMap) {
	registry := prometheus.DefaultRegisterer
	col := collector.NewCollector(dbMap)
	job := col.CheckObjectNamesJob(registry)
	go func() {
		err := job.Run(context.Background())
		if err != nil {
			logg.Error("object_names reconciliation job stopped: %s", err.Error())
		}
	}()

	http.Handle("/metrics", promhttp.Handler())
	listenAddress := osext.GetenvOrDefault("PLACEMENT_METRICS_LISTEN_ADDRESS", ":8080")
	logg.Fatal(http.ListenAndServe(listenAddress, nil).Error())
}

func runSeed(dbMap *gorp.DbMap, cat *catalog.Catalog, args []string) {
	if len(args) != 1 {
		printUsageAndExit()
	}
	doc, err := fixtures.LoadDocument(args[0])
	if err != nil {
		logg.Fatal("cannot load fixture file: %s", err.Error())
	}
	err = fixtures.Seed(dbMap, cat, doc)
	if err != nil {
		logg.Fatal("cannot seed fixtures: %s", err.Error())
	}
	logg.Info("seeded %d provider(s)", len(doc.Providers))
}

func runClaim(dbMap *gorp.DbMap, cat *catalog.Catalog, args []string) {
	if len(args) != 1 {
		printUsageAndExit()
	}
	doc, err := config.LoadClaimRequestDocument(args[0])
	if err != nil {
		logg.Fatal("cannot load claim request: %s", err.Error())
	}
	req, err := doc.ToClaimRequest()
	if err != nil {
		logg.Fatal("cannot parse claim request: %s", err.Error())
	}

	claim, err := planner.Plan(dbMap, cat, req)
	if err != nil {
		logg.Fatal("planning failed: %s", err.Error())
	}
	if len(claim.Items) == 0 {
		logg.Fatal("claim request is infeasible: no request group could be matched")
	}

	exec := executor.New(dbMap, cat)
	allocation, err := exec.Execute(req.Consumer, claim)
	if err != nil {
		logg.Fatal("claim execution failed: %s", err.Error())
	}

	out, err := yaml.Marshal(allocation)
	if err != nil {
		logg.Fatal("cannot render allocation: %s", err.Error())
	}
	fmt.Print(string(out))
}
