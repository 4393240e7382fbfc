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

package executor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sapcc/go-placement/internal/core"
)

var (
	claimsCommittedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "placement_claims_committed_total",
		Help: "Number of claims successfully committed by the executor.",
	})
	claimsConflictedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "placement_claims_conflicted_total",
		Help: "Number of claims that failed Phase 2 with a generation conflict.",
	})
	claimsInvalidCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "placement_claims_invalid_total",
		Help: "Number of claims that failed Phase 1 re-validation.",
	})
	claimDurationHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "placement_claim_duration_seconds",
		Help:    "Time spent executing a claim's two-phase commit, regardless of outcome.",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(claimsCommittedCounter, claimsConflictedCounter, claimsInvalidCounter, claimDurationHistogram)
}

// observeCommit records the outcome and duration of one Execute() call.
func observeCommit(err error, duration time.Duration) {
	claimDurationHistogram.Observe(duration.Seconds())
	switch {
	case err == nil:
		claimsCommittedCounter.Inc()
	case isGenerationConflict(err):
		claimsConflictedCounter.Inc()
	default:
		claimsInvalidCounter.Inc()
	}
}

func isGenerationConflict(err error) bool {
	_, ok := err.(core.GenerationConflict)
	return ok
}
