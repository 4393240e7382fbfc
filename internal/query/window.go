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

package query

// Window is a claim's acquire/release time range, in epoch seconds.
type Window struct {
	AcquireTime int64
	ReleaseTime int64
}

// OverlapPredicate is the SQL fragment selecting allocations whose window
// overlaps the given window, using true interval overlap rather than the
// containment predicate the original prototype used. See SPEC_FULL.md §9's
// resolution of the window-overlap Open Question: an existing allocation
// counts against a new claim iff
//
//	existing.acquire_time < new.release_time AND existing.release_time > new.acquire_time
//
// The two %s verbs are filled in by callers with positional placeholders
// for new.release_time and new.acquire_time respectively, so that this
// fragment can be embedded at any argument offset (internal/query and
// internal/executor both use it).
const OverlapPredicate = `acquire_time < %s AND release_time > %s`
