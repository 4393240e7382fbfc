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

package core

import (
	"fmt"

	"github.com/gofrs/uuid"
)

// ErrorSet replaces the "error" return value in functions that can return
// multiple errors. It provides convenience functions for easily adding errors
// to the set.
//
// The executor's Phase 1 re-validation uses this to report every violated
// (provider, resource type) pair in one go, instead of making a caller
// replan once per violation.
type ErrorSet []error

// Add adds the given error to the set if it is non-nil.
func (errs *ErrorSet) Add(err error) {
	if err != nil {
		*errs = append(*errs, err)
	}
}

// Addf is a shorthand for errs.Add(fmt.Errorf(...)).
func (errs *ErrorSet) Addf(msg string, args ...any) {
	*errs = append(*errs, fmt.Errorf(msg, args...))
}

// Append adds all errors from the `other` ErrorSet to this one.
func (errs *ErrorSet) Append(other ErrorSet) {
	*errs = append(*errs, other...)
}

// IsEmpty returns true if no errors are in the set.
func (errs ErrorSet) IsEmpty() bool {
	return len(errs) == 0
}

// Error implements the error interface by joining all contained errors'
// messages with semicolons.
func (errs ErrorSet) Error() string {
	switch len(errs) {
	case 0:
		return "no error"
	case 1:
		return errs[0].Error()
	}
	msg := errs[0].Error()
	for _, err := range errs[1:] {
		msg += "; " + err.Error()
	}
	return msg
}

// UnknownCode is returned by the catalog when a code string could not be
// resolved to an internal identifier. Fatal to the current operation.
type UnknownCode struct {
	Kind string // "provider_type", "consumer_type", "resource_type" or "capability"
	Code string
}

func (e UnknownCode) Error() string {
	return fmt.Sprintf("unknown %s code %q", e.Kind, e.Code)
}

// ErrUnsupportedConstraint is returned by the planner when a request group
// uses a feature the matcher accepts in its schema but does not enforce
// (provider-group constraints, distance constraints, single_provider=false,
// non-empty isolate_from). See SPEC_FULL.md §9.
type ErrUnsupportedConstraint struct {
	GroupIndex int
	Feature    string
}

func (e ErrUnsupportedConstraint) Error() string {
	return fmt.Sprintf("request group %d uses unsupported feature %q", e.GroupIndex, e.Feature)
}

// MissingInventory is raised when Phase 1 of the executor detects that the
// inventory row for a (provider, resource type) pair chosen during planning
// has disappeared by the time the claim is executed. The caller may re-plan.
type MissingInventory struct {
	ProviderUUID uuid.UUID
	ResourceCode string
}

func (e MissingInventory) Error() string {
	return fmt.Sprintf(
		"expected provider %s to have inventory for resource type %s, but found no inventory record",
		e.ProviderUUID, e.ResourceCode,
	)
}

// MinUnitViolation is raised when Phase 1 detects that a requested amount
// is below the provider's min_unit for that resource type. Fatal for this
// claim; indicates a caller/request bug.
type MinUnitViolation struct {
	ProviderUUID uuid.UUID
	ResourceCode string
	MinUnit      int64
	Requested    int64
}

func (e MinUnitViolation) Error() string {
	return fmt.Sprintf(
		"resource constraint violated for provider %s and resource %s: min_unit %d is greater than requested amount %d",
		e.ProviderUUID, e.ResourceCode, e.MinUnit, e.Requested,
	)
}

// MaxUnitViolation is raised when Phase 1 detects that a requested amount
// exceeds the provider's max_unit for that resource type.
type MaxUnitViolation struct {
	ProviderUUID uuid.UUID
	ResourceCode string
	MaxUnit      int64
	Requested    int64
}

func (e MaxUnitViolation) Error() string {
	return fmt.Sprintf(
		"resource constraint violated for provider %s and resource %s: max_unit %d is less than requested amount %d",
		e.ProviderUUID, e.ResourceCode, e.MaxUnit, e.Requested,
	)
}

// StepSizeViolation is raised when Phase 1 detects that a requested amount
// is not a multiple of the provider's step_size for that resource type.
type StepSizeViolation struct {
	ProviderUUID uuid.UUID
	ResourceCode string
	StepSize     int64
	Requested    int64
}

func (e StepSizeViolation) Error() string {
	return fmt.Sprintf(
		"resource constraint violated for provider %s and resource %s: requested amount %d is not aligned with step size %d",
		e.ProviderUUID, e.ResourceCode, e.Requested, e.StepSize,
	)
}

// CapacityExceeded is raised when Phase 1 detects that committing the claim
// would push usage of a (provider, resource type) pair past effective
// capacity. The caller may re-plan.
type CapacityExceeded struct {
	ProviderUUID    uuid.UUID
	ResourceCode    string
	Requested       int64
	Total           int64
	TotalUsed       int64
	Reserved        int64
	AllocationRatio float64
}

func (e CapacityExceeded) Error() string {
	return fmt.Sprintf(
		"resource constraint violated for provider %s and resource %s: requested amount %d exceeds capacity "+
			"(total=%d, used=%d, reserved=%d, allocation_ratio=%g)",
		e.ProviderUUID, e.ResourceCode, e.Requested, e.Total, e.TotalUsed, e.Reserved, e.AllocationRatio,
	)
}

// GenerationConflict is raised by Phase 2 when the compare-and-swap update
// on a provider's generation affects zero rows, meaning a concurrent claim
// committed against the same provider between Phase 1 and Phase 2. The
// caller should retry from planning.
type GenerationConflict struct {
	ObjectType string // "provider" (consumer generation is never CAS-updated, see SPEC_FULL.md §9)
	ObjectUUID uuid.UUID
}

func (e GenerationConflict) Error() string {
	return fmt.Sprintf("generation conflict occurred: object_type=%s, object_uuid=%s", e.ObjectType, e.ObjectUUID)
}
