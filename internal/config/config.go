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

// Package config loads the YAML documents the placement engine's
// out-of-scope collaborators hand it: a claim request to plan and execute,
// and a deployment config (spec.md §6, SPEC_FULL.md §6). Provider profiles
// are loaded by internal/fixtures, not here.
package config

import (
	"fmt"
	"os"

	"github.com/gofrs/uuid"
	"gopkg.in/yaml.v2"

	"github.com/sapcc/go-placement/internal/core"
)

// DeploymentConfig carries the engine's own runtime settings. Per spec.md
// §6, the engine's required environment surface is just DB_USER/DB_PASS;
// the host/port/name fields here mirror the ones internal/db.Init reads
// from the environment. internal/db.Init does not consult a
// DeploymentConfig: it takes its connection settings from the environment
// only.
type DeploymentConfig struct {
	Database struct {
		Hostname string `yaml:"hostname"`
		Port     string `yaml:"port"`
		Name     string `yaml:"name"`
	} `yaml:"database"`
}

// LoadDeploymentConfig reads a DeploymentConfig from the YAML file at path.
func LoadDeploymentConfig(path string) (DeploymentConfig, error) {
	var cfg DeploymentConfig
	buf, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(buf, &cfg)
	return cfg, err
}

// ResourceConstraintDocument mirrors one entry of a request group's
// resource_constraints list (spec.md §6).
type ResourceConstraintDocument struct {
	ResourceTypeCode     string                  `yaml:"resource_type_code" json:"resource_type_code"`
	MinAmount            *int64                  `yaml:"min_amount,omitempty" json:"min_amount,omitempty"`
	MaxAmount            *int64                  `yaml:"max_amount,omitempty" json:"max_amount,omitempty"`
	CapabilityConstraint *CapabilityConstraintDoc `yaml:"capability_constraint,omitempty" json:"capability_constraint,omitempty"`
}

// CapabilityConstraintDoc mirrors a capability_constraint object (spec.md §6).
type CapabilityConstraintDoc struct {
	Require []string `yaml:"require,omitempty" json:"require,omitempty"`
	Any     []string `yaml:"any,omitempty" json:"any,omitempty"`
	Forbid  []string `yaml:"forbid,omitempty" json:"forbid,omitempty"`
}

func (d *CapabilityConstraintDoc) toCore() *core.CapabilityConstraint {
	if d == nil {
		return nil
	}
	return &core.CapabilityConstraint{Require: d.Require, Any: d.Any, Forbid: d.Forbid}
}

// DistanceConstraintDoc mirrors a distance_constraints entry (spec.md §6).
// Parsed but always rejected by the planner (SPEC_FULL.md §9).
type DistanceConstraintDoc struct {
	ProviderGroupUUID string `yaml:"provider_group_uuid" json:"provider_group_uuid"`
	Minimum           *int   `yaml:"minimum,omitempty" json:"minimum,omitempty"`
	Maximum           *int   `yaml:"maximum,omitempty" json:"maximum,omitempty"`
}

// ProviderGroupConstraintDoc mirrors a provider_group_constraints entry
// (spec.md §6). Parsed but always rejected by the planner (SPEC_FULL.md §9).
type ProviderGroupConstraintDoc struct {
	RequireGroups []string `yaml:"require_groups,omitempty" json:"require_groups,omitempty"`
	AnyGroups     []string `yaml:"any_groups,omitempty" json:"any_groups,omitempty"`
	ForbidGroups  []string `yaml:"forbid_groups,omitempty" json:"forbid_groups,omitempty"`
}

// RequestGroupOptionsDoc mirrors a request group's options object.
type RequestGroupOptionsDoc struct {
	SingleProvider bool  `yaml:"single_provider" json:"single_provider"`
	IsolateFrom    []int `yaml:"isolate_from,omitempty" json:"isolate_from,omitempty"`
}

// RequestGroupDoc mirrors one request_groups entry (spec.md §6).
type RequestGroupDoc struct {
	Options                  RequestGroupOptionsDoc       `yaml:"options" json:"options"`
	ResourceConstraints      []ResourceConstraintDocument `yaml:"resource_constraints,omitempty" json:"resource_constraints,omitempty"`
	CapabilityConstraints    []CapabilityConstraintDoc    `yaml:"capability_constraints,omitempty" json:"capability_constraints,omitempty"`
	ProviderGroupConstraints []ProviderGroupConstraintDoc `yaml:"provider_group_constraints,omitempty" json:"provider_group_constraints,omitempty"`
	DistanceConstraints      []DistanceConstraintDoc      `yaml:"distance_constraints,omitempty" json:"distance_constraints,omitempty"`
}

// ConsumerDoc mirrors the claim request's consumer object.
type ConsumerDoc struct {
	UUID         string `yaml:"uuid" json:"uuid"`
	TypeCode     string `yaml:"type_code" json:"type_code"`
	OwnerProject string `yaml:"owner_project" json:"owner_project"`
	OwnerUser    string `yaml:"owner_user" json:"owner_user"`
}

// ClaimRequestDocument is the YAML/JSON wire shape of a ClaimRequest
// (spec.md §6): `{ consumer, request_groups[], acquire_time, release_time }`.
type ClaimRequestDocument struct {
	Consumer      ConsumerDoc        `yaml:"consumer" json:"consumer"`
	RequestGroups []RequestGroupDoc  `yaml:"request_groups" json:"request_groups"`
	AcquireTime   int64              `yaml:"acquire_time" json:"acquire_time"`
	ReleaseTime   int64              `yaml:"release_time" json:"release_time"`
}

// LoadClaimRequestDocument reads a ClaimRequestDocument from the YAML file
// at path.
func LoadClaimRequestDocument(path string) (ClaimRequestDocument, error) {
	var doc ClaimRequestDocument
	buf, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	err = yaml.Unmarshal(buf, &doc)
	return doc, err
}

// ToClaimRequest converts the wire document into the domain type the
// planner consumes, applying the min_amount/max_amount default-to-each-
// other rule spec.md §6 specifies.
func (doc ClaimRequestDocument) ToClaimRequest() (core.ClaimRequest, error) {
	consumerUUID, err := uuid.FromString(doc.Consumer.UUID)
	if err != nil {
		return core.ClaimRequest{}, fmt.Errorf("consumer.uuid: %w", err)
	}
	var ownerProject, ownerUser uuid.UUID
	if doc.Consumer.OwnerProject != "" {
		ownerProject, err = uuid.FromString(doc.Consumer.OwnerProject)
		if err != nil {
			return core.ClaimRequest{}, fmt.Errorf("consumer.owner_project: %w", err)
		}
	}
	if doc.Consumer.OwnerUser != "" {
		ownerUser, err = uuid.FromString(doc.Consumer.OwnerUser)
		if err != nil {
			return core.ClaimRequest{}, fmt.Errorf("consumer.owner_user: %w", err)
		}
	}

	req := core.ClaimRequest{
		Consumer: core.ConsumerRef{
			UUID:         consumerUUID,
			TypeCode:     doc.Consumer.TypeCode,
			OwnerProject: ownerProject,
			OwnerUser:    ownerUser,
		},
		AcquireTime: doc.AcquireTime,
		ReleaseTime: doc.ReleaseTime,
	}

	for groupIndex, g := range doc.RequestGroups {
		group := core.ClaimRequestGroup{
			Options: core.ClaimRequestGroupOptions{
				SingleProvider: g.Options.SingleProvider,
				IsolateFrom:    g.Options.IsolateFrom,
			},
		}
		for _, cc := range g.CapabilityConstraints {
			group.CapabilityConstraints = append(group.CapabilityConstraints, core.CapabilityConstraint{
				Require: cc.Require, Any: cc.Any, Forbid: cc.Forbid,
			})
		}
		for _, rc := range g.ResourceConstraints {
			minAmount, maxAmount, err := resolveAmounts(rc.MinAmount, rc.MaxAmount)
			if err != nil {
				return core.ClaimRequest{}, fmt.Errorf("request_groups[%d]: %w", groupIndex, err)
			}
			group.ResourceConstraints = append(group.ResourceConstraints, core.ResourceConstraint{
				ResourceTypeCode:     rc.ResourceTypeCode,
				MinAmount:            minAmount,
				MaxAmount:            maxAmount,
				CapabilityConstraint: rc.CapabilityConstraint.toCore(),
			})
		}
		for _, pg := range g.ProviderGroupConstraints {
			group.ProviderGroupConstraints = append(group.ProviderGroupConstraints, core.ProviderGroupConstraint{
				RequireGroups: pg.RequireGroups, AnyGroups: pg.AnyGroups, ForbidGroups: pg.ForbidGroups,
			})
		}
		for _, dc := range g.DistanceConstraints {
			var groupUUID uuid.UUID
			if dc.ProviderGroupUUID != "" {
				groupUUID, err = uuid.FromString(dc.ProviderGroupUUID)
				if err != nil {
					return core.ClaimRequest{}, fmt.Errorf("request_groups[%d].distance_constraints: %w", groupIndex, err)
				}
			}
			group.DistanceConstraints = append(group.DistanceConstraints, core.DistanceConstraint{
				ProviderGroupUUID: groupUUID, Minimum: dc.Minimum, Maximum: dc.Maximum,
			})
		}
		req.RequestGroups = append(req.RequestGroups, group)
	}

	return req, nil
}

// resolveAmounts applies spec.md §6's "min_amount and max_amount default
// to each other when one is absent" rule.
func resolveAmounts(min, max *int64) (int64, int64, error) {
	switch {
	case min == nil && max == nil:
		return 0, 0, fmt.Errorf("resource constraint needs at least one of min_amount/max_amount")
	case min == nil:
		return *max, *max, nil
	case max == nil:
		return *min, *min, nil
	default:
		return *min, *max, nil
	}
}
