// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Schema Validation
// =============================================================================

var (
	validatorOnce sync.Once
	planValidator *validator.Validate
)

// getValidator returns the shared validator instance.
//
// Thread Safety: Safe for concurrent use via sync.Once; the validator
// itself is safe for concurrent use after registration.
func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		planValidator = validator.New(validator.WithRequiredStructEnabled())
		planValidator.RegisterStructValidation(validateOperationSpecStruct, OperationSpec{})
		planValidator.RegisterStructValidation(validatePlanResponseStruct, PlanResponse{})
	})
	return planValidator
}

// validateOperationSpecStruct enforces that the params payload type
// matches the declared operation family.
func validateOperationSpecStruct(sl validator.StructLevel) {
	spec := sl.Current().Interface().(OperationSpec)
	if spec.Params == nil {
		return // the required tag reports the missing payload
	}

	ok := false
	switch spec.Operation {
	case FamilyPrice, FamilyCompareAt:
		_, ok = spec.Params.(PriceParams)
	case FamilyTags:
		_, ok = spec.Params.(TagsParams)
	case FamilyInventory:
		_, ok = spec.Params.(InventoryParams)
	case FamilyStatus:
		_, ok = spec.Params.(StatusParams)
	case FamilyMetafield:
		_, ok = spec.Params.(MetafieldParams)
	case FamilySEO:
		_, ok = spec.Params.(SEOParams)
	}
	if !ok {
		sl.ReportError(spec.Params, "Params", "params", "paramsfamily", string(spec.Operation))
	}
}

// validatePlanResponseStruct enforces that exactly the payload matching
// the action discriminant is populated.
func validatePlanResponseStruct(sl validator.StructLevel) {
	resp := sl.Current().Interface().(PlanResponse)

	switch resp.Action {
	case ActionPlan:
		if resp.Plan == nil {
			sl.ReportError(resp.Plan, "Plan", "plan", "payloadrequired", string(ActionPlan))
		}
		if resp.Clarify != nil || resp.Error != nil {
			sl.ReportError(resp.Action, "Action", "action", "payloadexclusive", string(ActionPlan))
		}
	case ActionClarify:
		if resp.Clarify == nil {
			sl.ReportError(resp.Clarify, "Clarify", "clarify", "payloadrequired", string(ActionClarify))
		}
		if resp.Plan != nil || resp.Error != nil {
			sl.ReportError(resp.Action, "Action", "action", "payloadexclusive", string(ActionClarify))
		}
	case ActionError:
		if resp.Error == nil {
			sl.ReportError(resp.Error, "Error", "error", "payloadrequired", string(ActionError))
		}
		if resp.Plan != nil || resp.Clarify != nil {
			sl.ReportError(resp.Action, "Action", "action", "payloadexclusive", string(ActionError))
		}
	}
}

// Validate checks the response against the full wire schema.
//
// Description:
//
//	Walks the envelope, payloads, operation spec (including the
//	family/params correspondence), and filter spec. A non-nil error
//	means the response must not be returned to any caller.
//
// Outputs:
//
//	error - Non-nil when any schema rule is violated.
func (r *PlanResponse) Validate() error {
	if err := getValidator().Struct(r); err != nil {
		return fmt.Errorf("plan response failed schema validation: %w", err)
	}
	// The params payloads are also validated directly so their field
	// errors name the operation family.
	if r.Plan != nil {
		if err := validateParams(r.Plan.OpSpec); err != nil {
			return err
		}
	}
	if r.Clarify != nil && r.Clarify.Draft != nil {
		if err := validateParams(r.Clarify.Draft.OpSpec); err != nil {
			return err
		}
	}
	return nil
}

// validateParams checks the concrete params payload of an operation spec.
func validateParams(spec OperationSpec) error {
	if spec.Params == nil {
		return nil // the envelope walk already reported the missing payload
	}
	if err := getValidator().Struct(spec.Params); err != nil {
		return fmt.Errorf("%s params failed schema validation: %w", spec.Operation, err)
	}
	return nil
}

// ValidateRequest checks the request shape before planning.
//
// Outputs:
//
//	error - Non-nil when the request is structurally invalid (empty or
//	    missing text).
func ValidateRequest(req Request) error {
	if err := getValidator().Struct(req); err != nil {
		return fmt.Errorf("request failed shape validation: %w", err)
	}
	return nil
}
