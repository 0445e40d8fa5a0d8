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
	"encoding/json"
	"fmt"
)

// =============================================================================
// Enumerations
// =============================================================================

// Family identifies the operation family of an OperationSpec.
type Family string

const (
	FamilyPrice     Family = "price"
	FamilyCompareAt Family = "compare_at"
	FamilyTags      Family = "tags"
	FamilyInventory Family = "inventory"
	FamilyStatus    Family = "status"
	FamilyMetafield Family = "metafield"
	FamilySEO       Family = "seo"
)

// Scope selects whether an operation applies at product or variant level.
type Scope string

const (
	ScopeProduct Scope = "product"
	ScopeVariant Scope = "variant"
)

// Confidence is the qualitative certainty attached to a produced plan.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Action is the discriminant of a PlanResponse.
type Action string

const (
	ActionPlan    Action = "plan"
	ActionClarify Action = "clarify"
	ActionError   Action = "error"
)

// PriceMode selects how a price or compare-at value is mutated.
type PriceMode string

const (
	PriceModeIncPercent PriceMode = "inc_percent"
	PriceModeIncValue   PriceMode = "inc_value"
	PriceModeSet        PriceMode = "set"
)

// TagsMode selects how the tag list is mutated.
type TagsMode string

const (
	TagsModeAdd     TagsMode = "add"
	TagsModeRemove  TagsMode = "remove"
	TagsModeReplace TagsMode = "replace"
)

// InventoryMode selects how the on-hand quantity is mutated.
type InventoryMode string

const (
	InventoryModeSet InventoryMode = "set"
	InventoryModeInc InventoryMode = "inc"
	InventoryModeDec InventoryMode = "dec"
)

// ProductStatus is a product lifecycle value.
type ProductStatus string

const (
	StatusActive   ProductStatus = "ACTIVE"
	StatusDraft    ProductStatus = "DRAFT"
	StatusArchived ProductStatus = "ARCHIVED"
)

// RoundingDirection controls which way a rounding policy rounds.
type RoundingDirection string

const (
	RoundUp      RoundingDirection = "up"
	RoundDown    RoundingDirection = "down"
	RoundNearest RoundingDirection = "nearest"
)

// IssueCode is a closed enumeration of clarify issue codes.
type IssueCode string

const (
	IssueRequireLocation  IssueCode = "inventory.requireLocation"
	IssueUnrecognized     IssueCode = "plan.unrecognized"
	IssueUnsupported      IssueCode = "plan.unsupported"
	IssueMissingAmount    IssueCode = "plan.missingAmount"
	IssueMissingTagValues IssueCode = "plan.missingTagValues"
)

// =============================================================================
// Operation Spec
// =============================================================================

// OperationSpec is the typed instruction of what to change.
//
// Description:
//
//	A tagged variant discriminated by Operation. Params holds the
//	family-specific payload; its concrete type must correspond to the
//	declared family (enforced by Validate).
type OperationSpec struct {
	// Operation is the family discriminant.
	Operation Family `json:"operation" validate:"required,oneof=price compare_at tags inventory status metafield seo"`

	// Scope selects product-level or variant-level application.
	Scope Scope `json:"scope" validate:"required,oneof=product variant"`

	// Schedule optionally defers execution to an RFC 3339 timestamp.
	Schedule *string `json:"schedule,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`

	// Params is the family-specific payload.
	Params OperationParams `json:"params" validate:"required"`
}

// OperationParams is the closed set of per-family payloads.
type OperationParams interface {
	isOperationParams()
}

// PriceParams is the payload for the price and compare_at families.
type PriceParams struct {
	// Mode selects percentage increase, absolute increase, or literal set.
	Mode PriceMode `json:"mode" validate:"required,oneof=inc_percent inc_value set"`

	// Value is signed for the increase modes (negative means decrease)
	// and the literal target for set.
	Value float64 `json:"value"`

	// Currency is the ISO 4217 code when the user wrote a currency symbol.
	Currency string `json:"currency,omitempty" validate:"omitempty,iso4217"`

	// Rounding optionally applies a price-ending policy after the change.
	Rounding *RoundingPolicy `json:"rounding,omitempty"`
}

func (PriceParams) isOperationParams() {}

// RoundingPolicy shapes the resulting price (e.g. end prices with .99).
type RoundingPolicy struct {
	Precision int               `json:"precision" validate:"gte=0,lte=4"`
	EndWith   string            `json:"endWith,omitempty"`
	Direction RoundingDirection `json:"direction,omitempty" validate:"omitempty,oneof=up down nearest"`
}

// TagsParams is the payload for the tags family.
type TagsParams struct {
	// Mode selects add, remove, or replace.
	Mode TagsMode `json:"mode" validate:"required,oneof=add remove replace"`

	// Values are the tag literals in user order, case preserved.
	Values []string `json:"values" validate:"required,min=1,dive,required"`
}

func (TagsParams) isOperationParams() {}

// InventoryParams is the payload for the inventory family.
type InventoryParams struct {
	// Mode selects set, inc, or dec.
	Mode InventoryMode `json:"mode" validate:"required,oneof=set inc dec"`

	// Quantity is the non-negative magnitude of the change.
	Quantity int `json:"quantity" validate:"gte=0"`

	// LocationID is the free-text location label pending resolution by
	// the catalog collaborator.
	LocationID string `json:"locationId,omitempty"`
}

func (InventoryParams) isOperationParams() {}

// StatusParams is the payload for the status family.
type StatusParams struct {
	// Status is the target lifecycle value.
	Status ProductStatus `json:"status" validate:"required,oneof=ACTIVE DRAFT ARCHIVED"`
}

func (StatusParams) isOperationParams() {}

// MetafieldParams is the payload for the metafield family. No builder
// produces it; the family exists so downstream executors share one schema.
type MetafieldParams struct {
	Namespace string `json:"namespace" validate:"required"`
	Key       string `json:"key" validate:"required"`
	Type      string `json:"type" validate:"required"`
	Value     string `json:"value"`
}

func (MetafieldParams) isOperationParams() {}

// SEOParams is the payload for the seo family. No builder produces it.
type SEOParams struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

func (SEOParams) isOperationParams() {}

// UnmarshalJSON decodes the params payload according to the operation
// family discriminant.
func (s *OperationSpec) UnmarshalJSON(data []byte) error {
	var raw struct {
		Operation Family          `json:"operation"`
		Scope     Scope           `json:"scope"`
		Schedule  *string         `json:"schedule"`
		Params    json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Operation = raw.Operation
	s.Scope = raw.Scope
	if s.Scope == "" {
		s.Scope = ScopeProduct
	}
	s.Schedule = raw.Schedule
	s.Params = nil

	if len(raw.Params) == 0 || string(raw.Params) == "null" {
		return nil
	}

	switch raw.Operation {
	case FamilyPrice, FamilyCompareAt:
		var p PriceParams
		if err := json.Unmarshal(raw.Params, &p); err != nil {
			return fmt.Errorf("decoding %s params: %w", raw.Operation, err)
		}
		s.Params = p
	case FamilyTags:
		var p TagsParams
		if err := json.Unmarshal(raw.Params, &p); err != nil {
			return fmt.Errorf("decoding tags params: %w", err)
		}
		s.Params = p
	case FamilyInventory:
		var p InventoryParams
		if err := json.Unmarshal(raw.Params, &p); err != nil {
			return fmt.Errorf("decoding inventory params: %w", err)
		}
		s.Params = p
	case FamilyStatus:
		var p StatusParams
		if err := json.Unmarshal(raw.Params, &p); err != nil {
			return fmt.Errorf("decoding status params: %w", err)
		}
		s.Params = p
	case FamilyMetafield:
		var p MetafieldParams
		if err := json.Unmarshal(raw.Params, &p); err != nil {
			return fmt.Errorf("decoding metafield params: %w", err)
		}
		s.Params = p
	case FamilySEO:
		var p SEOParams
		if err := json.Unmarshal(raw.Params, &p); err != nil {
			return fmt.Errorf("decoding seo params: %w", err)
		}
		s.Params = p
	default:
		return fmt.Errorf("unknown operation family %q", raw.Operation)
	}

	return nil
}

// =============================================================================
// Filter Spec
// =============================================================================

// FilterSpec is the typed instruction of what to select.
//
// Description:
//
//	Conditions are AND'd across categories and OR'd within a category.
//	An empty FilterSpec means no selection narrowing; the downstream
//	collaborator decides the default scope.
type FilterSpec struct {
	// Must holds the positive selection sets.
	Must FilterMust `json:"must"`

	// MustNot holds the negative selection sets.
	MustNot FilterMustNot `json:"mustNot"`

	// TitleContains is a free-text substring hint, null when absent.
	TitleContains *string `json:"titleContains"`

	// Numeric holds the numeric range conditions.
	Numeric FilterNumeric `json:"numeric"`
}

// FilterMust holds the positive selection literals.
type FilterMust struct {
	Vendors     []string `json:"vendors"`
	Types       []string `json:"types"`
	Collections []string `json:"collections"`
	Tags        []string `json:"tags"`
}

// FilterMustNot holds the negative selection literals.
type FilterMustNot struct {
	Tags []string `json:"tags"`
}

// FilterNumeric holds the nullable numeric conditions.
type FilterNumeric struct {
	PriceGte    *float64 `json:"priceGte"`
	PriceLte    *float64 `json:"priceLte"`
	InventoryEq *int     `json:"inventoryEq"`
}

// NewFilterSpec returns an empty filter with non-nil literal sets so the
// JSON rendering is stable ([] rather than null).
func NewFilterSpec() FilterSpec {
	return FilterSpec{
		Must: FilterMust{
			Vendors:     []string{},
			Types:       []string{},
			Collections: []string{},
			Tags:        []string{},
		},
		MustNot: FilterMustNot{
			Tags: []string{},
		},
	}
}

// IsEmpty reports whether the filter narrows the selection at all.
func (f FilterSpec) IsEmpty() bool {
	return len(f.Must.Vendors) == 0 &&
		len(f.Must.Types) == 0 &&
		len(f.Must.Collections) == 0 &&
		len(f.Must.Tags) == 0 &&
		len(f.MustNot.Tags) == 0 &&
		f.TitleContains == nil &&
		f.Numeric.PriceGte == nil &&
		f.Numeric.PriceLte == nil &&
		f.Numeric.InventoryEq == nil
}

// =============================================================================
// Plan Response
// =============================================================================

// Request is the single input of a planning call.
type Request struct {
	// Text is the merchant's free-form instruction.
	Text string `json:"text" validate:"required"`

	// Locale is forwarded for message-key localization only; extraction
	// is locale-independent.
	Locale string `json:"locale,omitempty"`
}

// PlanResponse is the tagged outcome of a planning call.
//
// Description:
//
//	Exactly one of Plan, Clarify, or Error is populated, matching the
//	Action discriminant (enforced by Validate).
type PlanResponse struct {
	// Action is the variant discriminant.
	Action Action `json:"action" validate:"required,oneof=plan clarify error"`

	// Plan is set when the text resolved to a complete operation.
	Plan *PlanPayload `json:"plan,omitempty"`

	// Clarify is set when the text was ambiguous or incomplete.
	Clarify *ClarifyPayload `json:"clarify,omitempty"`

	// Error is set only for malformed-request or internal-failure
	// conditions, never for uninterpretable text.
	Error *ErrorPayload `json:"error,omitempty"`
}

// PlanPayload is a complete, executable plan.
type PlanPayload struct {
	// OpSpec is what to change.
	OpSpec OperationSpec `json:"opSpec"`

	// FilterSpec is what to select.
	FilterSpec FilterSpec `json:"filterSpec"`

	// Confidence qualifies how certain the interpretation is.
	Confidence Confidence `json:"confidence" validate:"required,oneof=high medium low"`

	// SummaryKey is a localizable key describing the plan in one line.
	SummaryKey string `json:"summaryKey,omitempty"`
}

// ClarifyPayload asks the merchant to resolve one or more issues.
type ClarifyPayload struct {
	// Issues are the reasons a plan could not be safely produced, in
	// detection order.
	Issues []ClarifyIssue `json:"issues" validate:"required,min=1,dive"`

	// Draft carries the partial plan inferred despite the gap, when one
	// could be built.
	Draft *PlanPayload `json:"draft,omitempty"`
}

// ClarifyIssue is one coded reason for a clarification.
type ClarifyIssue struct {
	// Code identifies the issue.
	Code IssueCode `json:"code" validate:"required,oneof=inventory.requireLocation plan.unrecognized plan.unsupported plan.missingAmount plan.missingTagValues"`

	// MessageKey is the localizable rendering key for the issue.
	MessageKey string `json:"messageKey" validate:"required"`

	// Options are selectable resolutions, when the issue has a closed
	// answer set.
	Options []IssueOption `json:"options,omitempty"`
}

// IssueOption is one selectable resolution for a clarify issue.
type IssueOption struct {
	Value    string `json:"value" validate:"required"`
	LabelKey string `json:"labelKey" validate:"required"`
}

// ErrorPayload reports a malformed request or an internal failure.
type ErrorPayload struct {
	Code    string `json:"code" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// =============================================================================
// Response Constructors
// =============================================================================

// NewPlanResult wraps a completed plan in a response envelope.
func NewPlanResult(payload PlanPayload) *PlanResponse {
	return &PlanResponse{
		Action: ActionPlan,
		Plan:   &payload,
	}
}

// NewClarifyResult wraps clarify issues and an optional draft in a
// response envelope.
func NewClarifyResult(issues []ClarifyIssue, draft *PlanPayload) *PlanResponse {
	return &PlanResponse{
		Action: ActionClarify,
		Clarify: &ClarifyPayload{
			Issues: issues,
			Draft:  draft,
		},
	}
}

// NewErrorResult wraps an error code and message in a response envelope.
func NewErrorResult(code, message string) *PlanResponse {
	return &PlanResponse{
		Action: ActionError,
		Error: &ErrorPayload{
			Code:    code,
			Message: message,
		},
	}
}
