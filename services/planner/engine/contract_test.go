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
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Wire Contract
// =============================================================================

// compileResponseSchema loads the published response schema. Executors
// in other services validate against the same document, so every engine
// output must satisfy it.
func compileResponseSchema(t *testing.T) *jsonschema.Schema {
	t.Helper()

	raw, err := os.ReadFile("testdata/plan_response.schema.json")
	require.NoError(t, err, "reading schema document")

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	const url = "https://aleutian.ai/schemas/planner/plan_response.schema.json"
	require.NoError(t, c.AddResource(url, bytes.NewReader(raw)), "adding schema resource")

	compiled, err := c.Compile(url)
	require.NoError(t, err, "compiling schema")
	return compiled
}

func TestWireContract_EngineOutputs(t *testing.T) {
	p := newTestPlanner(t)
	schema := compileResponseSchema(t)

	texts := []string{
		"increase hoodie prices by 10%",
		"decrease prices by 15%",
		"set winter jacket prices to $19.99",
		"increase compare-at prices by 5%",
		`add "Summer Sale" and "Clearance" tags to hoodies`,
		"add tags summer, beach & sale",
		"remove the 'Old Stock' tag",
		"set stock to 50 at location Main Warehouse",
		"increase stock by 20",
		"update the stock",
		"archive old hoodies",
		"publish the new arrivals",
		"change the status of my hoodies",
		"make everything nicer somehow",
		"increase hoodie prices",
		"",
	}
	for _, text := range texts {
		resp, err := p.Plan(context.Background(), Request{Text: text})
		require.NoError(t, err, "Plan(%q)", text)

		data, err := json.Marshal(resp)
		require.NoError(t, err, "marshal for %q", text)

		var doc any
		require.NoError(t, json.Unmarshal(data, &doc), "decode for %q", text)
		require.NoError(t, schema.Validate(doc), "schema violation for %q: %s", text, data)
	}
}

func TestWireContract_LegacyOutputs(t *testing.T) {
	p := newTestPlanner(t)
	schema := compileResponseSchema(t)

	for _, text := range []string{
		"increase prices by 10% for hoodies",
		"lower prices of mugs",
		"  ",
	} {
		resp, err := p.LegacyPricePlan(context.Background(), text)
		require.NoError(t, err, "LegacyPricePlan(%q)", text)

		data, err := json.Marshal(resp)
		require.NoError(t, err)

		var doc any
		require.NoError(t, json.Unmarshal(data, &doc))
		require.NoError(t, schema.Validate(doc), "schema violation for %q: %s", text, data)
	}
}

func TestWireContract_RejectsDriftedEnvelope(t *testing.T) {
	schema := compileResponseSchema(t)

	cases := map[string]string{
		"two payloads": `{"action":"plan",
			"plan":{"opSpec":{"operation":"status","scope":"product","params":{"status":"ACTIVE"}},
			"filterSpec":{"must":{"vendors":[],"types":[],"collections":[],"tags":[]},"mustNot":{"tags":[]},"titleContains":null,"numeric":{"priceGte":null,"priceLte":null,"inventoryEq":null}},
			"confidence":"medium"},
			"error":{"code":"x","message":"y"}}`,
		"unknown field":      `{"action":"error","error":{"code":"x","message":"y"},"extra":1}`,
		"empty issues":       `{"action":"clarify","clarify":{"issues":[]}}`,
		"bad issue code":     `{"action":"clarify","clarify":{"issues":[{"code":"plan.nope","messageKey":"k"}]}}`,
		"negative inventory": `{"action":"plan","plan":{"opSpec":{"operation":"inventory","scope":"product","params":{"mode":"set","quantity":-1}},"filterSpec":{"must":{"vendors":[],"types":[],"collections":[],"tags":[]},"mustNot":{"tags":[]},"titleContains":null,"numeric":{"priceGte":null,"priceLte":null,"inventoryEq":null}},"confidence":"low"}}`,
	}
	for name, payload := range cases {
		var doc any
		require.NoError(t, json.Unmarshal([]byte(payload), &doc), "case %s", name)
		require.Error(t, schema.Validate(doc), "case %s should violate the schema", name)
	}
}
