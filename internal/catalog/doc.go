// Package catalog loads authored recipes and actions from CUE or YAML.
//
// A catalog has two top-level maps keyed by entity name:
//
//	actions: "show-heartbeat": {
//		implementation:   "..."
//		arguments_schema: {type: "object", required: ["surveyId"]}
//	}
//	recipes: "heartbeat-release": {
//		action:            "show-heartbeat"
//		filter_expression: "normandy.channel == 'release'"
//		arguments:         {surveyId: "hb-1"}
//		enabled:           true
//	}
//
// Content goes through the same decoder as every other payload, so floats
// and nulls are rejected at load time rather than at signing time.
// Recipe arguments are checked against the referenced action's
// arguments_schema with JSON Schema.
package catalog
