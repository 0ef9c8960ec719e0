// Package harness runs trace scenarios end to end and checks the causal
// graph they produce.
//
// A scenario imports its records into an in-memory store, builds the graph
// from the stored copy, persists the diagnostics and evaluates assertions
// against a deterministic snapshot. Snapshots are compared against golden
// files with goldie.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	capture_id: capture-001        # optional
//	trace: traces/run.jsonl        # optional, relative to the scenario
//	discarded_events: 0            # optional
//	passes:                        # optional, unset passes stay enabled
//	  callback_events: false
//	records:
//	  - {_name: "ros2:rcl_node_init", _timestamp: 1, node_handle: 0x10, ...}
//	assertions:
//	  - type: event_count
//	    kind: publish
//	    count: 1
//	  - type: triggered_by
//	    event: "subscription /chatter@1010"
//	    trigger: "publish /chatter@996"
//	  - type: chain
//	    event: "callback on_message@1020"
//	    latency: 34
//	  - type: diagnostic_count
//	    code: INCOMPLETE_EVENT
//	    count: 0
//	  - type: stored
//	    table: records
//	    count: 12
//	  - type: verified
//
// Events are addressed by label, "<kind> <owner>@<earliest>", where the owner
// is the callback symbol for invocations and the topic for everything else.
package harness
