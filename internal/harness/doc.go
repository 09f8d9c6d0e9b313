// Package harness runs progress sync conformance scenarios.
//
// A scenario seeds a local replica and a fake progress server, runs one or
// more passes of the real sync engine, and checks the recorded calls and
// the final state. Each run produces a text trace that can be compared
// against a golden file.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: photo_swap_in_one_pass
//	description: "Tombstoned front and new back photo in one pass"
//	now: "2026-03-10T12:00:00Z"
//	records:
//	  - id: r1
//	    day: 1
//	    last_modified: "2026-03-09T08:00:00Z"
//	    server_known: true
//	    photos:
//	      front: { tombstoned: true }
//	      back: { bytes: "B" }
//	remote:
//	  - day: 1
//	    create_date: "2026-03-08T08:00:00Z"
//	    photos: { front: "https://cdn.test/progress/1/front.jpg" }
//	failures: [get_progress]
//	passes:
//	  - {}
//	  - { advance: 1h, fail: [delete_photo] }
//	assertions:
//	  - type: call_count
//	    op: delete_photo
//	    count: 1
//	  - type: record
//	    day: 1
//	    expect: { synced: true, front: empty, back: url }
//
// Record days are internal day indexes; remote days are server day
// numbers, so internal day 100 is seeded and asserted remotely as day 99.
//
// # Assertion Types
//
//   - call_count: an operation ran exactly N times over all passes
//   - call_order: rendered calls appear in the given order (gaps allowed)
//   - record: the newest local record for a day matches expect, or is absent
//   - record_count: the store holds exactly N records
//   - remote: the server entry for a day has the given metrics, or is absent
//   - failures: one pass reported exactly the given failure codes
//
// # Deterministic Testing
//
// Every scenario runs on a fresh in-memory SQLite store, a frozen clock
// that only moves by a pass's advance, and sequential ids for hydrated
// records. The same scenario always produces the same trace.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/photo_swap.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
