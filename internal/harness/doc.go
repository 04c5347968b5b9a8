// Package harness provides conformance testing for compiled queries.
//
// A scenario names a set of CUE model definitions, a query document and the
// outcome expected from compiling and running it. The harness compiles the
// query, seeds a fresh in-memory SQLite database and checks the result.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: hot-title
//	description: "Newest book title per publisher"
//	models: ../models            # directory or .cue file, relative to the scenario
//	dialect: sqlite              # optional; sqlite, postgres or mysql
//	seed:
//	  - model: Publisher
//	    rows:
//	      - { id: 1, name: Ace }
//	query:
//	  model: Publisher
//	  annotate:
//	    - name: hot_title
//	      subquery:
//	        model: Book
//	        filter: [{ field: publisher, outer_ref: pk }]
//	        order_by: ["-publication_date"]
//	        values: [title]
//	        limit: 1
//	expect:
//	  sql: 'SELECT ...'
//	  sql_contains: ['AS "hot_title"']
//	  params: []
//	  rows:
//	    - { id: 1, name: Ace, hot_title: Neuromancer }
//
// A scenario that expects compilation to fail sets expect.error to one of
// the error codes (FIELD_RESOLUTION, AMBIGUOUS_OUTPUT_FIELD,
// UNCORRELATED_SUBQUERY, COMPILE_ERROR) and optionally expect.error_contains.
//
// # Determinism
//
// Each scenario runs against its own in-memory database and rows are
// compared in result order, so scenarios that expect rows should order
// their query. Golden snapshots hold the canonical JSON of the compiled
// SQL and params.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/hot-title.yaml")
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
