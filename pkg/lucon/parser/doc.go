// Package parser reads LUCON theory text and goals into terms and clauses.
//
// The parser is a hand-written tokenizer plus an operator precedence parser
// over the standard operator table, extended with the legacy host-binding
// operators <- and returns so that existing policies keep loading.
//
// # Basic Usage
//
// Parse a policy file:
//
//	p := parser.NewParser()
//	clauses, err := p.Parse("policies/dataflow.pl")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Parse from memory:
//
//	clauses, err := p.ParseBytes([]byte(`
//	rule(deleteAfterOneMonth).
//	has_target(deleteAfterOneMonth, hadoopClusters).
//	has_endpoint(hadoopClusters, "hdfs://.*").
//	`), "memory://policy")
//
// Parse a goal for a diagnostic query:
//
//	goal, err := p.ParseGoal(`has_endpoint(X, Y), matches(Y, "hdfs://a", C), C`)
//
// # Configuration
//
//	p := parser.NewParser().
//	    WithMaxFileSize(1 << 20). // 1MB limit
//	    WithMaxDepth(200)         // Max term nesting depth
//
// # Error Handling
//
// Every malformed clause in a source is reported, not only the first one.
// The returned error is an *errors.ErrorList whose entries carry the location
// and a source excerpt:
//
//	clauses, err := p.ParseString(src, "policy.pl")
//	if errList, ok := err.(*errors.ErrorList); ok {
//	    for _, e := range errList.Errors {
//	        fmt.Println(e.Error())
//	    }
//	}
//
// Variables are scoped to one clause. The anonymous variable _ is distinct at
// each occurrence.
package parser
