// Package fixture compiles CUE documents describing a compiled query -
// a block sequence plus its per-location metadata - into the in-memory
// forms the lowering pipeline consumes.
//
// A fixture document has two sections:
//
//	query: {
//	    locations: {
//	        root: {path: ["Animal"], typeName: "Animal"}
//	        child: {
//	            path: ["Animal", "out_Animal_ParentOf"]
//	            typeName:      "Animal"
//	            optionalDepth: 1
//	        }
//	    }
//	    blocks: [
//	        {kind: "QueryRoot", startClasses: ["Animal"]},
//	        {kind: "MarkLocation", location: "root"},
//	        ...
//	    ]
//	}
//
// Blocks and expressions reference locations by their name in the
// locations section. A location with a foldPath is a fold-scope
// location; one with revisitOf is a revisit of the named origin and is
// registered in the metadata table's translation map.
//
// This is IR serialization for tooling and tests, not a query language:
// parsing the query language itself belongs to the front end and is out
// of scope here.
package fixture
