/*
Package schema describes entities: their attributes, key roles, generators,
defaults and secondary indexes.

Definitions are read from JSON or YAML files. Attribute order in the file is
preserved:

	{
	  "name": "User",
	  "table": "users",
	  "attributes": {
	    "id":        { "type": "string", "partitionKey": true, "generator": "uuid" },
	    "kind":      { "type": "string", "sortKey": true, "staticValue": "user" },
	    "email":     { "type": "string" },
	    "createdAt": { "type": "date", "generator": "now" },
	    "tags":      { "type": "set<string>" }
	  },
	  "indexes": [
	    { "name": "byEmail", "partitionKey": "email" }
	  ]
	}

A schema is valid when exactly one attribute is the partition key and at most
one is the sort key. A key attribute carrying a staticValue pins that key
component to a constant, which lets all items of an entity share one partition
(or one sort key) without the caller passing it.
*/
package schema
