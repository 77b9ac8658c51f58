/*
Package transform rewrites every item of a table according to a plan.

A plan is a YAML document of ordered steps. Expressions are CEL evaluated
against the variable item, which holds the stored attributes:

	name: split-status
	entity: Order
	steps:
	  - op: filter           # only items for which expr is true are touched
	    expr: item.Status == 'open'
	  - op: delete           # delete the item instead of rewriting it
	    expr: item.Total >= 50.0
	  - op: add              # set attribute to the value of expr
	    attribute: Discount
	    expr: item.Total * 0.5
	  - op: rename
	    attribute: Status
	    to: State
	  - op: set              # set attribute to a literal
	    attribute: Version
	    value: 2
	rollback:
	  - op: rename
	    attribute: State
	    to: Status

Numbers are doubles in expressions, so literals combined with them need a
fractional part (1.0, not 1). A map step without an attribute replaces the
whole item with the map its expression returns.

Run scans the whole table, evaluates the plan and then writes: deletions
first, then the rewritten items, in concurrent batches of 25. Nothing is
written when an expression fails. Preview stores the same result as JSON
instead of writing it, and Backup takes an on-demand backup beforehand.
*/
package transform
