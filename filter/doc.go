/*
Package filter compiles declarative filter trees into DynamoDB condition
expressions.

A Filter maps attribute names to a literal (equality), an Op or a nested
Filter addressing the attributes of a map attribute. The reserved keys OR, AND
and NOT combine sub-trees:

	expr, err := filter.Compile(filter.Filter{
	    "status": "active",
	    "age":    filter.Op{Ge: 18},
	    "OR": []filter.Filter{
	        {"email": filter.Op{BeginsWith: "admin@"}},
	        {"role": filter.In("owner", "admin")},
	    },
	})
	// expr.Expression:
	// (((begins_with(#OR_0_email, :OR_0_email)) OR (#OR_1_role IN (:OR_1_role0, :OR_1_role1)))
	//   AND #age >= :age AND #status = :status)

Compilation is pure and deterministic: fields are visited in sorted order and
every placeholder is derived from the field path, so the same tree always
yields the same expression. Two paths that derive the same placeholder (a-b and
a_b, or the nested profile.age and profile_age) get numbered forms, so every
placeholder stays bound to exactly one name or value.

Key conditions use CompileKeyCondition, which accepts only the operators a
Query key condition supports and prefixes every placeholder with KeyPrefix so
the result can be merged with a compiled filter. CompileDisjoint compiles a
filter that never rebinds a placeholder of the expressions it is merged with:

	key, err := filter.CompileKeyCondition(filter.Filter{"pk": "user#1", "sk": filter.BeginsWith("order#")})
	where, err := filter.CompileDisjoint(filter.Filter{"total": filter.Op{G: 100}}, key)
	merged := filter.Merge(key, where)
*/
package filter
