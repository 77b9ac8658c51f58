/*
Package processor generates Go declarations from entity definitions.

For every entity the generator writes one file holding a struct per entity
and nested map attribute, named constants for the entity and its table, and
an init function registering the schema with the default registry:

	// User is an item of the User entity.
	type User struct {
		UserId    string           `json:"UserId,omitempty"`
		Email     string           `json:"Email"`
		Nickname  *string          `json:"Nickname"`
		CreatedAt *strfmt.DateTime `json:"CreatedAt,omitempty"`
	}

	func init() {
		entity, err := schema.Parse([]byte(userSchema))
		...
		registry.MustRegisterSchema(entity)
	}

Attributes the driver fills on create (generators, defaults, static values)
are tagged omitempty, and pointers are used where the zero value would be a
legal stored value. A client file adds a typed accessor per entity:

	client, err := generated.NewClient(dynamoClient)
	users, err := client.User()
	user, err := users.Create(ctx, &generated.User{Email: "a@example.com"})

Output is formatted with go/format before it is written.
*/
package processor
