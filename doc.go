/*
Package dynormo is a thin object mapper for DynamoDB driven by entity
definitions.

Entities are described in JSON or YAML: attributes with their types, the
partition and sort key, static values, generators (uuid, ulid, now), defaults
and secondary indexes. The definitions are registered as runtime schemas and
one generic driver (package datastore/ddb) serves every entity.

Basic Usage:

	cfg, err := config.Load("")
	if err != nil {
	    return err
	}
	client, err := dynormo.NewFromConfig(ctx, cfg)
	if err != nil {
	    return err
	}

	users, err := client.Entity("User")
	if err != nil {
	    return err
	}
	created, err := users.Create(ctx, schema.Item{"email": "ann@example.com"})

	active, err := users.FindAll(ctx, storagemodels.Query{
	    Where: filter.Filter{"status": "active", "age": filter.Op{Ge: 18}},
	})

Typed access maps items onto structs through their json tags:

	typed, err := dynormo.TypedEntity[User](client, "User")
	user, err := typed.FindOne(ctx, schema.Key{Partition: created["id"]})

Transactions are assembled from the driver builders and sent in groups of 25:

	put, _ := users.TxCreate(schema.Item{"email": "bob@example.com"})
	del, _ := users.TxDelete(schema.Key{Partition: "42"})
	err = client.Transaction(ctx, put, del)

The cmd/dynormo tool generates struct declarations and schema registration
code and runs declarative table transformations (package transform).
*/
package dynormo
