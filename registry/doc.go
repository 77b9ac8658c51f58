/*
Package registry holds the entity schemas known to the process.

Schemas are registered under their entity name, either explicitly:

	entity, err := schema.LoadFile("schemas/user.json")
	if err != nil {
	    return err
	}
	if err := registry.RegisterSchema(entity); err != nil {
	    return err
	}

or from init functions emitted by the processor:

	func init() {
	    registry.MustRegisterSchema(userSchema)
	}

GetSchema returns an error matching errors.ErrNoSchema for unknown names.
Clients resolve entities lazily from the Default registry unless given their
own Registry. All operations are safe for concurrent use.
*/
package registry
