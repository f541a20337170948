// Package schema defines the schema layer of the repository engine: the
// read, create and update schema contracts, the reflection layout that maps
// struct fields to storage columns through `db` tags, and the subtype
// registry that ties a discriminator tag to its schema triple and storage
// table.
//
// A hierarchy is declared once, at definition time:
//
//	var Registry = schema.MustRegistry(
//	    schema.KindOf[ParentRead, ParentCreate, ParentUpdate]("parent", "parent_model"),
//	    schema.KindOf[ChildRead, ChildCreate, ChildUpdate]("child", "child_model"),
//	)
//
// Subtype read structs embed the root read struct, so every subtype carries
// the root columns. The discriminator column is owned by the engine and is
// never a struct field; ModelKind reports it.
package schema
