// Package flatcms implements a file-backed content storage engine for a
// headless CMS. Records are persisted as individual JSON documents on disk,
// grouped by content type, with no external database.
//
// The package provides:
//
//   - A Service that creates, reads, updates, deletes, queries, and versions
//     content items, enforces schema-declared field uniqueness, and resolves
//     related items by tag overlap, category match, and back-references.
//   - A Store/VersionStore abstraction with a filesystem implementation
//     (store/fs) and an in-memory implementation (store/memory).
//   - A query engine that turns raw URL parameters into typed filter, search,
//     sort, and pagination operations over an in-memory item list.
//
// Construct a service with functional options:
//
//	st, err := fs.New(fs.Config{BaseDir: "./data/content"})
//	if err != nil { ... }
//	svc, err := flatcms.New(
//	    flatcms.WithStore(st),
//	    flatcms.WithVersionStore(st),
//	    flatcms.WithSchemaProvider(schemas),
//	)
//
// All operations return structured errors; callers at the transport boundary
// map them to protocol responses (see the api package).
package flatcms
