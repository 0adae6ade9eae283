// Package core provides the business logic for HR bulk imports.
//
// This package sits between the transport layer and PostgreSQL. It owns
// the entity registry, record validation, persistence of imported rows
// and grants, and the import history. File decoding is delegated to the
// importer package.
//
// # Entity Registry
//
// Entities are registered at init time using [Register]. Each
// [EntityDefinition] declares the upload's header list through its field
// specs; the first header is the record key:
//
//	core.Register(core.EntityDefinition{
//	    Info: core.EntityInfo{Key: "clients", Group: "Clients", Label: "Clients"},
//	    FieldSpecs: []core.FieldSpec{
//	        {Name: "client_code", Type: core.FieldText, Required: true},
//	        {Name: "contact_email", Type: core.FieldEmail},
//	    },
//	})
//
// BuildRow and Insert are optional. The defaults convert each cell by its
// field type and INSERT into Info.Table with an import_run_id column.
//
// # Import Flow
//
// [Service.ImportFile] runs one upload end to end:
//
//  1. A slot is taken from the [ImportLimiter]
//  2. The file is decoded with importer.Import; any decoding error rejects
//     the whole file
//  3. Headers are matched case-insensitively; unknown columns reject the file
//  4. Each record is validated; invalid records become failed rows
//  5. Valid rows are inserted in one transaction with a savepoint per row
//  6. Permission grants are stored for inserted records
//  7. The run is written to import_runs and the transaction commits
//  8. The original upload is archived when an [Archiver] is configured
//
// Failed runs are recorded as well, with the phase they failed in.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each category has a code for support reference:
//
//   - IMP001-IMP005: File decoding (empty file, column count, row shape)
//   - VAL001-VAL007: Field validation
//   - FILE001-FILE004: Upload handling
//   - DB001-DB005: Database errors
//   - REQ001-REQ006: Request errors (unknown entity, busy, timeout)
package core
