// Package importer converts uploaded CSV, Excel and ZIP-of-CSV files into
// structured records.
//
// The package is a pure function of its inputs plus a single filesystem
// read. It has no database, HTTP or storage dependencies; callers (the
// core service and the web layer) decide what to do with the records.
//
// # Pipeline
//
//  1. [FormatForMIME] picks a decoder from the declared MIME type.
//     Unknown types fall back to the spreadsheet decoder.
//  2. The decoder reads the file and splits it into a header row and
//     data rows. CSV text is cleaned of a UTF-8 BOM and invalid UTF-8
//     before splitting.
//  3. The header count is checked against [ParseOptions.ColumnLength]
//     and every row is checked against the header count. All row errors
//     are collected and reported together as [RowShapeErrors]; no
//     partial data is returned.
//  4. For Excel and ZIP uploads, [ExtractPermissions] moves the reserved
//     permission columns out of each record into an
//     [ObjectPermissionImport].
//  5. Each [ParsedRow] is converted into the caller's record type by a
//     JSON round trip.
//
// # Errors
//
// Every failure returned by [Import] is an [*ImportError] carrying an
// HTTP-style status and the underlying cause:
//
//	ErrEmptyFile               404
//	*ColumnCountMismatchError  400
//	RowShapeErrors             400
//	*MissingZipEntryError      400
//	ErrInvalidRequest          400
//	ErrUnsupportedWorkbook     400
//	ErrUnsupportedArchive      400
//	*RecordConversionError     400
//	*UnderlyingIOError         500
//
// Use [StatusOf] to read the status of any error.
package importer
