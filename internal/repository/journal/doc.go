// Package journal persists the record of the last bootstrap run.
//
// The FileRepository stores the journal as JSON on disk. The document is a
// protobuf Struct written and read with protojson, so the file stays stable
// and human-readable without generated types.
package journal
