// Package models defines the record types shared by the annotation engine:
// highlights and their durable positions, review history, sync-queue
// operations, and cached-book metadata.
//
// All identifiers are typed wrappers around UUIDs so a HighlightID can never
// be passed where a BookID is expected. Records marshal to the serialized
// shape used for export and for the remote sync payload; positions use a
// tagged anchor union (TextAnchor | AreaAnchor) rather than a stringly-typed
// kind field read dynamically.
package models
