// Package models defines the data model for the SSCA message migration tool.
//
// Three groups of types live here:
//
//  1. Source records: [SourceMessage], a row from one of the two legacy
//     MySQL message tables ("sunday" and "special").
//  2. Target records: [Meeting], the normalized row written to the new
//     platform's database.
//  3. Progress tracking: [Run], [RecordProgress] and [Statistics], the
//     in-memory form of the durable migration ledger that makes
//     interrupted runs resumable.
package models
