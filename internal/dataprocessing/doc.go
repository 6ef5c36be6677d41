// Package dataprocessing ingests the four source tables of the cohort pipeline:
// accounts, ledger entries, trades and reference rates.
//
// # Architecture
//
//  1. Table: header-indexed rows read from a CSV file (UTF-8, BOM tolerated) or
//     from the first sheet of an xlsx workbook.
//  2. Parsers: typed conversion of each table into domain values. Every required
//     column is checked before any row is read.
//  3. Loader: reads all four inputs concurrently and records a blake2b digest of
//     each file for the run manifest.
//
// # Error Handling
//
// Input problems are fatal for the whole batch. A missing column or a malformed
// required value surfaces as *errors.SchemaError naming the table, the column and,
// for values, the 1-based line of the offending row:
//
//	[SCHEMA] table "ledger": row 12 column "timestamp_at": malformed value "yesterday"
//
// # Timestamps
//
// Timestamps may carry a zone offset. They are normalized to their wall-clock
// reading (offset dropped) before any month or hour bucketing happens.
package dataprocessing
