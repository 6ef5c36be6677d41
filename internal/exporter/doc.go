// Package exporter writes the fact table and its views to files and external sinks.
//
// WriteFacts and ReadFacts define the CSV form of the fact table:
//
//	timestamp,month,user_id,status,market_pair,usd_volume
//
// Synthetic churn rows render timestamp and market_pair as "-" and a missing usd_volume is
// an empty field.
//
// CSVWriter writes files under an output directory through a temporary file and a rename,
// optionally with a UTF-8 BOM for Excel.
// WorkbookWriter writes an .xlsx with a Facts sheet and a Cohorts summary sheet.
// SheetsPublisher replaces the contents of a Google Sheet with the fact table.
package exporter
