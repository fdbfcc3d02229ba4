// Package aggregate turns raw forecast and presence rows into the statistics
// shown on the admin dashboard: per-slot attendance records with drill-down
// lists, period metrics, per-user meal details and the CSV export of a slot.
//
// Every function here is pure. Callers load rows from the store, build a
// Directory for enrichment and pass both in; nothing is fetched or cached.
package aggregate
