// Package analysis provides the business boundary for Herdsight's KPI
// triage runs. It defines the Service (dedup, lifecycle, async dispatch),
// Pipeline (pre-analysis, domain fan-out, aggregation), Batcher (bounded
// summary fetches), Store interface (persistence), and domain models.
package analysis
