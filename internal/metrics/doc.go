// Package metrics exposes provider activity as Prometheus metrics.
//
// A Collector is passed to a provider as its Observer and counts
// submissions, rejections and status transitions. Its Handler serves the
// metrics for scraping; `forage-blocks run --metrics-addr` mounts it at
// /metrics.
package metrics
