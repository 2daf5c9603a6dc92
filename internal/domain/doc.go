// Package domain holds the itinerary data model and the error taxonomy of
// the export pipeline. Keep this package free of transport (HTTP) and
// infrastructure (Redis/Chrome/Postgres) concerns.
package domain
