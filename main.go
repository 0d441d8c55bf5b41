// Package main serves as the entry point for ingestctl, the ingestion and
// indexing engine's command-line interface. It wires the scan/hashplan/process
// pipelines, the read-side HTTP query API, and the taskrt worker into one
// binary with a small, operator-facing command surface.
//
// CLI Architecture:
//
//	The application implements a hierarchical command structure:
//	- Root command with global flags and configuration (postgres/redis/amqp
//	  connection settings, registered datasources)
//	- serve: run the read-side HTTP query API
//	- worker: run a taskrt worker servicing the scan/hashplan/process queues
//	- migrate: apply row-store and search-index schema for a collection
//	- scan: kick off a one-shot ingestion run against a datasource
//
// Error Handling Strategy:
//
//	Comprehensive error management and user feedback:
//	- Structured error reporting with context and suggestions
//	- Detailed logging for debugging and audit trails
//	- Exit code management for automation and scripting
//
// Example Usage:
//
//	ingestctl serve --port 8080 --jwt-secret s3cr3t
//	ingestctl worker --postgres-url postgres://...
//	ingestctl migrate my-collection
//	ingestctl scan my-collection my-datasource
package main

import (
	"log"
	"os"

	"github.com/liquidinvestigations/hoover3-sub000/cli"
)

// main parses command-line arguments, routes to the requested subcommand,
// and exits 1 on any command error. Running with no subcommand prints help
// rather than starting a server.
func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		log.Fatal(err)
		os.Exit(1)
	}
}
