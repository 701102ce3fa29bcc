// Package app wires the dashboard server together and manages its lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from environment and config file
//	2. Initialize logging and OpenTelemetry
//	3. Open the retry state store (memory or SQLite)
//	4. Build the result cache, dashboard and health services
//	5. Set up the chi router, middleware and handlers
//	6. Configure the HTTP server
//
// # Usage
//
//	a, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return a.Run(context.Background())
//
// Run blocks until SIGINT or SIGTERM and then shuts the server down, flushes
// telemetry and closes the retry store. Initialization errors are returned to
// the caller; the package never calls os.Exit.
package app
