// Package http implements the HTTP handlers of the dashboard service. Handlers
// stay thin: they decode and validate a pkg/contracts/api/v1 request, call
// the services layer and render the result or an RFC 7807 problem.
//
// # Routes
//
// Mounted under /api by the application:
//
//	GET    /health, /health/ready, /health/live, /health/system
//	GET    /version
//	GET    /datasets
//	GET    /datasets/{name}
//	PUT    /datasets/{name}          register rows sent inline
//	DELETE /datasets/{name}
//	POST   /datasets/{name}/load     load JSON or CSV files (paths or a glob pattern) from the data dir
//	GET    /datasets/{name}/retry    load retry budget
//	DELETE /datasets/{name}/retry
//	GET    /files?pattern=           data files under the data dir, dated files first
//	POST   /analytics/timeseries|distribution|histogram|ranges|statistics
//	GET    /analytics/cache
//	DELETE /analytics/cache
//
// The Prometheus scrape endpoint is served at /metrics outside /api.
//
// # Error Handling
//
// Request validation failures answer 400 with the offending fields listed
// under "details". Service errors are mapped by errors.ErrorHandler:
//
//	{
//	    "type": "/errors/analytics/invalid-parameter",
//	    "title": "Invalid Parameter",
//	    "status": 400,
//	    "detail": "bin count must be positive, got -1",
//	    "error_code": "INVALID_PARAMETER",
//	    "parameter": "bin_count"
//	}
package http
