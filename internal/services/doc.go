// Package services implements the business logic layer of the dashboard.
// It sits between the HTTP handlers / CLI and the analytics engine, owning
// the dataset registry, the shared result cache and the load retry state.
//
// # Available Services
//
//	- DashboardService: registers and loads datasets, answers time series,
//	  distribution, histogram, range and statistics queries through the
//	  result cache
//	- HealthService: health, readiness and liveness checks
//
// # Caching
//
// Every query is memoized in a single bounded LRU cache. Keys combine the
// operation, the dataset name and version, and the query parameters, so
// re-registering a dataset naturally retires its cached results:
//
//	ts, cached, err := svc.TimeSeries(ctx, services.TimeSeriesQuery{
//	    Dataset:      "sales",
//	    DateColumn:   "date",
//	    ValueColumns: []string{"amount"},
//	})
//
// # Loading
//
// LoadDataset reads rows from a loader.Source. Transient failures are
// counted per dataset by a retry.Manager; once the budget is spent further
// loads fail fast with a RETRIES_EXHAUSTED error until ResetRetry is called
// or a load succeeds.
//
// # Error Handling
//
// Services return *errors.AppError values that the HTTP error handler maps
// to problem responses:
//
//	- INVALID_PARAMETER for bad query parameters
//	- NOT_FOUND for unknown datasets or files
//	- TRANSIENT_LOAD and RETRIES_EXHAUSTED from loads
package services
