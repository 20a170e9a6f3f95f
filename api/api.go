package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/SkynetLabs/bootstrapper/bootstrap"
	"github.com/SkynetLabs/bootstrapper/database"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

type (
	// Provisioner bootstraps a configuration.
	Provisioner interface {
		Run(ctx context.Context, dbs []bootstrap.LogicalDatabase) bootstrap.Report
	}

	// Store is the part of the store the API reports on.
	Store interface {
		Health() database.Health
		CollectionStats(ctx context.Context, database, collection string) (database.CollectionStats, error)
	}

	// API manages the http API and all of its routes.
	API struct {
		staticConfig   []bootstrap.LogicalDatabase
		staticDB       Store
		staticGatherer prometheus.Gatherer
		staticListener net.Listener
		staticLogger   *logrus.Entry
		staticRouter   *httprouter.Router
		staticRunner   Provisioner
		staticServer   *http.Server

		// report is the report of the latest run. mu also serializes runs.
		report bootstrap.Report
		mu     sync.Mutex
	}

	// Error is the error type returned by the API in case the status code
	// is not a 2xx code.
	Error struct {
		Message string `json:"message"`
		// StatusCode is the status code of the response. It's set by the
		// Client.
		StatusCode int `json:"-"`
	}

	// errorWrap is a helper type for converting an `error` struct to JSON.
	errorWrap struct {
		Message string `json:"message"`
	}
)

// Error implements the error interface for the Error type. It returns only the
// Message field.
func (err Error) Error() string {
	return err.Message
}

// New creates a new API listening on addr. report is the result of the run
// that was performed before the API was started.
func New(log *logrus.Entry, db Store, runner Provisioner, gatherer prometheus.Gatherer, dbs []bootstrap.LogicalDatabase, report bootstrap.Report, addr string) (*API, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	router := httprouter.New()
	router.RedirectTrailingSlash = true
	api := &API{
		staticConfig:   dbs,
		staticDB:       db,
		staticGatherer: gatherer,
		staticListener: l,
		staticLogger:   log,
		staticRouter:   router,
		staticRunner:   runner,
		staticServer: &http.Server{
			Handler: router,

			// Set low timeouts since we expect to only talk to this
			// service from within the cluster.
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       10 * time.Second,
		},
		report: report,
	}
	api.buildHTTPRoutes()
	return api, nil
}

// Address returns the address the API is listening on.
func (api *API) Address() string {
	return api.staticListener.Addr().String()
}

// ListenAndServe starts the API. To unblock this call Shutdown.
func (api *API) ListenAndServe() error {
	return api.staticServer.Serve(api.staticListener)
}

// Shutdown gracefully shuts down the API.
func (api *API) Shutdown(ctx context.Context) error {
	return api.staticServer.Shutdown(ctx)
}

// Report returns the report of the latest run.
func (api *API) Report() bootstrap.Report {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.report
}

// rerun bootstraps the configuration again. Runs never overlap.
func (api *API) rerun(ctx context.Context) bootstrap.Report {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.report = api.staticRunner.Run(ctx, api.staticConfig)
	return api.report
}

// configured returns true if the database is part of the configuration.
func (api *API) configured(name string) bool {
	for _, ldb := range api.staticConfig {
		if ldb.Name == name {
			return true
		}
	}
	return false
}

// WriteError an error to the API caller.
func (api *API) WriteError(w http.ResponseWriter, err error, code int) {
	api.staticLogger.WithError(err).WithField("statuscode", code).Debug("WriteError")

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	encodingErr := json.NewEncoder(w).Encode(errorWrap{Message: err.Error()})
	if encodingErr != nil {
		api.staticLogger.WithError(encodingErr).Error("Failed to encode error response object")
	}
}

// WriteJSON writes the object to the ResponseWriter. If the encoding fails, an
// error is written instead. The Content-Type of the response header is set
// accordingly.
func (api *API) WriteJSON(w http.ResponseWriter, obj interface{}) {
	api.staticLogger.Debug("WriteJSON", obj)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	err := json.NewEncoder(w).Encode(obj)
	if err != nil {
		api.staticLogger.WithError(err).Error("Failed to encode response object")
	}
}
