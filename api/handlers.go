package api

import (
	"fmt"
	"net/http"

	"github.com/SkynetLabs/bootstrapper/bootstrap"
	"github.com/SkynetLabs/bootstrapper/database"
	"github.com/julienschmidt/httprouter"
	"gitlab.com/NebulousLabs/errors"
)

// healthGET returns the status of the service
func (api *API) healthGET(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	ph := api.staticDB.Health()
	api.WriteJSON(w, HealthGET{
		DBAlive: ph.Database == nil,
	})
}

// reportGET returns the report of the latest run.
func (api *API) reportGET(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	api.WriteJSON(w, newReportGET(api.Report()))
}

// bootstrapPOST runs the bootstrap again and returns its report. Since the
// bootstrap is idempotent, this is safe to call at any time.
func (api *API) bootstrapPOST(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	api.WriteJSON(w, newReportGET(api.rerun(req.Context())))
}

// statsGET returns the storage statistics of a collection of a configured
// database.
func (api *API) statsGET(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
	db, coll := ps.ByName("database"), ps.ByName("collection")
	if !api.configured(db) {
		api.WriteError(w, fmt.Errorf("database %q is not configured", db), http.StatusNotFound)
		return
	}
	stats, err := api.staticDB.CollectionStats(req.Context(), db, coll)
	if errors.Contains(err, database.ErrCollectionNotFound) {
		api.WriteError(w, err, http.StatusNotFound)
		return
	}
	if errors.Contains(err, bootstrap.ErrConnection) {
		api.WriteError(w, errors.AddContext(err, "failed to fetch stats"), http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		api.WriteError(w, errors.AddContext(err, "failed to fetch stats"), http.StatusInternalServerError)
		return
	}
	api.WriteJSON(w, StatsGET{
		Database:    db,
		Collection:  coll,
		Count:       stats.Count,
		Size:        stats.Size,
		StorageSize: stats.StorageSize,
		Indexes:     stats.Indexes,
		Sharded:     stats.Sharded,
	})
}
