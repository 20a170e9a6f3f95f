package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildHTTPRoutes registers the http routes with the httprouter.
func (api *API) buildHTTPRoutes() {
	api.staticRouter.GET("/health", api.healthGET)
	api.staticRouter.GET("/report", api.reportGET)
	api.staticRouter.POST("/bootstrap", api.bootstrapPOST)
	api.staticRouter.GET("/stats/:database/:collection", api.statsGET)
	api.staticRouter.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(api.staticGatherer, promhttp.HandlerOpts{}))
}
