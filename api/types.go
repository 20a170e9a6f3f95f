package api

import "github.com/SkynetLabs/bootstrapper/bootstrap"

// These are the response types used by the API.
type (
	// HealthGET is the type returned by the /health endpoint.
	HealthGET struct {
		DBAlive bool `json:"dbAlive"`
	}

	// ReportGET is the type returned by the /report and /bootstrap
	// endpoints.
	ReportGET struct {
		OK        bool             `json:"ok"`
		ExitCode  int              `json:"exitCode"`
		Databases []DatabaseReport `json:"databases"`
	}

	// DatabaseReport is the outcome of a single logical database.
	DatabaseReport struct {
		Name               string   `json:"name"`
		OK                 bool     `json:"ok"`
		Kind               string   `json:"kind,omitempty"`
		Step               string   `json:"step,omitempty"`
		Index              string   `json:"index,omitempty"`
		Error              string   `json:"error,omitempty"`
		CreatedCollections []string `json:"createdCollections,omitempty"`
		CreatedCredential  bool     `json:"createdCredential"`
		CreatedIndexes     []string `json:"createdIndexes,omitempty"`
	}

	// StatsGET is the type returned by the /stats endpoint.
	StatsGET struct {
		Database    string `json:"database"`
		Collection  string `json:"collection"`
		Count       int64  `json:"count"`
		Size        int64  `json:"size"`
		StorageSize int64  `json:"storageSize"`
		Indexes     int64  `json:"indexes"`
		Sharded     bool   `json:"sharded"`
	}
)

// newReportGET converts a report into its JSON representation.
func newReportGET(report bootstrap.Report) ReportGET {
	rg := ReportGET{
		OK:        report.OK(),
		ExitCode:  report.ExitCode(),
		Databases: make([]DatabaseReport, 0, len(report.Results)),
	}
	for _, res := range report.Results {
		dr := DatabaseReport{
			Name:               res.Database,
			OK:                 res.OK(),
			CreatedCollections: res.CreatedCollections,
			CreatedCredential:  res.CreatedCredential,
			CreatedIndexes:     res.CreatedIndexes,
		}
		if !res.OK() {
			dr.Kind = bootstrap.Kind(res.Err)
			dr.Step = string(res.Step)
			dr.Index = res.Index
			dr.Error = res.Err.Error()
		}
		rg.Databases = append(rg.Databases, dr)
	}
	return rg
}
