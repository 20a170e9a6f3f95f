package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

type (
	// Report is the aggregate outcome of a run, one result per logical
	// database in configuration order.
	Report struct {
		Results []Result
	}

	// Runner bootstraps a whole configuration.
	Runner struct {
		staticBootstrapper *Bootstrapper
		staticLogger       *logrus.Entry
		staticMetrics      *Metrics
	}
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
)

// NewRunner creates a new runner on top of store. metrics may be nil.
func NewRunner(store Store, log *logrus.Entry, metrics *Metrics) *Runner {
	return &Runner{
		staticBootstrapper: NewBootstrapper(store, log, metrics),
		staticLogger:       log,
		staticMetrics:      metrics,
	}
}

// Run bootstraps the logical databases one after another. Every database is
// validated before the first one touches the store. A failing database
// doesn't stop the run, the failure is recorded in the report instead.
func (r *Runner) Run(ctx context.Context, dbs []LogicalDatabase) Report {
	report := Check(dbs)
	for _, res := range report.Failed() {
		r.staticMetrics.observe(res)
		r.logFailure(res)
	}
	if err := ValidateConfiguration(dbs); err != nil {
		return report
	}
	for i, ldb := range dbs {
		if !report.Results[i].OK() {
			continue
		}
		res := r.staticBootstrapper.Bootstrap(ctx, ldb)
		r.staticMetrics.observe(res)
		if !res.OK() {
			r.logFailure(res)
		}
		report.Results[i] = res
	}
	return report
}

// logFailure logs the failure of a single database.
func (r *Runner) logFailure(res Result) {
	log := r.staticLogger.WithError(res.Err).WithField("step", res.Step)
	if res.Database == "" {
		log.Error("Refusing to run invalid configuration")
		return
	}
	log.WithField("database", res.Database).Error("Failed to bootstrap database")
}

// Check validates the configuration without touching a store. The report
// contains one result per database.
func Check(dbs []LogicalDatabase) Report {
	if err := ValidateConfiguration(dbs); err != nil {
		return Report{Results: []Result{{Err: err, Step: StepValidate}}}
	}
	var report Report
	for _, ldb := range dbs {
		res := Result{Database: ldb.Name}
		if err := ldb.Validate(); err != nil {
			res.fail(StepValidate, err)
		}
		report.Results = append(report.Results, res)
	}
	return report
}

// FailRemaining returns a copy of the report in which every database that
// hasn't failed yet failed at step with err. It is used when the store
// can't be reached at all.
func (r Report) FailRemaining(step Step, err error) Report {
	var failed Report
	for _, res := range r.Results {
		if res.OK() {
			res.fail(step, err)
		}
		failed.Results = append(failed.Results, res)
	}
	return failed
}

// OK returns true if every database succeeded.
func (r Report) OK() bool {
	for _, res := range r.Results {
		if !res.OK() {
			return false
		}
	}
	return len(r.Results) > 0
}

// Failed returns the results of the databases that failed.
func (r Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if !res.OK() {
			failed = append(failed, res)
		}
	}
	return failed
}

// ExitCode returns the process exit code for the report. It is ExitOK if every
// database succeeded and otherwise the code of the first failure.
func (r Report) ExitCode() int {
	if len(r.Results) == 0 {
		return ExitConfiguration
	}
	for _, res := range r.Results {
		if !res.OK() {
			return ExitCode(res.Err)
		}
	}
	return ExitOK
}

// Result returns the result of the named database.
func (r Report) Result(database string) (Result, bool) {
	for _, res := range r.Results {
		if res.Database == database {
			return res, true
		}
	}
	return Result{}, false
}

// String returns the report line of a single database.
func (r Result) String() string {
	name := r.Database
	if name == "" {
		name = "configuration"
	}
	if !r.OK() {
		where := string(r.Step)
		if r.Index != "" {
			where = fmt.Sprintf("%s %q", r.Step, r.Index)
		}
		return fmt.Sprintf("%s: %s %s at %s: %v", name, failColor.Sprint("FAILED"), Kind(r.Err), where, r.Err)
	}
	var writes []string
	if n := len(r.CreatedCollections); n > 0 {
		writes = append(writes, plural(n, "collection", "collections")+" created")
	}
	if r.CreatedCredential {
		writes = append(writes, "credential created")
	}
	if n := len(r.CreatedIndexes); n > 0 {
		writes = append(writes, plural(n, "index", "indexes")+" created")
	}
	if len(writes) == 0 {
		writes = append(writes, "up to date")
	}
	return fmt.Sprintf("%s: %s (%s)", name, okColor.Sprint("ok"), strings.Join(writes, ", "))
}

// WriteTo writes one line per database to w.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, res := range r.Results {
		n, err := fmt.Fprintln(w, res.String())
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// plural formats a count with the matching noun.
func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
