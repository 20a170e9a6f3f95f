package bootstrap

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gitlab.com/NebulousLabs/errors"
)

const (
	// StepValidate checks the logical database's declaration.
	StepValidate Step = "validate"
	// StepDatabase creates the database and its collections.
	StepDatabase Step = "database"
	// StepCredential ensures the service credential.
	StepCredential Step = "credential"
	// StepIndex ensures a single index.
	StepIndex Step = "index"
)

type (
	// Step is a stage of bootstrapping a single logical database.
	Step string

	// Result is the outcome of bootstrapping a single logical database.
	Result struct {
		Database string

		// Err is nil on success. Otherwise Step names the step that failed
		// and, for index failures, Index the index.
		Err   error
		Step  Step
		Index string

		// The writes that were performed.
		CreatedCollections []string
		CreatedCredential  bool
		CreatedIndexes     []string
	}

	// Bootstrapper provisions logical databases on a store.
	Bootstrapper struct {
		staticLogger  *logrus.Entry
		staticMetrics *Metrics
		staticStore   Store
	}
)

// NewBootstrapper creates a new bootstrapper. metrics may be nil.
func NewBootstrapper(store Store, log *logrus.Entry, metrics *Metrics) *Bootstrapper {
	return &Bootstrapper{
		staticLogger:  log,
		staticMetrics: metrics,
		staticStore:   store,
	}
}

// OK returns true if bootstrapping succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Writes returns the number of writes that were performed.
func (r Result) Writes() int {
	n := len(r.CreatedCollections) + len(r.CreatedIndexes)
	if r.CreatedCredential {
		n++
	}
	return n
}

// fail records err as the failure of step.
func (r *Result) fail(step Step, err error) Result {
	r.Step = step
	r.Err = err
	return *r
}

// Bootstrap provisions a logical database: it makes sure the database and its
// collections exist, ensures the service credential and then every declared
// index in order. The first failure aborts the remaining steps. Running
// Bootstrap on a provisioned database performs no writes.
func (b *Bootstrapper) Bootstrap(ctx context.Context, ldb LogicalDatabase) Result {
	res := Result{Database: ldb.Name}
	log := b.staticLogger.WithField("database", ldb.Name)

	// Nothing touches the store before the declaration is known to be valid.
	if err := ldb.Validate(); err != nil {
		return res.fail(StepValidate, err)
	}

	created, err := b.staticStore.EnsureCollections(ctx, ldb.Name, ldb.Collections())
	res.CreatedCollections = created
	b.staticMetrics.addWrites(writeCollection, len(created))
	if err != nil {
		return res.fail(StepDatabase, errors.AddContext(err, "failed to create collections"))
	}
	for _, coll := range created {
		log.WithField("collection", coll).Info("Created collection")
	}

	res.CreatedCredential, err = EnsureCredential(ctx, b.staticStore, ldb.Name, ldb.Credential)
	if err != nil {
		return res.fail(StepCredential, err)
	}
	if res.CreatedCredential {
		b.staticMetrics.addWrites(writeCredential, 1)
		log.WithField("user", ldb.Credential.Username).Info("Created credential")
	}

	for _, spec := range ldb.Indexes {
		name := spec.IndexName()
		created, err := b.ensureIndex(ctx, ldb.Name, spec)
		if err != nil {
			res.Index = name
			return res.fail(StepIndex, errors.AddContext(err, fmt.Sprintf("index %q on %q", name, spec.Collection)))
		}
		if created {
			res.CreatedIndexes = append(res.CreatedIndexes, name)
			b.staticMetrics.addWrites(writeIndex, 1)
			log.WithField("collection", spec.Collection).WithField("index", name).Info("Created index")
		}
	}
	log.WithField("writes", res.Writes()).Debug("Bootstrapped database")
	return res
}

// ensureIndex creates the index declared by spec unless an equivalent one
// exists. It returns true if it created the index.
func (b *Bootstrapper) ensureIndex(ctx context.Context, database string, spec IndexSpec) (bool, error) {
	want := spec.Index()
	existing, err := b.staticStore.Indexes(ctx, database, spec.Collection)
	if err != nil {
		return false, errors.AddContext(err, "failed to list indexes")
	}
	for _, idx := range existing {
		if !idx.SameFields(want) && idx.Name != want.Name {
			continue
		}
		if idx.Equal(want) {
			return false, nil
		}
		return false, errors.AddContext(ErrIndexConflict, fmt.Sprintf("existing index %v conflicts with %v", idx, want))
	}
	if err := b.staticStore.CreateIndex(ctx, database, spec.Collection, want); err != nil {
		return false, errors.AddContext(err, "failed to create index")
	}
	return true, nil
}
