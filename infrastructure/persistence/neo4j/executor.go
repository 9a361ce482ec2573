// Package neo4j stores entries as (:Entry) nodes and each relationship pair
// as two directed [:RELATED] edges.
package neo4j

import (
	"context"
	"fmt"

	pkgerrors "chatarchive/pkg/errors"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Runner executes one Cypher statement in its own managed transaction and
// buffers the result.
type Runner interface {
	Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error)
}

// Executor is the driver-backed Runner.
type Executor struct {
	Driver neo4j.DriverWithContext
	DBName string
}

// NewExecutor creates a driver for uri. Connectivity is checked by Verify.
func NewExecutor(uri, username, password, dbName string) (*Executor, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("could not create Neo4j driver: %w", err)
	}
	return &Executor{Driver: driver, DBName: dbName}, nil
}

// Verify checks the connection to the server
func (e *Executor) Verify(ctx context.Context) error {
	return e.Driver.VerifyConnectivity(ctx)
}

// Close releases the driver's connection pool
func (e *Executor) Close(ctx context.Context) error {
	return e.Driver.Close(ctx)
}

// Run executes query through ExecuteQuery, which retries transient failures
// inside a write transaction.
func (e *Executor) Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	return neo4j.ExecuteQuery(ctx, e.Driver, query, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(e.DBName),
	)
}

// EnsureSchema creates the uniqueness constraints on entry ids and on
// detection lock nodes.
func EnsureSchema(ctx context.Context, runner Runner) error {
	for _, stmt := range []string{
		`CREATE CONSTRAINT entry_id IF NOT EXISTS FOR (e:Entry) REQUIRE e.id IS UNIQUE`,
		`CREATE CONSTRAINT detection_lock_entry IF NOT EXISTS FOR (l:DetectionLock) REQUIRE l.entryId IS UNIQUE`,
	} {
		if _, err := runner.Run(ctx, stmt, nil); err != nil {
			return classifyError("ensure schema", err)
		}
	}
	return nil
}

// classifyError maps driver failures onto AppErrors.
func classifyError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if neo4j.IsConnectivityError(err) || neo4j.IsRetryable(err) {
		return pkgerrors.NewUnavailableError("neo4j").WithCause(fmt.Errorf("%s: %w", operation, err))
	}
	return pkgerrors.NewDatabaseError(operation, err)
}
