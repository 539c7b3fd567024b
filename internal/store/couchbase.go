package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/rs/zerolog/log"
)

var _ Store = (*Couchbase)(nil)

// Couchbase implements Store on a Couchbase bucket. Each logical
// collection maps to a named collection in the bucket's default scope.
type Couchbase struct {
	cluster    *gocb.Cluster
	bucket     *gocb.Bucket
	bucketName string
}

// ConnectCouchbase opens the cluster connection and waits for the
// bucket's key-value and query services to come up.
func ConnectCouchbase(url, username, password, bucketName string) (*Couchbase, error) {
	log.Info().
		Str("url", url).
		Str("bucket", bucketName).
		Msg("Creating Couchbase connection")

	cluster, err := gocb.Connect(url, gocb.ClusterOptions{
		Authenticator: gocb.PasswordAuthenticator{Username: username, Password: password},
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to Couchbase cluster")
		return nil, fmt.Errorf("connect cluster: %w", err)
	}

	bucket := cluster.Bucket(bucketName)
	err = bucket.WaitUntilReady(30*time.Second, &gocb.WaitUntilReadyOptions{
		ServiceTypes: []gocb.ServiceType{gocb.ServiceTypeKeyValue, gocb.ServiceTypeQuery},
	})
	if err != nil {
		log.Error().Err(err).Msg("Couchbase bucket not ready")
		return nil, fmt.Errorf("bucket not ready: %w", err)
	}

	log.Info().Msg("Couchbase connection created successfully")
	return &Couchbase{
		cluster:    cluster,
		bucket:     bucket,
		bucketName: bucketName,
	}, nil
}

// Close closes the cluster connection.
func (c *Couchbase) Close() error {
	if c.cluster != nil {
		return c.cluster.Close(nil)
	}
	return nil
}

func (c *Couchbase) collection(name string) *gocb.Collection {
	return c.bucket.Collection(name)
}

// Insert creates a new document, failing with ErrExists on id collision.
func (c *Couchbase) Insert(ctx context.Context, collection, id string, doc interface{}) error {
	_, err := c.collection(collection).Insert(id, doc, &gocb.InsertOptions{Context: ctx})
	if err != nil {
		return mapKVError(err, collection, id)
	}
	return nil
}

// Get reads a document and returns its Cas for conditional replacement.
func (c *Couchbase) Get(ctx context.Context, collection, id string, out interface{}) (Cas, error) {
	res, err := c.collection(collection).Get(id, &gocb.GetOptions{Context: ctx})
	if err != nil {
		return 0, mapKVError(err, collection, id)
	}
	if err := res.Content(out); err != nil {
		return 0, fmt.Errorf("decode document %s/%s: %w", collection, id, err)
	}
	return Cas(res.Cas()), nil
}

// Replace overwrites a document only if its Cas still matches.
func (c *Couchbase) Replace(ctx context.Context, collection, id string, doc interface{}, cas Cas) error {
	_, err := c.collection(collection).Replace(id, doc, &gocb.ReplaceOptions{
		Cas:     gocb.Cas(cas),
		Context: ctx,
	})
	if err != nil {
		return mapKVError(err, collection, id)
	}
	return nil
}

// Remove deletes a document by id.
func (c *Couchbase) Remove(ctx context.Context, collection, id string) error {
	_, err := c.collection(collection).Remove(id, &gocb.RemoveOptions{Context: ctx})
	if err != nil {
		return mapKVError(err, collection, id)
	}
	return nil
}

// Query runs a filtered snapshot read over one collection. Conditions
// are ANDed. Uses request-plus consistency so a query observes all
// writes acknowledged before it started.
func (c *Couchbase) Query(ctx context.Context, collection string, conds ...Cond) ([]Doc, error) {
	var (
		where  []string
		params []interface{}
	)
	for i, cond := range conds {
		if cond.Op != "=" && cond.Op != "<=" {
			return nil, fmt.Errorf("unsupported query operator %q", cond.Op)
		}
		where = append(where, fmt.Sprintf("d.`%s` %s $%d", cond.Field, cond.Op, i+1))
		params = append(params, cond.Value)
	}

	stmt := fmt.Sprintf("SELECT META(d).id AS id, d AS doc FROM `%s`.`_default`.`%s` d", c.bucketName, collection)
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := c.cluster.Query(stmt, &gocb.QueryOptions{
		PositionalParameters: params,
		ScanConsistency:      gocb.QueryScanConsistencyRequestPlus,
		Context:              ctx,
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	var docs []Doc
	for rows.Next() {
		var doc Doc
		if err := rows.Row(&doc); err != nil {
			return nil, fmt.Errorf("decode query row: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	return docs, nil
}

// InTransaction runs fn inside a Couchbase transaction. All writes made
// through the Tx commit atomically; any error rolls everything back.
func (c *Couchbase) InTransaction(ctx context.Context, fn func(tx Tx) error) error {
	var fnErr error
	_, err := c.cluster.Transactions().Run(func(tc *gocb.TransactionAttemptContext) error {
		fnErr = fn(&couchbaseTx{store: c, attempt: tc, reads: map[string]*gocb.TransactionGetResult{}})
		return fnErr
	}, nil)
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return fmt.Errorf("transaction: %w", err)
	}
	return nil
}

// couchbaseTx adapts a TransactionAttemptContext to the Tx interface.
// Replace and Remove need the TransactionGetResult of a prior read, so
// reads are cached per document.
type couchbaseTx struct {
	store   *Couchbase
	attempt *gocb.TransactionAttemptContext
	reads   map[string]*gocb.TransactionGetResult
}

func txKey(collection, id string) string {
	return collection + "/" + id
}

func (t *couchbaseTx) Get(collection, id string, out interface{}) error {
	res, err := t.attempt.Get(t.store.collection(collection), id)
	if err != nil {
		return mapKVError(err, collection, id)
	}
	t.reads[txKey(collection, id)] = res
	if out != nil {
		if err := res.Content(out); err != nil {
			return fmt.Errorf("decode document %s/%s: %w", collection, id, err)
		}
	}
	return nil
}

func (t *couchbaseTx) Insert(collection, id string, doc interface{}) error {
	res, err := t.attempt.Insert(t.store.collection(collection), id, doc)
	if err != nil {
		return mapKVError(err, collection, id)
	}
	t.reads[txKey(collection, id)] = res
	return nil
}

func (t *couchbaseTx) Replace(collection, id string, doc interface{}) error {
	res, ok := t.reads[txKey(collection, id)]
	if !ok {
		if err := t.Get(collection, id, nil); err != nil {
			return err
		}
		res = t.reads[txKey(collection, id)]
	}
	updated, err := t.attempt.Replace(res, doc)
	if err != nil {
		return mapKVError(err, collection, id)
	}
	t.reads[txKey(collection, id)] = updated
	return nil
}

func (t *couchbaseTx) Remove(collection, id string) error {
	res, ok := t.reads[txKey(collection, id)]
	if !ok {
		if err := t.Get(collection, id, nil); err != nil {
			return err
		}
		res = t.reads[txKey(collection, id)]
	}
	if err := t.attempt.Remove(res); err != nil {
		return mapKVError(err, collection, id)
	}
	delete(t.reads, txKey(collection, id))
	return nil
}

func mapKVError(err error, collection, id string) error {
	switch {
	case errors.Is(err, gocb.ErrDocumentNotFound):
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	case errors.Is(err, gocb.ErrCasMismatch):
		return fmt.Errorf("%s/%s: %w", collection, id, ErrCasMismatch)
	case errors.Is(err, gocb.ErrDocumentExists):
		return fmt.Errorf("%s/%s: %w", collection, id, ErrExists)
	default:
		return fmt.Errorf("%s/%s: %w", collection, id, err)
	}
}
