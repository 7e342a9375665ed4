// Package geneasync provides the main entry point for reconciling an external
// genealogy site into a local family tree database.
//
// A Client wires a local store, an external source and the reconciliation
// engine together. Each Import walks the family graph from one external
// reference and merges every visited person and union into the store.
//
// Example usage:
//
//	client, err := geneasync.New(ctx,
//	    geneasync.WithDatabase("family.db"),
//	    geneasync.WithDelay(2*time.Second, 5*time.Second),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	result, err := client.Import(ctx, walker.Config{
//	    Ascendants: true,
//	    MaxLevel:   2,
//	    StartRef:   "jdupont?lang=fr&n=dupont&p=jean",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Summary())
package geneasync

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/agentstation/geneasync/internal/sources/geneanet"
	"github.com/agentstation/geneasync/internal/store/memory"
	"github.com/agentstation/geneasync/internal/store/sqlite"
	"github.com/agentstation/geneasync/internal/transport"
	"github.com/agentstation/geneasync/pkg/errors"
	"github.com/agentstation/geneasync/pkg/logging"
	"github.com/agentstation/geneasync/pkg/reconciler"
	"github.com/agentstation/geneasync/pkg/sources"
	"github.com/agentstation/geneasync/pkg/store"
	"github.com/agentstation/geneasync/pkg/walker"
)

// Compile-time interface check to ensure proper implementation.
var _ Client = (*client)(nil)

// Importer runs reconciliation walks.
type Importer interface {
	// Import walks the graph from cfg.StartRef. The result is returned even
	// when the run aborts, so the caller can report what was done.
	Import(ctx context.Context, cfg walker.Config) (*walker.Result, error)
}

// Client reconciles an external source into a local store.
type Client interface {

	// Importer runs reconciliation walks
	Importer

	// Persistence writes run artifacts to disk
	Persistence

	// Hooks provides access to event callback registration
	Hooks

	// Store returns the local store
	Store() store.Store

	// Close releases the local store, saving it when it is file backed
	Close() error
}

// client is the internal implementation of the Client interface.
type client struct {

	// options are the configured options for the client
	options *options

	// runs are serialized: the store has a single writer
	mu     sync.Mutex
	store  store.Store
	source sources.Source

	hooks *hooks // Event hooks for run results
}

// New creates a new Client instance with the given options.
func New(ctx context.Context, opts ...Option) (Client, error) {
	options, err := defaults().apply(opts...)
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx, options)
	if err != nil {
		return nil, err
	}
	src, err := openSource(options)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	logging.FromContext(ctx).Debug().
		Str("source", src.ID().String()).
		Str("database", options.databasePath).
		Dur("min_delay", options.minDelay).
		Dur("max_delay", options.maxDelay).
		Msg("Client ready")

	return &client{
		options: options,
		store:   st,
		source:  src,
		hooks:   newHooks(),
	}, nil
}

// Import runs one walk and triggers the hooks for what it did.
func (c *client) Import(ctx context.Context, cfg walker.Config) (*walker.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg.Force = cfg.Force || c.options.force
	rec, err := reconciler.New(c.store, c.source,
		reconciler.WithForce(cfg.Force),
		reconciler.WithProvenance(c.options.provenance),
	)
	if err != nil {
		return nil, err
	}

	result, err := walker.New(rec, cfg).Run(ctx)
	c.hooks.triggerResult(result)
	return result, err
}

func (c *client) Store() store.Store {
	return c.store
}

func (c *client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Close(); err != nil {
		return errors.WrapResource("close", "database", c.options.databasePath, err)
	}
	return nil
}

func (c *client) OnPersonCreated(fn PersonCreatedHook) { c.hooks.OnPersonCreated(fn) }
func (c *client) OnPersonUpdated(fn PersonUpdatedHook) { c.hooks.OnPersonUpdated(fn) }
func (c *client) OnFamilyCreated(fn FamilyCreatedHook) { c.hooks.OnFamilyCreated(fn) }

// openStore returns the configured store. Without a database path the store
// lives in memory for the duration of the process.
func openStore(ctx context.Context, o *options) (store.Store, error) {
	if o.store != nil {
		return o.store, nil
	}
	path := o.databasePath
	switch {
	case path == "":
		return memory.New(), nil
	case isSQLite(path):
		s, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		s, err := memory.Open(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func isSQLite(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	default:
		return false
	}
}

// openSource returns the configured source wrapped with retries and, unless
// it replays a fixture file, the politeness throttle.
func openSource(o *options) (sources.Source, error) {
	src := o.source
	throttled := true
	switch {
	case src != nil:
	case o.fixturePath != "":
		f, err := sources.LoadFixture(o.fixturePath)
		if err != nil {
			return nil, err
		}
		src, throttled = f, false
	default:
		tc := transport.New(transport.AuthenticatorFor(o.cookie)).WithUserAgent(o.userAgent)
		if o.httpClient != nil {
			tc.WithHTTPClient(o.httpClient)
		}
		src = geneanet.New(geneanet.WithBaseURL(o.baseURL), geneanet.WithClient(tc))
	}

	middlewares := []sources.Middleware{sources.WithRetry(o.retry)}
	if throttled {
		middlewares = append(middlewares, sources.WithThrottle(sources.NewThrottle(o.minDelay, o.maxDelay)))
	}
	return sources.Chain(src, middlewares...), nil
}
