package conf

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/zeptools/gw-impose/apis/storefront"
	"github.com/zeptools/gw-impose/clients"
	"github.com/zeptools/gw-impose/db"
	"github.com/zeptools/gw-impose/db/kvdb"
	_ "github.com/zeptools/gw-impose/db/kvdb/impls/memory" // registers "memory"
	_ "github.com/zeptools/gw-impose/db/kvdb/impls/redis"  // registers "redis"
	"github.com/zeptools/gw-impose/db/sqldb"
	"github.com/zeptools/gw-impose/db/sqldb/impls/mysql"
	"github.com/zeptools/gw-impose/db/sqldb/impls/pgsql"
	"github.com/zeptools/gw-impose/jobs"
	"github.com/zeptools/gw-impose/merge"
	"github.com/zeptools/gw-impose/schedjobs"
	"github.com/zeptools/gw-impose/sec"
	"github.com/zeptools/gw-impose/sheetstore"
	"github.com/zeptools/gw-impose/storages/keystores"
	"github.com/zeptools/gw-impose/svc"
	"github.com/zeptools/gw-impose/throttle"
	"github.com/zeptools/gw-impose/uds"
	"github.com/zeptools/gw-impose/web"
)

// Core - common config
// B = Throttle BucketID Type _ e.g. string, int64, etc
type Core[B comparable] struct {
	AppName             string                                           `json:"app_name"`
	Listen              string                                           `json:"listen"`      // HTTP Server Listen IP:PORT Address
	Host                string                                           `json:"host"`        // Public base URL. Used to build download links
	Audience            string                                           `json:"audience"`    // required aud claim of API tokens. empty = unchecked
	SocketPath          string                                           `json:"socket_path"` // admin unix socket. empty = <AppRoot>/run/<app_name>.sock
	Throttle            map[string]*throttle.BucketConf                  `json:"throttle"`    // bucket group id -> conf
	TrustProxy          bool                                             `json:"trust_proxy"` // behind a reverse proxy setting X-Forwarded-For
	AppRoot             string                                           `json:"-"`           // Filled from compiled paths
	RootCtx             context.Context                                  `json:"-"`           // Global Context with RootCancel
	RootCancel          context.CancelFunc                               `json:"-"`           // CancelFunc for RootCtx
	UDSService          *uds.Service                                     `json:"-"`           // PrepareUDSService
	JobScheduler        *schedjobs.Scheduler                             `json:"-"`           // PrepareJobScheduler
	WebService          *web.Service                                     `json:"-"`           // PrepareWebService
	ThrottleBucketStore *throttle.BucketStore[B]                         `json:"-"`           // PrepareThrottleBucketStore
	BackendHttpClient   *http.Client                                     `json:"-"`           // for requests to external apis
	Imposition          ImpositionConf                                   `json:"-"`           // LoadImpositionConf
	KVDBConf            kvdb.Conf                                        `json:"-"`           // loadKVDBConf
	BackendKVDBClient   kvdb.Client                                      `json:"-"`           // PrepareKVDatabase
	SQLDBConfs          map[string]*sqldb.Conf                           `json:"-"`           // loadSQLDBConfs
	BackendSQLDBClients map[string]sqldb.Client                          `json:"-"`           // prepareSQLDBClients
	ClientApps          atomic.Pointer[map[string]clients.ClientAppConf] `json:"-"`           // [Hot Reload] PrepareClientApps
	StorefrontClient    *storefront.Client                               `json:"-"`           // PrepareStorefrontClient
	KeyRing             *sec.KeyRing                                     `json:"-"`           // PrepareKeyRing
	KeyLoader           *keystores.Loader                                `json:"-"`           // PrepareKeyRing
	OutputTokens        *sec.OutputTokens                                `json:"-"`           // PrepareOutputTokens
	SheetStore          *sheetstore.Store                                `json:"-"`           // PrepareSheetCatalog. nil = static catalog
	Catalogs            jobs.CatalogSource                               `json:"-"`           // PrepareSheetCatalog
	Tracker             jobs.Tracker                                     `json:"-"`           // PrepareEngine
	Engine              *jobs.Engine                                     `json:"-"`           // PrepareEngine

	services []svc.Service // Services to Manage
	done     chan error
}

// BaseInit - 1st step for initialization
// 1. set AppRoot
// 2. load config/.core.json file
// 3. prepare base fields
// 4. Start ShutdownSignalListener
func (c *Core[B]) BaseInit(appRoot string, rootCtx context.Context, rootCancel context.CancelFunc) error {
	c.AppRoot = appRoot
	if err := c.readConfFile(".core.json", c); err != nil {
		return err
	}
	c.RootCtx = rootCtx
	c.RootCancel = rootCancel
	c.BackendHttpClient = &http.Client{}
	c.startShutdownSignalListener()
	return nil
}

func (c *Core[B]) confPath(name string) string {
	return filepath.Join(c.AppRoot, "config", name)
}

func (c *Core[B]) readConfFile(name string, v any) error {
	confBytes, err := os.ReadFile(c.confPath(name)) // ([]byte, error)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(confBytes, v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// readOptionalConfFile reports false when the file does not exist
func (c *Core[B]) readOptionalConfFile(name string, v any) (bool, error) {
	err := c.readConfFile(name, v)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("[INFO][CORE] %s not found, feature off", name)
		return false, nil
	}
	return err == nil, err
}

func (c *Core[B]) AddService(s svc.Service) {
	log.Printf("[INFO] adding service: %s", s.Name())
	c.services = append(c.services, s)
	log.Printf("[INFO] total services: %d", len(c.services))
}

func (c *Core[B]) StartServices() error {
	c.done = make(chan error, len(c.services))
	for _, s := range c.services {
		err := s.Start()
		if err != nil {
			return fmt.Errorf("start %s: %w", s.Name(), err)
		}
		go func(s svc.Service) {
			err := <-s.Done()
			c.done <- err
		}(s) // pass the loop var to the param. otherwise, they are captured inside goroutine lazily
	}
	return nil
}

// WaitServicesDone returns the first service error, or nil once every service ended cleanly
func (c *Core[B]) WaitServicesDone() error {
	for i := 0; i < len(c.services); i++ {
		if err := <-c.done; err != nil {
			return err
		}
	}
	return nil
}

func (c *Core[B]) StopServices() {
	for _, s := range c.services {
		s.Stop()
	}
}

var once sync.Once

func (c *Core[B]) startShutdownSignalListener() {
	once.Do(func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigs
			log.Printf("[INFO] got signal [%s]. shutting down app [%s] ...", sig, c.AppName)
			c.RootCancel() // broadcast to all child services via Context.Done()
		}()
	})
	log.Printf("[INFO][CORE] shutdown signal listener started")
}

func (c *Core[B]) PrepareJobScheduler() {
	c.JobScheduler = schedjobs.NewScheduler(c.RootCtx)
	c.JobScheduler.OnCronJobFinished = func(job *schedjobs.CronJob, err error) {
		if err != nil {
			log.Printf("[ERROR][SCHED] cron job %s: %v", job.ID, err)
		}
	}
	c.JobScheduler.OnOneTimeJobFinished = func(job *schedjobs.OneTimeJob, err error) {
		if err != nil {
			log.Printf("[ERROR][SCHED] job %s: %v", job.ID, err)
		}
	}
	c.AddService(c.JobScheduler)
}

func (c *Core[B]) PrepareUDSService(cmdMap map[string]uds.CmdHnd) {
	sockPath := c.SocketPath
	if sockPath == "" {
		sockPath = filepath.Join(c.AppRoot, "run", c.AppName+".sock")
	}
	c.UDSService = uds.NewService(c.RootCtx, sockPath, cmdMap)
	c.AddService(c.UDSService)
}

func (c *Core[B]) PrepareWebService(router http.Handler) {
	c.WebService = web.NewService(c.RootCtx, c.Listen, router)
	c.AddService(c.WebService)
}

// PrepareThrottleBucketStore builds the store with every group from .core.json
func (c *Core[B]) PrepareThrottleBucketStore(cleanupCycle time.Duration, cleanupOlderThan time.Duration) error {
	c.ThrottleBucketStore = throttle.NewBucketStore[B](c.RootCtx, cleanupCycle, cleanupOlderThan)
	for id, bc := range c.Throttle {
		if err := bc.Prepare(); err != nil {
			return fmt.Errorf("throttle group %s: %w", id, err)
		}
		c.ThrottleBucketStore.SetBucketGroup(id, bc)
	}
	c.AddService(c.ThrottleBucketStore)
	return nil
}

// ThrottleGroup reports whether .core.json configures the group
func (c *Core[B]) ThrottleGroup(id string) bool {
	_, ok := c.Throttle[id]
	return ok
}

func (c *Core[B]) LoadImpositionConf() error {
	if err := c.readConfFile(".imposition.json", &c.Imposition); err != nil {
		return err
	}
	for _, dir := range []string{c.Imposition.TempDir, c.Imposition.OutputDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}
	return nil
}

// PrepareKVDatabase builds the job status store.
// Without .kv-databases.json the in-process memory store is used.
func (c *Core[B]) PrepareKVDatabase() error {
	found, err := c.readOptionalConfFile(".kv-databases.json", &c.KVDBConf)
	if err != nil {
		return err
	}
	if !found {
		c.KVDBConf = kvdb.Conf{Type: "memory"}
	}
	client, err := kvdb.New(&c.KVDBConf)
	if err != nil {
		return err
	}
	if err = client.Init(); err != nil {
		return err
	}
	c.BackendKVDBClient = client
	return nil
}

// PrepareSQLDatabases builds one client per entry of .sql-databases.json, if present
func (c *Core[B]) PrepareSQLDatabases() error {
	c.SQLDBConfs = make(map[string]*sqldb.Conf)
	c.BackendSQLDBClients = make(map[string]sqldb.Client)
	if _, err := c.readOptionalConfFile(".sql-databases.json", &c.SQLDBConfs); err != nil {
		return err
	}
	if len(c.SQLDBConfs) == 0 {
		return nil
	}

	// Registering Supported Implementations
	pgsql.Register()
	mysql.Register()

	for dbName, sqlDBConf := range c.SQLDBConfs {
		dbClient, err := sqldb.New(sqlDBConf.Type, sqlDBConf)
		if err != nil {
			return err
		}
		if err = dbClient.Init(); err != nil {
			return fmt.Errorf("sql database %s: %w", dbName, err)
		}
		c.BackendSQLDBClients[dbName] = dbClient
	}
	return nil
}

// PrepareClientApps prepares ClientApps
// building a new clients.ClientAppConf map and swaps the atomic pointer for the ClientApps
// So, this can be invoked to Hot-Reload the ClientApps
func (c *Core[B]) PrepareClientApps() error {
	var confMap map[string]clients.ClientAppConf
	if err := c.readConfFile(".clients.json", &confMap); err != nil {
		return err
	}
	c.ClientApps.Store(&confMap) // atomic store
	log.Printf("[INFO][CORE] %d api clients loaded", len(confMap))
	return nil
}

// GetClientAppConf reads a clients.ClientAppConf
// Uses a single atomic cpu instruction
func (c *Core[B]) GetClientAppConf(id string) (clients.ClientAppConf, bool) {
	confMapPtr := c.ClientApps.Load()
	if confMapPtr == nil {
		return clients.ClientAppConf{}, false
	}
	conf, ok := (*confMapPtr)[id]
	conf.ID = id
	return conf, ok
}

// PrepareStorefrontClient to post job results to the storefront API, if configured
// Prerequisite: BackendHttpClient, OutputTokens
func (c *Core[B]) PrepareStorefrontClient() error {
	var sfConf storefront.Conf
	found, err := c.readOptionalConfFile(".storefront-api.json", &sfConf)
	if err != nil || !found {
		return err
	}
	c.StorefrontClient = &storefront.Client{
		Client:    c.BackendHttpClient,
		Conf:      &sfConf,
		Tokens:    c.OutputTokens,
		PublicURL: c.Host,
		Notify: func(clientID string) bool {
			app, ok := c.GetClientAppConf(clientID)
			return ok && app.Callback
		},
	}
	return nil
}

// PrepareKeyRing loads the bearer verification keys and schedules their refresh
// Prerequisite: PrepareJobScheduler, PrepareStorefrontClient (for storefront_jwks)
func (c *Core[B]) PrepareKeyRing() error {
	var ksConf keystores.Conf
	if err := c.readConfFile(".keystores.json", &ksConf); err != nil {
		return err
	}
	var remote func(ctx context.Context) (*sec.JWKS, error)
	if c.StorefrontClient != nil {
		remote = c.StorefrontClient.GetJWKS
	} else if ksConf.StorefrontJWKS {
		return errors.New("storefront_jwks needs .storefront-api.json")
	}
	c.KeyRing = &sec.KeyRing{}
	c.KeyLoader = keystores.NewLoader(ksConf, c.KeyRing, remote)
	if _, err := c.KeyLoader.Reload(c.RootCtx); err != nil {
		return err
	}
	if c.JobScheduler != nil {
		c.JobScheduler.AddCronJob(schedjobs.CronSpec{Minutes: ksConf.RefreshMinutes()}.NewCronJob("reload-keys", func() error {
			_, err := c.KeyLoader.Reload(c.RootCtx)
			return err
		}))
	}
	return nil
}

func (c *Core[B]) PrepareOutputTokens() error {
	var tokConf sec.OutputTokenConf
	if err := c.readConfFile(".output-tokens.json", &tokConf); err != nil {
		return err
	}
	tokens, err := tokConf.Build()
	if err != nil {
		return err
	}
	c.OutputTokens = tokens
	return nil
}

// PrepareSheetCatalog serves the catalog from SQL when sheet_catalog.db is set,
// else the fixed list in .imposition.json
// Prerequisite: LoadImpositionConf, PrepareSQLDatabases
func (c *Core[B]) PrepareSheetCatalog() error {
	fixed := c.Imposition.Catalog()
	scConf := c.Imposition.SheetCatalog
	if scConf.DB == "" {
		c.Catalogs = fixed
		return nil
	}
	client, ok := c.BackendSQLDBClients[scConf.DB]
	if !ok {
		return fmt.Errorf("sheet_catalog: no sql database %q", scConf.DB)
	}
	poll, err := scConf.Poll()
	if err != nil {
		return err
	}
	c.SheetStore = sheetstore.New(c.RootCtx, client, fixed, poll)
	if scConf.CreateSchema {
		if err = c.SheetStore.EnsureSchema(c.RootCtx); err != nil {
			return fmt.Errorf("sheet_catalog schema: %w", err)
		}
	}
	c.Catalogs = c.SheetStore
	c.AddService(c.SheetStore)
	return nil
}

// PrepareEngine wires the job engine
// Prerequisite: PrepareSheetCatalog, PrepareKVDatabase, PrepareJobScheduler
// Also schedules the temp sweep
func (c *Core[B]) PrepareEngine() error {
	merger, err := merge.New(c.Imposition.Merger)
	if err != nil {
		return err
	}
	statusTTL, err := c.Imposition.StatusTTLDuration()
	if err != nil {
		return err
	}
	retention, err := c.Imposition.Retention()
	if err != nil {
		return err
	}
	c.Tracker = jobs.NewKVTracker(c.BackendKVDBClient, statusTTL, c.Imposition.RecentJobs)
	c.Engine = jobs.NewEngine(c.Catalogs, merger, c.Imposition.Conf)
	c.Engine.Tracker = c.Tracker
	if retention > 0 && c.JobScheduler != nil {
		c.Engine.Notifiers = append(c.Engine.Notifiers, &outputExpiry{scheduler: c.JobScheduler, retention: retention, now: time.Now})
	}
	if c.StorefrontClient != nil {
		c.Engine.Notifiers = append(c.Engine.Notifiers, c.StorefrontClient)
	}
	if c.JobScheduler != nil {
		sweepAge, err := c.Imposition.SweepAge()
		if err != nil {
			return err
		}
		// hourly, off the top of the hour
		c.JobScheduler.AddCronJob(schedjobs.CronSpec{Minutes: []int{17}}.NewCronJob("sweep-temp", func() error {
			n, err := jobs.SweepTemp(c.Engine.TempDir, sweepAge, time.Now())
			if n > 0 {
				log.Printf("[INFO][SWEEP] removed %d stale temp files", n)
			}
			return err
		}))
	}
	log.Printf("[INFO][CORE] engine ready: merger=%s temp=%s out=%s", merger.Name(), c.Engine.TempDir, c.Engine.OutputDir)
	return nil
}

// ResourceCleanUp waits for jobs to wind down, then closes database clients
func (c *Core[B]) ResourceCleanUp() {
	log.Println("[INFO] App Resource Cleaning Up...")
	if c.Engine != nil {
		c.Engine.Wait()
	}
	if c.BackendKVDBClient != nil {
		db.CloseClient("kv:"+c.KVDBConf.Type, c.BackendKVDBClient)
	}
	for name, sqlDBClient := range c.BackendSQLDBClients {
		db.CloseClient("sql:"+name, sqlDBClient)
	}
	log.Println("[INFO] App Resource Cleanup Complete")
}
