// Command imposerd runs the imposition service: the HTTP API, the admin socket
// and the background jobs.
//
// Configuration is read from <root>/config/.core.json and its sibling files.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/zeptools/gw-impose/admin"
	"github.com/zeptools/gw-impose/conf"
	"github.com/zeptools/gw-impose/httpapi"
	"github.com/zeptools/gw-impose/routing"
)

func main() {
	appRoot := flag.String("root", ".", "app root holding config/")
	flag.Parse()

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	core := &conf.Core[string]{}
	if err := setup(core, *appRoot, rootCtx, rootCancel); err != nil {
		log.Printf("[ERROR] setup: %v", err)
		core.ResourceCleanUp()
		os.Exit(1)
	}

	exitCode := 0
	if err := core.StartServices(); err != nil {
		log.Printf("[ERROR] %v", err)
		exitCode = 1
	} else if err = core.WaitServicesDone(); err != nil {
		log.Printf("[ERROR] service failed: %v", err)
		exitCode = 1
	}
	rootCancel()
	core.StopServices()
	core.ResourceCleanUp()
	os.Exit(exitCode)
}

func setup(core *conf.Core[string], appRoot string, rootCtx context.Context, rootCancel context.CancelFunc) error {
	if err := core.BaseInit(appRoot, rootCtx, rootCancel); err != nil {
		return err
	}
	steps := []func() error{
		core.LoadImpositionConf,
		core.PrepareKVDatabase,
		core.PrepareSQLDatabases,
		func() error { core.PrepareJobScheduler(); return nil },
		core.PrepareOutputTokens,
		core.PrepareClientApps,
		core.PrepareStorefrontClient,
		core.PrepareKeyRing,
		core.PrepareSheetCatalog,
		core.PrepareEngine,
		func() error { return core.PrepareThrottleBucketStore(time.Minute, 10*time.Minute) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	router := routing.NewBaseRouter()
	api := &httpapi.API{
		Engine:      core.Engine,
		Tracker:     core.Tracker,
		Catalogs:    core.Catalogs,
		Tokens:      core.OutputTokens,
		UploadLimit: core.Imposition.UploadLimit(),
		PublicURL:   core.Host,
		JobCtx:      rootCtx,
	}
	auth := &routing.BearerAuth{Keys: core.KeyRing, Clients: core, Audience: core.Audience}
	api.Register(router, auth, httpapi.Limits{
		Submit: throttleFor(core, "submit"),
		Read:   throttleFor(core, "read"),
	})
	core.PrepareWebService(router)

	sweepAge, err := core.Imposition.SweepAge()
	if err != nil {
		return err
	}
	deps := admin.Deps{
		Catalogs:      core.Catalogs,
		Tracker:       core.Tracker,
		TempDir:       core.Engine.TempDir,
		SweepAge:      sweepAge,
		ReloadKeys:    core.KeyLoader.Reload,
		ReloadClients: core.PrepareClientApps,
	}
	if core.SheetStore != nil {
		deps.ReloadSheets = core.SheetStore.Reload
	}
	core.PrepareUDSService(admin.Commands(deps))
	return nil
}

// throttleFor returns nil when .core.json has no such bucket group
func throttleFor(core *conf.Core[string], group string) routing.HandlerWrapper {
	if !core.ThrottleGroup(group) {
		return nil
	}
	return &routing.Throttle{Store: core.ThrottleBucketStore, Group: group, TrustProxy: core.TrustProxy}
}
