// Package platform is the runtime that hosts fan entities.
//
// A Platform turns config entries into fan.Entity values and runs all of
// their device I/O on an Executor. Calls against one entity are serialized;
// different entities proceed in parallel. A Scheduler refreshes every entity
// on a fixed interval.
//
//	exec := platform.NewExecutor(platform.DefaultWorkers, logging.Named("executor"))
//	defer exec.Close()
//
//	p := platform.New(exec)
//	for _, entry := range registry.ListEntries() {
//	    p.SetupEntry(ctx, entry)
//	}
//	go platform.NewScheduler(p, 30*time.Second, nil).Run(ctx)
package platform
