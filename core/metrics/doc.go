// Package metrics exports relay lifecycle metrics to Prometheus.
//
//	promReg := prometheus.NewRegistry()
//	collector := metrics.NewCollector()
//	if err := collector.Register(promReg); err != nil {
//		return err
//	}
//
//	reg := relay.NewRegistry(relay.WithObserver(collector))
//	srv := metrics.NewServer(metrics.Config{Addr: ":9090"}, promReg, log)
//	g.Go(srv.Run(ctx))
package metrics
