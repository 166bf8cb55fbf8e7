// Package server runs the relay HTTP API with graceful shutdown.
//
// It wraps http.Server with functional options and an errgroup-friendly Run:
//
//	srv, err := server.NewFromConfig(cfg, server.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	g.Go(srv.Run(ctx, handler))
//
// The default write timeout is zero because listen responses are long-lived
// streams. Set SERVER_WRITE_TIMEOUT only when no streaming routes are mounted.
package server
