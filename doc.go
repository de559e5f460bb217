// Package enginegate mediates all access from a VPN control-plane tool to
// its container engine. It bounds concurrent engine connections through a
// lease pool and eliminates redundant queries through a class-partitioned
// TTL cache, so installer and menu front ends can hammer status, stats, and
// list queries without overwhelming the engine daemon.
//
// # Basic Usage
//
//	import "github.com/xrayctl/enginegate"
//
//	ctx := context.Background()
//
//	gw := enginegate.New()
//	defer gw.Close()
//
//	status, err := gw.Status(ctx, "xray-vless")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(status) // "running"
//
//	if err := gw.Restart(ctx, "xray-vless"); err != nil {
//	    log.Fatal(err)
//	}
//
// # Caching
//
// Read results are cached per data class with independent freshness
// windows: status 30s, stats 5s, list 60s by default. Mutations (Start,
// Stop, Restart) invalidate every cached class for the target container
// before returning, so a read issued after a mutation returns never
// observes pre-mutation state.
//
// # Connection bounding
//
// At most MaxConnections engine connections are open at once (default 10).
// When all are in use, operations wait up to the connection timeout for one
// to free, then fail with ErrAcquireTimeout. Idle connections are health
// checked and eventually closed by a background monitor.
//
// # Custom engines and testing
//
// The engine is reached through the narrow EngineClient interface. By
// default connections go to the Docker daemon from the environment; pass
// WithDialer to target another engine or to inject a test double:
//
//	gw := enginegate.New(
//	    enginegate.WithDialer(func(ctx context.Context) (enginegate.EngineClient, error) {
//	        return fakeEngine, nil
//	    }),
//	)
package enginegate
