// Package discovery runs discovery round-trips against the service in the
// background, one at a time.
//
// An Orchestrator owns the connection and the latest Result. The caller
// starts a discovery with StartDiscovery, then polls ConsumeComplete from
// its own loop and reads the Result with ObserveResult when a run finishes.
// The caller never blocks on the socket.
//
//	orch := discovery.New(conn, discovery.WithRedial(dial))
//	if orch.StartDiscovery(ctx, url) {
//		for !orch.ConsumeComplete() {
//			time.Sleep(50 * time.Millisecond)
//		}
//		result := orch.ObserveResult()
//	}
//
// A run that is cancelled, fails, or receives success:false leaves the
// previous Result untouched.
package discovery
