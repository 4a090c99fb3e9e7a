/*
Package resilience guards remote bridge hosts with a circuit breaker.

A session whose remote host stops answering would otherwise make every
guest access wait out its operation timeout. Once the breaker opens, bridge
round trips to that host fail at once and the guest sees a BridgeFault.

# Usage

	breaker := resilience.New("sess_01H...", resilience.Settings{
		Timeout: 5 * time.Second,
		OnStateChange: func(name string, from, to resilience.State) {
			log.Info("host breaker", zap.Stringer("from", from), zap.Stringer("to", to))
		},
	})
	mux.Route("ui", resilience.Guard(remote, breaker))

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience
