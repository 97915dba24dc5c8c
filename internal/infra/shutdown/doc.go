// Package shutdown provides graceful shutdown for quota-server.
//
// A Handler waits for SIGINT, SIGTERM or an explicit Trigger, then runs
// the registered hooks in reverse registration order under one deadline.
// Components register a hook right after they start, so teardown mirrors
// startup.
package shutdown
