/*
Package observability provides Prometheus instrumentation for reviewlink.

It counts deliveries per transport and outcome, times them, tracks failed
discoveries, and follows the live update stream: open connections, events
fanned out and connections dropped after a failed write.

All recording methods are safe to call on a nil *Metrics, so components can
take metrics as an optional dependency.
*/
package observability
