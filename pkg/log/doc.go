/*
Package log provides structured logging for simkit using zerolog.

The kernel and every facade log through a single global zerolog.Logger,
configured once via Init. Components get their own child logger scoped
with a component or resource name (WithComponent, WithResourceID) so that
log lines from a 10,000-event run can be filtered down to one node
without grepping virtual timestamps.

Handlers log through their own cached zerolog.Logger. The kernel itself
logs only component removal (crashes); the runner logs task pipeline
failures, and the compute and network facades log rejected requests at
Warn and each computation or transfer start/finish at Debug.
*/
package log
