// Package core defines the shared data model of the intentmesh engine:
// beliefs, desires, intentions and the queue of committed plans, the
// directive type produced by human-in-the-loop interpretation, the agent
// state handle threaded through every component, and the event types
// dispatched to injected sinks.
//
// The package is deliberately free of reasoner and I/O concerns; it holds
// state and the pure mutation rules over it. Components (planner, executor,
// monitor, hitl, engine) operate on a *State and never keep private copies
// of beliefs or plans.
package core
