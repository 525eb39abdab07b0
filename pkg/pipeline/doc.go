// Package pipeline moves encoded Hacker News rows to a sink `Peer`.
//
// A sink is reached through a `Connector`. Connectors register a factory under
// a name (kafka, debug) and every run creates and owns its own instance, so no
// connection outlives the run that opened it.
//
// Publishing is strictly sequential: each message is sent and acknowledged (or
// fails) before the next one is attempted. A failed delivery is logged and
// counted but never stops the run.
package pipeline
