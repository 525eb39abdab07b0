// Package nats is a NATS JetStream sink connector.
//
// A pipeline topic is used as the subject. JetStream acknowledges every
// publish with the stream sequence, reported as the message offset; the
// partition is always 0. NATS has no record key, so Message.Key is not sent.
//
// Subjects are case-sensitive and dot-separated, so `hackernews-topic` is a
// valid single-token subject. The stream is created on Connect when missing.
package nats
