// Package timeouts defines shared timeout constants used across the client.
// Centralizing these values prevents drift between components and makes the
// durations discoverable.
package timeouts

import "time"

// HTTPRequest caps the time allowed for a single backend request when the
// configuration does not override it.
const HTTPRequest = 10 * time.Second

// StorageOpen caps the wait for the durable KV file lock.
const StorageOpen = time.Second

// OTelShutdown limits how long trace export flushing may take on exit.
const OTelShutdown = 5 * time.Second
