//go:build !release
// +build !release

package main

import "time"

const (
	DEBUG                   = true
	MLnetworkID             = "pt-ml"
	SecretsPath             = "secrets-debug.json"
	ListenAddress           = ":12000"
	MaxDBconnectionPoolSize = 10
	CyclePeriod             = 1 * time.Minute
	RejectedDeleteAfter     = 1 * time.Hour
	RSSCacheTTL             = 30 * time.Second
)
