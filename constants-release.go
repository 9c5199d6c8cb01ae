//go:build release
// +build release

package main

import "time"

const (
	DEBUG                   = false
	MLnetworkID             = "pt-ml"
	SecretsPath             = "secrets.json"
	ListenAddress           = ":12000"
	MaxDBconnectionPoolSize = 30
	CyclePeriod             = 2 * time.Minute
	RejectedDeleteAfter     = 7 * 24 * time.Hour
	RSSCacheTTL             = 1 * time.Minute
)
