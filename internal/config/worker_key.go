package config

import "time"

type WorkerKeyStruct struct {
	ExpirySweepLock string
	// ExpirySweepLockTTL bounds how long one instance may hold the sweep lock.
	ExpirySweepLockTTL time.Duration
}

var WorkerKey = &WorkerKeyStruct{
	ExpirySweepLock:    "worker:expiry_sweep:lock",
	ExpirySweepLockTTL: time.Minute,
}
