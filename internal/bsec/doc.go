// Package bsec supervises the Bosch BSEC sensor-fusion binary for a BME680
// environmental sensor.
//
// The BSEC fusion algorithm is closed-source and ships as a static library
// for a handful of ARM targets. Direct bus access and the fusion math live
// entirely inside a small native executable; this package is responsible for
// everything around it:
//
//   - Detecting which vendor library variant matches the host (arch.go)
//   - Building the executable only when its content hash sidecar is stale
//     (buildcache.go)
//   - Keeping the on-disk runtime configuration blob in sync with the
//     requested tuning identity without clobbering recognised operator
//     files (configresolver.go)
//   - Guaranteeing a calibration-state file exists without ever overwriting
//     one (statestore.go)
//   - Running the executable and streaming its line-oriented JSON output as
//     typed measurements (supervisor.go, record.go)
//
// Restart-on-failure is deliberately not implemented here; the daemon is
// expected to run under a service manager (systemd) that owns that policy.
//
// Example usage:
//
//	device, err := bsec.NewDeviceConfig(0x76, 2.5, 300, 3.3, 28)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	paths, err := bsec.ResolveArtifacts(ctx, device, baseDir)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sup := bsec.NewSupervisor(device, paths)
//	if err := sup.Open(); err != nil {
//	    log.Fatal(err)
//	}
//	defer sup.Close()
//
//	for m := range sup.Records() {
//	    fmt.Println(m.IAQ)
//	}
//	if err := sup.Err(); err != nil {
//	    log.Fatal(err)
//	}
package bsec
