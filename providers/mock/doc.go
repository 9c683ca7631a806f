// Package mock provides a controllable implementation of proctree.Environment
// for testing purposes.
//
// It allows defining expectations for helper commands, so the system-tool
// platform can be exercised against canned ps/taskkill/wmic output without
// touching real processes.
//
// Usage:
//
//	m := mock.New()
//	m.On("TargetOS").Return(proctree.OSWindows)
//	m.ExpectRun("taskkill /PID 42", 128, "", `ERROR: The process "42" not found.`)
//	// pass 'm' to systools.New
package mock
