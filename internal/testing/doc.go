// Package testing contains helper utilities shared by package and CLI tests.
package testing

const (
	// testDirPermissions is the permission mode for creating test directories.
	testDirPermissions = 0o750

	// testFilePermissions is the permission mode for creating test files.
	testFilePermissions = 0o600
)
