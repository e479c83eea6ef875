// Package testsupport builds temp-dir backed configs, stores, and fixture files
// for package tests.
package testsupport
