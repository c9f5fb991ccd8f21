// Package testutil provides testing utilities and helpers.
//
// This package contains fake frame sources and other fixtures shared by
// the package tests. It is internal and should not be imported by
// external code.
package testutil
