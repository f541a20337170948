//go:build mage

// Package main provides build targets for the repokit project using Mage.
//
// Usage:
//
//	mage build             Compile the repokit binary to bin/
//	mage test:all          Run all tests (unit + integration)
//	mage test:unit         Run only unit tests (exclude tests/)
//	mage test:integration  Run only integration tests (builds first)
//	mage test:postgres     Run the suite against a PostgreSQL container
//	mage vet               Run go vet
//	mage lint              Run go vet and golangci-lint
//	mage clean             Remove build artifacts
//	mage install           Install repokit to GOPATH/bin
//	mage stats             Print Go LOC per top-level directory as JSON
package main

const (
	binGo      = "go"
	binaryName = "repokit"
	binaryDir  = "bin"
	cmdDir     = "./cmd/repokit"
	modulePath = "github.com/mesh-intelligence/repokit"
)
