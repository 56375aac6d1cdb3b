//go:build mage

// Package main provides build targets for the dbo project using Mage.
//
// Usage:
//
//	mage build          Compile the dbo binary to bin/
//	mage test:all       Run all tests
//	mage test:unit      Run tests without the SQLite-backed packages
//	mage test:race      Run all tests with the race detector
//	mage test:cover     Write a coverage profile to bin/coverage.out
//	mage generate       Regenerate gomock mocks
//	mage lint           Run golangci-lint
//	mage clean          Remove build artifacts
//	mage install        Install dbo to GOPATH/bin
//	mage stats          Print Go lines of code per package
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "dbo"
	binaryDir  = "bin"
	cmdDir     = "./cmd/dbo"
	versionVar = "github.com/mesh-intelligence/dbo/pkg/dbo.Version"
)

// Build compiles the dbo binary to bin/, stamping the version from
// DBO_VERSION when it is set.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	args := []string{"build", "-v", "-o", filepath.Join(binaryDir, binaryName)}
	if v := os.Getenv("DBO_VERSION"); v != "" {
		args = append(args, "-ldflags", "-X "+versionVar+"="+v)
	}
	return sh.RunV(binGo, append(args, cmdDir)...)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
