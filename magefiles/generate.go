//go:build mage

package main

import "github.com/magefile/mage/sh"

// Generate regenerates the gomock mocks from their go:generate directives.
func Generate() error {
	return sh.RunV(binGo, "generate", "./pkg/...")
}
