package dbo

// Version is the release version, set at build time with
// -ldflags "-X github.com/mesh-intelligence/dbo/pkg/dbo.Version=...".
var Version = "v0.1.0"
