package version

// Version is the build version, overridden at link time with
// -ldflags "-X github.com/netxfw/gunlog/internal/version.Version=v1.2.3".
// Version 为构建版本，可在链接时通过 -ldflags 覆盖。
var Version = "dev"

// Commit is the source revision the binary was built from.
// Commit 为构建所用的源码版本。
var Commit = "none"
