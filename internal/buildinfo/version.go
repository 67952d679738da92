package buildinfo

// Version is the launcher version. Release builds override it with
// -ldflags "-X github.com/voxstella/launcher/internal/buildinfo.Version=<tag>".
var Version = "1.1.0-dev"
