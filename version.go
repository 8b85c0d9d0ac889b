package charloop

// Version is set at build time with -ldflags "-X tractor.dev/charloop.Version=...".
var Version = "0.1.0-dev"
