package build

// Tag is set at link time: -ldflags "-X helixclips/pkg/build.Tag=v1.2.3"
var Tag = "dev"
