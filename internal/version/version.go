package version

// Set with -ldflags "-X github.com/hookdeck/redishook/internal/version.version=v1.2.3".
var version = "dev"

func Version() string {
	return version
}
