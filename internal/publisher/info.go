package publisher

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Info identifies the publishing application.
type Info struct {
	Name    string
	Version *semver.Version
}

// ParseInfo builds an Info, parsing version leniently ("1.2" is 1.2.0).
func ParseInfo(name, version string) (Info, error) {
	if name == "" {
		return Info{}, fmt.Errorf("publisher name is required")
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return Info{}, fmt.Errorf("publisher %q: invalid version %q: %w", name, version, err)
	}
	return Info{Name: name, Version: v}, nil
}

func (i Info) String() string {
	if i.Version == nil {
		return i.Name
	}
	return i.Name + " " + i.Version.String()
}

func (i Info) versionString() string {
	if i.Version == nil {
		return ""
	}
	return i.Version.String()
}
