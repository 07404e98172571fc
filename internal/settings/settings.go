package settings

// User is the signed-in user.
type User struct {
	DisplayName string `yaml:"display_name" json:"display_name"`
}

// Host is the sync server hosting a project.
type Host struct {
	ServerName string `yaml:"server_name" json:"server_name"`
	Address    string `yaml:"address" json:"address"` // host:port
}

// TargetProject is the project entities are published into.
type TargetProject struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	Host Host   `yaml:"host" json:"host"`
}

// LengthUnit is the unit of source coordinates.
type LengthUnit string

const (
	Meters      LengthUnit = "meters"
	Centimeters LengthUnit = "centimeters"
	Millimeters LengthUnit = "millimeters"
	Feet        LengthUnit = "feet"
	Inches      LengthUnit = "inches"
)

// AxisInversion selects how source axes map to the server's axes.
type AxisInversion string

const (
	AxisNone   AxisInversion = "none"
	AxisSwapYZ AxisInversion = "swap_yz"
)

// Settings configures one publisher client.
type Settings struct {
	User          User          `yaml:"user" json:"user"`
	TargetProject TargetProject `yaml:"target_project" json:"target_project"`
	LengthUnit    LengthUnit    `yaml:"length_unit" json:"length_unit"`
	AxisInversion AxisInversion `yaml:"axis_inversion" json:"axis_inversion"`

	// Rules is an opaque document interpreted only by the server.
	Rules string `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// Clone returns a copy of s that can be customised independently.
func (s *Settings) Clone() *Settings {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
