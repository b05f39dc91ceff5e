package matrix

import "fmt"

// Version is a decoded firmware version.
type Version struct {
	Major      uint8 `json:"major"`
	Minor      uint8 `json:"minor"`
	Patch      uint8 `json:"patch"`
	PreRelease bool  `json:"pre_release"`
}

// DecodeVersion unpacks the 3-byte version response: major, minor<<4|patch,
// pre-release flag.
func DecodeVersion(b [3]byte) Version {
	return Version{
		Major:      b[0],
		Minor:      b[1] >> 4,
		Patch:      b[1] & 0x0F,
		PreRelease: b[2] != 0,
	}
}

func (v Version) String() string {
	s := fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.PreRelease {
		s += "-pre"
	}
	return s
}
