package enums

import "fmt"

// Area is the geographic region a center belongs to.
type Area string

const (
	AreaNorth     Area = "NORTH"
	AreaCenter    Area = "CENTER"
	AreaSouth     Area = "SOUTH"
	AreaJerusalem Area = "JERUSALEM"
)

var validAreas = []Area{
	AreaNorth,
	AreaCenter,
	AreaSouth,
	AreaJerusalem,
}

// String implements fmt.Stringer.
func (a Area) String() string {
	return string(a)
}

// IsValid reports whether the value is a known Area.
func (a Area) IsValid() bool {
	for _, candidate := range validAreas {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseArea converts raw input into an Area.
func ParseArea(value string) (Area, error) {
	for _, candidate := range validAreas {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid area %q", value)
}
