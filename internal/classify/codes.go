// Package classify turns class-code rasters into boolean masks, combines
// them with the footprint mask and counts visible urban pixels.
package classify

import (
	"os"
	"slices"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// CodeSet is a set of integer class codes.
type CodeSet map[int]struct{}

// NewCodeSet builds a set from codes.
func NewCodeSet(codes ...int) CodeSet {
	s := make(CodeSet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

// Has reports membership of a raster value. Non-integral values are never
// members.
func (s CodeSet) Has(v float64) bool {
	c := int(v)
	if float64(c) != v {
		return false
	}
	_, ok := s[c]
	return ok
}

// Codes returns the members in ascending order.
func (s CodeSet) Codes() []int {
	out := make([]int, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// DefaultCloudCodes are the sen2cor scene classification codes of clear
// land: dark area, vegetation, bare soil, water, unclassified and snow.
func DefaultCloudCodes() CodeSet {
	return NewCodeSet(2, 4, 5, 6, 7, 11)
}

// DefaultUrbanCodes are the SIGPAC land use codes of urban-type parcels.
func DefaultUrbanCodes() CodeSet {
	return NewCodeSet(0, 5)
}

// Codes is the pair of enumerations the statistics depend on.
type Codes struct {
	Cloud CodeSet
	Urban CodeSet
}

// DefaultCodes returns the sen2cor / SIGPAC defaults.
func DefaultCodes() Codes {
	return Codes{Cloud: DefaultCloudCodes(), Urban: DefaultUrbanCodes()}
}

// codesFile is the YAML layout of a class enumeration file:
//
//	cloud_codes: [2, 4, 5, 6, 7, 11]
//	urban_codes: [0, 5]
type codesFile struct {
	CloudCodes []int `yaml:"cloud_codes"`
	UrbanCodes []int `yaml:"urban_codes"`
}

// LoadCodes reads a class enumeration file. A list missing from the file
// keeps its default.
func LoadCodes(path string) (Codes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Codes{}, eris.Wrapf(err, "classify: read codes %s", path)
	}

	var f codesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Codes{}, eris.Wrapf(err, "classify: parse codes %s", path)
	}

	codes := DefaultCodes()
	if f.CloudCodes != nil {
		codes.Cloud = NewCodeSet(f.CloudCodes...)
	}
	if f.UrbanCodes != nil {
		codes.Urban = NewCodeSet(f.UrbanCodes...)
	}
	return codes, nil
}
