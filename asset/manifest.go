// Package asset resolves and decodes the sample files behind each storm layer.
package asset

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/mtclare/Storm-Machine/core"
)

// Manifest maps each layer to an ordered list of asset locators.
// Looping layers use only the first locator; event layers use all of them.
type Manifest map[core.Layer][]string

// DefaultManifest lists the stock sound files shipped under sounds/
func DefaultManifest() Manifest {
	return Manifest{
		core.LayerWind:      {"sounds/wind-loop.mp3"},
		core.LayerRain:      {"sounds/rain-loop.mp3"},
		core.LayerThunder:   {"sounds/thunder-1.mp3", "sounds/thunder-2.mp3", "sounds/thunder-3.mp3"},
		core.LayerLightning: {"sounds/lightning-1.mp3", "sounds/lightning-2.mp3"},
	}
}

// Locators returns the locators the loader should fetch for l
func (m Manifest) Locators(l core.Layer) []string {
	locs := m[l]
	if len(locs) == 0 {
		return nil
	}
	if l.IsLooping() {
		return locs[:1]
	}
	return locs
}

// Count returns the number of assets the loader would fetch
func (m Manifest) Count() int {
	n := 0
	for _, l := range core.Layers {
		n += len(m.Locators(l))
	}
	return n
}

// ParseManifest decodes YAML of the form `wind: [path, ...]`
func ParseManifest(data []byte) (Manifest, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifest, err)
	}
	return FromNames(raw)
}

// FromNames converts a name-keyed map into a Manifest
func FromNames(raw map[string][]string) (Manifest, error) {
	m := make(Manifest, len(raw))
	for name, locs := range raw {
		l, err := core.ParseLayer(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrManifest, err)
		}
		m[l] = append([]string(nil), locs...)
	}
	return m, nil
}

// Names converts the manifest back to a name-keyed map
func (m Manifest) Names() map[string][]string {
	out := make(map[string][]string, len(m))
	for l, locs := range m {
		out[l.String()] = append([]string(nil), locs...)
	}
	return out
}

// LoadManifest reads a manifest file
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifest, err)
	}
	return ParseManifest(data)
}

// String renders the manifest in layer order, for logs
func (m Manifest) String() string {
	layers := make([]core.Layer, 0, len(m))
	for l := range m {
		layers = append(layers, l)
	}
	sort.Slice(layers, func(i, j int) bool { return layers[i] < layers[j] })

	parts := make([]string, 0, len(layers))
	for _, l := range layers {
		parts = append(parts, fmt.Sprintf("%s=%d", l, len(m[l])))
	}
	return strings.Join(parts, " ")
}
