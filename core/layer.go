package core

import "fmt"

// Layer identifies one of the four storm sound layers
type Layer int

const (
	LayerWind      Layer = iota // Continuous low rumble
	LayerRain                   // Continuous high hiss
	LayerThunder                // Impulsive low boom
	LayerLightning              // Impulsive high crack
	LayerCount
)

var layerNames = [LayerCount]string{
	LayerWind:      "wind",
	LayerRain:      "rain",
	LayerThunder:   "thunder",
	LayerLightning: "lightning",
}

// Layers lists every layer in mixing order
var Layers = [LayerCount]Layer{LayerWind, LayerRain, LayerThunder, LayerLightning}

func (l Layer) String() string {
	if !l.Valid() {
		return fmt.Sprintf("layer(%d)", int(l))
	}
	return layerNames[l]
}

// Valid reports whether l names a known layer
func (l Layer) Valid() bool {
	return l >= 0 && l < LayerCount
}

// IsLooping reports whether the layer is sustained (wind, rain)
func (l Layer) IsLooping() bool {
	return l == LayerWind || l == LayerRain
}

// IsEvent reports whether the layer is impulsive (thunder, lightning)
func (l Layer) IsEvent() bool {
	return l == LayerThunder || l == LayerLightning
}

// ParseLayer resolves a layer from its name
func ParseLayer(name string) (Layer, error) {
	for i, n := range layerNames {
		if n == name {
			return Layer(i), nil
		}
	}
	return 0, fmt.Errorf("unknown layer %q", name)
}

// MarshalText implements encoding.TextMarshaler
func (l Layer) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid layer %d", int(l))
	}
	return []byte(layerNames[l]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (l *Layer) UnmarshalText(text []byte) error {
	parsed, err := ParseLayer(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
