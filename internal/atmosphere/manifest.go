package atmosphere

// SensoryConfig pairs the visual parameters of a mode with its audio track.
type SensoryConfig struct {
	Color     string  `json:"color" yaml:"color"`
	Distort   float64 `json:"distort" yaml:"distort"`
	Speed     float64 `json:"speed" yaml:"speed"`
	Roughness float64 `json:"roughness" yaml:"roughness"`
	Metalness float64 `json:"metalness" yaml:"metalness"`
	AudioURL  string  `json:"audio_url" yaml:"audio_url"`
}

// Manifest is the static Mode to SensoryConfig table.
type Manifest [ModeCount]SensoryConfig

// Base visual parameters shared by every mode.
const (
	BaseColor     = "#e2e8f0"
	BaseDistort   = 0.3
	BaseSpeed     = 1.5
	BaseRoughness = 0.1
	BaseMetalness = 0.8
)

// Default track locators, relative to the assets directory.
const (
	DefaultSilenceTrack = "/assets/Patrick Sebag - Hours.wav"
	DefaultWindTrack    = "/assets/wind.wav"
	DefaultOceanTrack   = "/assets/ocean.wav"
)

func baseVisuals(audioURL string) SensoryConfig {
	return SensoryConfig{
		Color:     BaseColor,
		Distort:   BaseDistort,
		Speed:     BaseSpeed,
		Roughness: BaseRoughness,
		Metalness: BaseMetalness,
		AudioURL:  audioURL,
	}
}

// DefaultManifest returns the built-in manifest. Visuals are identical
// across modes; only the track differs.
func DefaultManifest() Manifest {
	return Manifest{
		ModeSilence: baseVisuals(DefaultSilenceTrack),
		ModeWind:    baseVisuals(DefaultWindTrack),
		ModeOcean:   baseVisuals(DefaultOceanTrack),
	}
}

// Config returns the configuration for m. Invalid modes yield a zero value
// and false.
func (m Manifest) Config(mode Mode) (SensoryConfig, bool) {
	if !mode.Valid() {
		return SensoryConfig{}, false
	}
	return m[mode], true
}

// TrackURL returns the audio locator for mode, or "" if mode is invalid.
func (m Manifest) TrackURL(mode Mode) string {
	cfg, _ := m.Config(mode)
	return cfg.AudioURL
}

// WithTrack returns a copy of the manifest with mode's track replaced.
// Empty URLs and invalid modes leave the manifest untouched.
func (m Manifest) WithTrack(mode Mode, url string) Manifest {
	if !mode.Valid() || url == "" {
		return m
	}
	m[mode].AudioURL = url
	return m
}
