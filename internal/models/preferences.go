package models

// Preset selects which loadout the overlay shows.
type Preset int

const (
	PresetSlot1  Preset = 0
	PresetSlot2  Preset = 1
	PresetSlot3  Preset = 2
	PresetCustom Preset = 1000
)

func (p Preset) String() string {
	switch p {
	case PresetSlot1:
		return "Slot1"
	case PresetSlot2:
		return "Slot2"
	case PresetSlot3:
		return "Slot3"
	case PresetCustom:
		return "Custom"
	default:
		return "Unknown"
	}
}

// Valid reports whether p is one of the defined presets.
func (p Preset) Valid() bool {
	switch p {
	case PresetSlot1, PresetSlot2, PresetSlot3, PresetCustom:
		return true
	}
	return false
}

// OverlayPosition anchors the overlay window on screen.
type OverlayPosition int

// GraphFont is the font used for graph axes.
type GraphFont struct {
	Name     string  `json:"name"`
	AxisSize float64 `json:"axisSize"`
}

// Preferences holds capture, sampling and overlay settings.
type Preferences struct {
	SelectedPreset        *Preset `json:"selectedPreset"`
	CapturePath           string  `json:"capturePath"`
	CaptureDelay          float64 `json:"captureDelay"`
	EnableCaptureDelay    bool    `json:"enableCaptureDelay"`
	CaptureDuration       float64 `json:"captureDuration"`
	EnableCaptureDuration bool    `json:"enableCaptureDuration"`
	HideDuringCapture     bool    `json:"hideDuringCapture"`
	HideAlways            bool    `json:"hideAlways"`
	IndependentWindow     bool    `json:"independentWindow"`

	MetricPollRate            float64 `json:"metricPollRate"`
	OverlayDrawRate           float64 `json:"overlayDrawRate"`
	TelemetrySamplingPeriodMs float64 `json:"telemetrySamplingPeriodMs"`
	EtwFlushPeriod            float64 `json:"etwFlushPeriod"`
	ManualEtwFlush            bool    `json:"manualEtwFlush"`
	MetricsOffset             float64 `json:"metricsOffset"`
	MetricsWindow             float64 `json:"metricsWindow"`

	OverlayPosition       OverlayPosition `json:"overlayPosition"`
	TimeRange             float64         `json:"timeRange"`
	OverlayWidth          int             `json:"overlayWidth"`
	Upscale               bool            `json:"upscale"`
	UpscaleFactor         float64         `json:"upscaleFactor"`
	GenerateStats         bool            `json:"generateStats"`
	EnableTargetBlocklist bool            `json:"enableTargetBlocklist"`
	EnableAutotargetting  bool            `json:"enableAutotargetting"`

	// Layout constants; persisted but never edited.
	OverlayMargin          int       `json:"overlayMargin"`
	OverlayBorder          int       `json:"overlayBorder"`
	OverlayPadding         int       `json:"overlayPadding"`
	GraphMargin            int       `json:"graphMargin"`
	GraphBorder            int       `json:"graphBorder"`
	GraphPadding           int       `json:"graphPadding"`
	OverlayBorderColor     RgbaColor `json:"overlayBorderColor"`
	OverlayBackgroundColor RgbaColor `json:"overlayBackgroundColor"`
	GraphFont              GraphFont `json:"graphFont"`

	AdapterID *int `json:"adapterId"`

	EnableFlashInjection           bool      `json:"enableFlashInjection"`
	FlashInjectionSize             float64   `json:"flashInjectionSize"`
	FlashInjectionColor            RgbaColor `json:"flashInjectionColor"`
	FlashInjectionBackgroundEnable bool      `json:"flashInjectionBackgroundEnable"`
	FlashInjectionBackgroundColor  RgbaColor `json:"flashInjectionBackgroundColor"`
	FlashInjectionRightShift       float64   `json:"flashInjectionRightShift"`
}

// MakeDefaultPreferences returns factory settings.
func MakeDefaultPreferences() Preferences {
	return Preferences{
		SelectedPreset:        nil,
		CapturePath:           "",
		CaptureDelay:          1,
		EnableCaptureDelay:    false,
		CaptureDuration:       10,
		EnableCaptureDuration: false,
		HideDuringCapture:     true,
		HideAlways:            false,
		IndependentWindow:     false,

		MetricPollRate:            40,
		OverlayDrawRate:           10,
		TelemetrySamplingPeriodMs: 100,
		EtwFlushPeriod:            8,
		ManualEtwFlush:            true,
		MetricsOffset:             32,
		MetricsWindow:             1000,

		OverlayPosition:       0,
		TimeRange:             10,
		OverlayWidth:          400,
		Upscale:               false,
		UpscaleFactor:         2,
		GenerateStats:         true,
		EnableTargetBlocklist: true,
		EnableAutotargetting:  false,

		OverlayMargin:          0,
		OverlayBorder:          0,
		OverlayPadding:         10,
		GraphMargin:            2,
		GraphBorder:            0,
		GraphPadding:           5,
		OverlayBorderColor:     RgbaColor{R: 255, G: 255, B: 255, A: 0},
		OverlayBackgroundColor: RgbaColor{R: 50, G: 57, B: 91, A: 220.0 / 255},
		GraphFont:              GraphFont{Name: "Verdana", AxisSize: 10},

		AdapterID: nil,

		EnableFlashInjection:           false,
		FlashInjectionSize:             0.25,
		FlashInjectionColor:            RgbaColor{R: 255, G: 255, B: 255, A: 255},
		FlashInjectionBackgroundEnable: false,
		FlashInjectionBackgroundColor:  RgbaColor{R: 0, G: 0, B: 0, A: 255},
		FlashInjectionRightShift:       0.5,
	}
}

// Clone returns a copy that shares no pointers with p.
func (p Preferences) Clone() Preferences {
	if p.SelectedPreset != nil {
		v := *p.SelectedPreset
		p.SelectedPreset = &v
	}
	if p.AdapterID != nil {
		v := *p.AdapterID
		p.AdapterID = &v
	}
	return p
}

// PresetPtr is a convenience for setting SelectedPreset.
func PresetPtr(p Preset) *Preset {
	return &p
}
