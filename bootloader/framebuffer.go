package bootloader

// Framebuffer is the linear graphics surface description handed to the
// kernel, per spec.md §3 "Framebuffer descriptor".
type Framebuffer struct {
	Base   uint64
	Width  uint32
	Height uint32
	Bpp    uint32
	Pitch  uint32
}

// vgaTextFramebuffer is the legacy fallback used when no graphics
// output protocol is present, or no enumerated mode qualifies.
var vgaTextFramebuffer = Framebuffer{
	Base:   0xB8000,
	Width:  80,
	Height: 25,
	Bpp:    16,
	Pitch:  160,
}

// FramebufferBand constrains the acceptable mode width range, per
// spec.md §4.1's graphics negotiation. A Profile may override it.
type FramebufferBand struct {
	MinWidth, MaxWidth uint32
	MinHeight          uint32
}

var defaultFramebufferBand = FramebufferBand{MinWidth: 800, MaxWidth: 1920, MinHeight: 600}

// SetupFramebuffer scores every mode fw's graphics protocol reports
// and returns the best linear framebuffer available, falling back to
// VGA text mode when no GOP is present or no mode qualifies, per
// spec.md §4.1.
func SetupFramebuffer(fw Firmware, band FramebufferBand) Framebuffer {
	modes, current, ok := fw.LocateGOP()
	if !ok {
		return vgaTextFramebuffer
	}

	bestIdx := -1
	var bestArea uint64
	for i, m := range modes {
		if m.PixelFormat != PixelFormatRGB32 && m.PixelFormat != PixelFormatBGR32 {
			continue
		}
		if m.Width < band.MinWidth || m.Width > band.MaxWidth {
			continue
		}
		if m.Height < band.MinHeight {
			continue
		}
		area := uint64(m.Width) * uint64(m.Height)
		switch {
		case area > bestArea:
			bestArea = area
			bestIdx = i
		case area == bestArea && bestIdx >= 0:
			// Tie: prefer keeping the mode already active.
			if i == current {
				bestIdx = i
			}
		}
	}
	if bestIdx < 0 {
		return vgaTextFramebuffer
	}

	m := modes[bestIdx]
	bytesPerPixel := uint32(4)
	return Framebuffer{
		Base:   m.FrameBufferBase,
		Width:  m.Width,
		Height: m.Height,
		Bpp:    bytesPerPixel * 8,
		Pitch:  m.PixelsPerScanline * bytesPerPixel,
	}
}
