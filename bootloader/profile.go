package bootloader

import "gopkg.in/yaml.v3"

// Profile is the loader's YAML-configurable policy, parsed by
// LoadProfile from a document the caller supplies (cmd/bootsim passes
// one inline). This package does not read a profile file itself.
type Profile struct {
	KernelPath      string           `yaml:"kernel_path"`
	FramebufferBand *FramebufferBand `yaml:"framebuffer_band,omitempty"`
	MemoryMapCap    int              `yaml:"memory_map_cap"`
}

// DefaultProfile is the policy LoadProfile starts from before applying
// a document's fields.
func DefaultProfile() Profile {
	return Profile{
		KernelPath:   "/kernel.elf",
		MemoryMapCap: 256,
	}
}

// LoadProfile parses a YAML profile document, filling any field the
// document omits from DefaultProfile.
func LoadProfile(data []byte) (Profile, error) {
	p := DefaultProfile()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, err
	}
	if p.MemoryMapCap <= 0 {
		p.MemoryMapCap = DefaultProfile().MemoryMapCap
	}
	return p, nil
}

// ResolveFramebufferBand returns the profile's configured band, or
// the package default if none was set.
func (p Profile) ResolveFramebufferBand() FramebufferBand {
	if p.FramebufferBand != nil {
		return *p.FramebufferBand
	}
	return defaultFramebufferBand
}
