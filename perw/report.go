package perw

import (
	"debug/pe"
	"slices"
)

func (pj *parsingJob) buildReport() *Report {
	warnings := slices.Clone(pj.warnings)
	if warnings == nil {
		warnings = []string{}
	}
	sections := slices.Clone(pj.sections)
	if sections == nil {
		sections = []Section{}
	}

	return &Report{
		Status:   pj.status,
		Warnings: warnings,

		FileSize:            pj.r.Size(),
		HeaderOffset:        pj.dos.HeaderOffset,
		Machine:             pj.file.Machine,
		NumberOfSections:    pj.file.NumberOfSections,
		TimeDateStamp:       pj.file.TimeDateStamp,
		FileCharacteristics: pj.file.Characteristics,
		OptionalMagic:       pj.opt.Magic,
		Architecture:        pj.opt.Arch,
		EntryPoint:          pj.opt.EntryPoint,
		ImageBase:           pj.opt.ImageBase,
		Sections:            sections,

		HasOverlay:    pj.overlaySize > 0,
		OverlayOffset: pj.overlayOffset,
		OverlaySize:   pj.overlaySize,
	}
}

// SectionByName returns the first section called name.
func (r *Report) SectionByName(name string) (Section, bool) {
	for _, s := range r.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// ExecutableSections returns the sections with the execute bit set.
func (r *Report) ExecutableSections() []Section {
	var out []Section
	for _, s := range r.Sections {
		if s.IsExecutable() {
			out = append(out, s)
		}
	}
	return out
}

func (r *Report) IsDLL() bool {
	return r.FileCharacteristics&pe.IMAGE_FILE_DLL != 0
}
