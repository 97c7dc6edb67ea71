// Package elfrw recognizes ELF inputs so that a rejection by the PE analyzer
// can say what the file actually is.
package elfrw

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/yalue/elf_reader"
)

const (
	elfClass32  = 1
	elfClass64  = 2
	elfData2LSB = 1

	ptLoad = 1
)

var elfMagic = []byte("\x7fELF")

// ErrNotELF is returned when the identification bytes are missing.
var ErrNotELF = errors.New("not an ELF file")

// Info is what Identify learns about an ELF file.
type Info struct {
	Class        int    `json:"class"` // 32 or 64
	LittleEndian bool   `json:"little_endian"`
	Type         uint16 `json:"type"`
	Sections     int    `json:"sections"`
	Segments     int    `json:"segments"`
	Loadable     int    `json:"loadable_segments"`
}

// LooksLikeELF only checks the magic.
func LooksLikeELF(data []byte) bool {
	return bytes.HasPrefix(data, elfMagic)
}

// Identify parses data as an ELF file and summarizes its headers.
func Identify(data []byte) (*Info, error) {
	if !LooksLikeELF(data) || len(data) < 16 {
		return nil, ErrNotELF
	}

	info := &Info{LittleEndian: data[5] == elfData2LSB}
	switch data[4] {
	case elfClass32:
		info.Class = 32
	case elfClass64:
		info.Class = 64
	default:
		return nil, fmt.Errorf("%w: bad class byte %d", ErrNotELF, data[4])
	}

	f, err := elf_reader.ParseELFFile(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELF file: %w", err)
	}
	info.Type = uint16(f.GetFileType())

	for i := uint16(0); i < f.GetSectionCount(); i++ {
		if _, err := f.GetSectionHeader(i); err == nil {
			info.Sections++
		}
	}
	for i := uint16(0); i < f.GetSegmentCount(); i++ {
		phdr, err := f.GetProgramHeader(i)
		if err != nil {
			continue
		}
		info.Segments++
		if phdr.GetType() == elf_reader.ProgramHeaderType(ptLoad) {
			info.Loadable++
		}
	}
	return info, nil
}

// TypeName is the e_type in words.
func (i *Info) TypeName() string {
	switch i.Type {
	case 1:
		return "relocatable"
	case 2:
		return "executable"
	case 3:
		return "shared object"
	case 4:
		return "core file"
	default:
		return fmt.Sprintf("type %d", i.Type)
	}
}

// String renders e.g. "ELF 64-bit little-endian executable".
func (i *Info) String() string {
	order := "big-endian"
	if i.LittleEndian {
		order = "little-endian"
	}
	return fmt.Sprintf("ELF %d-bit %s %s", i.Class, order, i.TypeName())
}
