package perw

import (
	"debug/pe"
	"fmt"
)

const (
	dosMagic         = 0x5A4D // "MZ"
	peSignature      = "PE\x00\x00"
	lfanewOffset     = 0x3C
	fileHeaderSize   = 20
	sectionHdrSize   = 40
	optMagicPE32     = 0x10B
	optMagicPE32Plus = 0x20B
)

// Status is the overall verdict of an analysis. Values are ordered so that
// escalation is a plain max.
type Status int

const (
	StatusClean Status = iota
	StatusSuspicious
	StatusCorrupted
)

func (s Status) String() string {
	switch s {
	case StatusClean:
		return "Clean"
	case StatusSuspicious:
		return "Suspicious"
	case StatusCorrupted:
		return "Corrupted"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Clean":
		*s = StatusClean
	case "Suspicious":
		*s = StatusSuspicious
	case "Corrupted":
		*s = StatusCorrupted
	default:
		return fmt.Errorf("unknown status %q", b)
	}
	return nil
}

// Architecture is the optional header variant.
type Architecture int

const (
	ArchUnknown Architecture = iota
	ArchPE32
	ArchPE32Plus
)

func (a Architecture) String() string {
	switch a {
	case ArchPE32:
		return "PE32 (32-bit)"
	case ArchPE32Plus:
		return "PE32+ (64-bit)"
	default:
		return "Unknown"
	}
}

func (a Architecture) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Architecture) UnmarshalText(b []byte) error {
	switch string(b) {
	case "PE32 (32-bit)":
		*a = ArchPE32
	case "PE32+ (64-bit)":
		*a = ArchPE32Plus
	default:
		*a = ArchUnknown
	}
	return nil
}

type DOSHeader struct {
	Magic        uint16
	HeaderOffset uint32 // e_lfanew
}

// FileHeader is the COFF header following the PE signature.
// Same for 32 and 64 bit.
type FileHeader struct {
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

// OptionalHeader holds the subset of the optional header the analyzer needs.
type OptionalHeader struct {
	Magic      uint16
	Arch       Architecture
	EntryPoint uint32
	ImageBase  uint64
	Truncated  bool
}

type Section struct {
	Index            int     `json:"index"`
	Name             string  `json:"name"`
	VirtualAddress   uint32  `json:"virtual_address"`
	VirtualSize      uint32  `json:"virtual_size"`
	SizeOfRawData    uint32  `json:"raw_data_size"`
	PointerToRawData uint32  `json:"raw_data_pointer"`
	Characteristics  uint32  `json:"characteristics"`
	Entropy          float64 `json:"entropy"`
}

func (s Section) IsExecutable() bool { return s.Characteristics&pe.IMAGE_SCN_MEM_EXECUTE != 0 }
func (s Section) IsWritable() bool   { return s.Characteristics&pe.IMAGE_SCN_MEM_WRITE != 0 }
func (s Section) IsReadable() bool   { return s.Characteristics&pe.IMAGE_SCN_MEM_READ != 0 }

// rawEnd is computed in 64 bits so a hostile pointer+size cannot wrap.
func (s Section) rawEnd() uint64 {
	return uint64(s.PointerToRawData) + uint64(s.SizeOfRawData)
}

func (s Section) containsRVA(rva uint32) bool {
	return rva >= s.VirtualAddress && uint64(rva) < uint64(s.VirtualAddress)+uint64(s.VirtualSize)
}

// Report is the result of one analysis. It is built once and not modified
// afterwards.
type Report struct {
	Status   Status   `json:"status"`
	Warnings []string `json:"warnings"`

	FileSize            int64        `json:"file_size"`
	HeaderOffset        uint32       `json:"header_offset"`
	Machine             uint16       `json:"machine"`
	NumberOfSections    uint16       `json:"number_of_sections"`
	TimeDateStamp       uint32       `json:"timestamp"`
	FileCharacteristics uint16       `json:"file_characteristics"`
	OptionalMagic       uint16       `json:"optional_magic"`
	Architecture        Architecture `json:"architecture"`
	EntryPoint          uint32       `json:"entry_point"`
	ImageBase           uint64       `json:"image_base"`
	Sections            []Section    `json:"sections"`

	HasOverlay    bool  `json:"has_overlay"`
	OverlayOffset int64 `json:"overlay_offset,omitempty"`
	OverlaySize   int64 `json:"overlay_size,omitempty"`
}
