// Package perwtesting builds small synthetic PE images for tests.
package perwtesting

import (
	"debug/pe"
	"encoding/binary"
)

const (
	ScnCode    = pe.IMAGE_SCN_CNT_CODE
	ScnIData   = pe.IMAGE_SCN_CNT_INITIALIZED_DATA
	ScnExecute = pe.IMAGE_SCN_MEM_EXECUTE
	ScnRead    = pe.IMAGE_SCN_MEM_READ
	ScnWrite   = pe.IMAGE_SCN_MEM_WRITE

	MachineI386  = pe.IMAGE_FILE_MACHINE_I386
	MachineAMD64 = pe.IMAGE_FILE_MACHINE_AMD64
)

// SectionSpec describes one section header and, when it fits in the image,
// its raw data.
type SectionSpec struct {
	Name             string
	VirtualAddress   uint32
	VirtualSize      uint32
	SizeOfRawData    uint32
	PointerToRawData uint32
	Characteristics  uint32
}

// Image is a declarative description of a PE file. Use NewImage64 or
// NewImage32 to get sensible defaults and then adjust fields.
type Image struct {
	HeaderOffset      uint32
	Machine           uint16
	TimeDateStamp     uint32
	Characteristics   uint16
	OptionalMagic     uint16
	SizeOfOptionalHdr uint16
	EntryPoint        uint32
	ImageBase         uint64
	Sections          []SectionSpec
	DeclaredSections  int // -1 means len(Sections)
	Length            int // 0 means "just large enough"
}

// NewImage64 returns a clean PE32+ image with .text (entry point inside)
// and .data sections.
func NewImage64() Image {
	return Image{
		HeaderOffset:      0x40,
		Machine:           MachineAMD64,
		TimeDateStamp:     0x5F5E1000,
		Characteristics:   pe.IMAGE_FILE_EXECUTABLE_IMAGE | pe.IMAGE_FILE_LARGE_ADDRESS_AWARE,
		OptionalMagic:     0x20B,
		SizeOfOptionalHdr: 0xF0,
		EntryPoint:        0x1010,
		ImageBase:         0x140000000,
		DeclaredSections:  -1,
		Sections: []SectionSpec{
			{
				Name:             ".text",
				VirtualAddress:   0x1000,
				VirtualSize:      0x100,
				SizeOfRawData:    0x200,
				PointerToRawData: 0x400,
				Characteristics:  ScnCode | ScnExecute | ScnRead,
			},
			{
				Name:             ".data",
				VirtualAddress:   0x2000,
				VirtualSize:      0x80,
				SizeOfRawData:    0x200,
				PointerToRawData: 0x600,
				Characteristics:  ScnIData | ScnRead | ScnWrite,
			},
		},
	}
}

// NewImage32 is NewImage64 with a PE32 optional header.
func NewImage32() Image {
	img := NewImage64()
	img.Machine = MachineI386
	img.Characteristics = pe.IMAGE_FILE_EXECUTABLE_IMAGE | pe.IMAGE_FILE_32BIT_MACHINE
	img.OptionalMagic = 0x10B
	img.SizeOfOptionalHdr = 0xE0
	img.ImageBase = 0x400000
	return img
}

func (img Image) sectionTableOffset() int {
	return int(img.HeaderOffset) + 4 + 20 + int(img.SizeOfOptionalHdr)
}

func (img Image) naturalLength() int {
	end := img.sectionTableOffset() + 40*len(img.Sections)
	for _, s := range img.Sections {
		end = max(end, int(s.PointerToRawData)+int(s.SizeOfRawData))
	}
	return end
}

// Build serializes the image. Anything that does not fit inside Length is
// silently dropped, which is how truncated files are produced.
func (img Image) Build() []byte {
	length := img.Length
	if length == 0 {
		length = img.naturalLength()
	}
	w := writer{buf: make([]byte, length)}

	w.put(0, []byte("MZ"))
	w.u32(0x3C, img.HeaderOffset)

	off := int(img.HeaderOffset)
	w.put(off, []byte("PE\x00\x00"))
	declared := img.DeclaredSections
	if declared < 0 {
		declared = len(img.Sections)
	}
	w.u16(off+4, img.Machine)
	w.u16(off+6, uint16(declared))
	w.u32(off+8, img.TimeDateStamp)
	w.u16(off+20, img.SizeOfOptionalHdr)
	w.u16(off+22, img.Characteristics)

	opt := off + 24
	optEnd := opt + int(img.SizeOfOptionalHdr)
	w.u16within(opt, optEnd, img.OptionalMagic)
	w.u32within(opt+16, optEnd, img.EntryPoint)
	switch img.OptionalMagic {
	case 0x10B:
		w.u32within(opt+28, optEnd, uint32(img.ImageBase))
	case 0x20B:
		w.u64within(opt+24, optEnd, img.ImageBase)
	}

	table := img.sectionTableOffset()
	for i, s := range img.Sections {
		h := table + 40*i
		var name [8]byte
		copy(name[:], s.Name)
		w.put(h, name[:])
		w.u32(h+8, s.VirtualSize)
		w.u32(h+12, s.VirtualAddress)
		w.u32(h+16, s.SizeOfRawData)
		w.u32(h+20, s.PointerToRawData)
		w.u32(h+36, s.Characteristics)

		for j := 0; j < int(s.SizeOfRawData); j++ {
			p := int(s.PointerToRawData) + j
			if p >= len(w.buf) {
				break
			}
			w.buf[p] = byte(j*7 + i)
		}
	}
	return w.buf
}

type writer struct {
	buf []byte
}

func (w writer) put(off int, b []byte) {
	if off < 0 || off >= len(w.buf) {
		return
	}
	copy(w.buf[off:], b)
}

func (w writer) u16(off int, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.put(off, b[:])
}

func (w writer) u32(off int, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.put(off, b[:])
}

func (w writer) u16within(off, limit int, v uint16) {
	if off+2 <= limit {
		w.u16(off, v)
	}
}

func (w writer) u32within(off, limit int, v uint32) {
	if off+4 <= limit {
		w.u32(off, v)
	}
}

func (w writer) u64within(off, limit int, v uint64) {
	if off+8 <= limit {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v)
		w.put(off, b[:])
	}
}
