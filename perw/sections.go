package perw

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

func parseSectionTable(pj *parsingJob) error {
	start := int64(pj.dos.HeaderOffset) + int64(len(peSignature)) + fileHeaderSize +
		int64(pj.file.SizeOfOptionalHeader)

	declared := int64(pj.file.NumberOfSections)
	capacity := pj.r.Remaining(start) / sectionHdrSize
	count := min(declared, capacity)
	if declared > count {
		pj.warn(fmt.Sprintf("declared section count exceeds file size; truncated to %d", count))
	}

	pj.sections = make([]Section, 0, count)
	for i := range count {
		b, err := pj.r.ReadAt(start+i*sectionHdrSize, sectionHdrSize)
		if err != nil {
			return fmt.Errorf("section header %d: %w", i, err)
		}
		pj.sections = append(pj.sections, decodeSection(int(i), b))
	}
	return nil
}

// decodeSection decodes one 40-byte section header. The relocation and line
// number fields at 24..36 are not used.
func decodeSection(index int, b []byte) Section {
	le := binary.LittleEndian
	return Section{
		Index:            index,
		Name:             sectionName(b[0:8]),
		VirtualSize:      le.Uint32(b[8:12]),
		VirtualAddress:   le.Uint32(b[12:16]),
		SizeOfRawData:    le.Uint32(b[16:20]),
		PointerToRawData: le.Uint32(b[20:24]),
		Characteristics:  le.Uint32(b[36:40]),
	}
}

// sectionName strips the NUL padding and replaces invalid UTF-8 rather than
// rejecting the header.
func sectionName(raw []byte) string {
	return strings.ToValidUTF8(string(bytes.TrimRight(raw, "\x00")), "\uFFFD")
}
