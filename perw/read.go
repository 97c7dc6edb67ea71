package perw

import (
	"bytes"
	"encoding/binary"
	"io"
)

// parsingJob carries the state of one analysis through the pipeline stages.
// It is never shared between invocations.
type parsingJob struct {
	r *Reader

	dos      DOSHeader
	file     FileHeader
	opt      OptionalHeader
	sections []Section

	status   Status
	warnings []string

	overlayOffset int64
	overlaySize   int64
	hashedBytes   int64
}

type stage func(*parsingJob) error

// Analyze runs the full pipeline over src, which must stay valid and
// unmodified until Analyze returns. The returned error is a
// *StructuralError when the input is not a usable PE image.
func Analyze(src io.ReaderAt, size int64) (*Report, error) {
	pj := &parsingJob{r: NewReader(src, size)}

	stages := []stage{
		parseDOSHeader,
		parseFileHeader,
		parseOptionalHeader,
		parseSectionTable,
		measureSections,
	}
	for _, fn := range stages {
		if err := fn(pj); err != nil {
			return nil, err
		}
	}

	pj.analyze()
	return pj.buildReport(), nil
}

// AnalyzeBytes is Analyze over an in-memory image.
func AnalyzeBytes(data []byte) (*Report, error) {
	return Analyze(bytes.NewReader(data), int64(len(data)))
}

func (pj *parsingJob) warn(msg string) {
	pj.warnings = append(pj.warnings, msg)
}

func parseDOSHeader(pj *parsingJob) error {
	magic, err := pj.r.Uint16At(0)
	if err != nil || magic != dosMagic {
		return structural(ErrNotPE.Error(), ErrNotPE)
	}

	lfanew, err := pj.r.Uint32At(lfanewOffset)
	if err != nil {
		return structural("DOS header truncated", err)
	}
	if int64(lfanew)+4 > pj.r.Size() {
		return structural("PE header offset points past end of file", &BoundsError{
			Offset: int64(lfanew),
			Length: 4,
			Size:   pj.r.Size(),
		})
	}

	pj.dos = DOSHeader{Magic: magic, HeaderOffset: lfanew}
	return nil
}

func parseFileHeader(pj *parsingJob) error {
	if err := pj.r.Seek(int64(pj.dos.HeaderOffset)); err != nil {
		return structural("cannot seek to PE header", err)
	}

	sig, err := pj.r.Read(len(peSignature))
	if err != nil {
		return structural("PE signature truncated", err)
	}
	if string(sig) != peSignature {
		return structural(ErrBadSignature.Error(), ErrBadSignature)
	}

	b, err := pj.r.Read(fileHeaderSize)
	if err != nil {
		return structural("file header truncated", err)
	}
	le := binary.LittleEndian
	pj.file = FileHeader{
		Machine:              le.Uint16(b[0:2]),
		NumberOfSections:     le.Uint16(b[2:4]),
		TimeDateStamp:        le.Uint32(b[4:8]),
		PointerToSymbolTable: le.Uint32(b[8:12]),
		NumberOfSymbols:      le.Uint32(b[12:16]),
		SizeOfOptionalHeader: le.Uint16(b[16:18]),
		Characteristics:      le.Uint16(b[18:20]),
	}
	return nil
}

func parseOptionalHeader(pj *parsingJob) error {
	size := int(pj.file.SizeOfOptionalHeader)

	data, err := pj.r.Read(size)
	if err != nil {
		return structural("optional header extends past end of file", err)
	}
	if len(data) < 2 {
		return structural(ErrOptionalHeader.Error(), ErrOptionalHeader)
	}

	le := binary.LittleEndian
	opt := OptionalHeader{Magic: le.Uint16(data[0:2])}

	// The entry point sits at the same offset in both layouts; only the
	// image base moves and changes width.
	var need int
	switch opt.Magic {
	case optMagicPE32:
		opt.Arch = ArchPE32
		need = 32
		if len(data) >= 20 {
			opt.EntryPoint = le.Uint32(data[16:20])
		}
		if len(data) >= 32 {
			opt.ImageBase = uint64(le.Uint32(data[28:32]))
		}
	case optMagicPE32Plus:
		opt.Arch = ArchPE32Plus
		need = 32
		if len(data) >= 20 {
			opt.EntryPoint = le.Uint32(data[16:20])
		}
		if len(data) >= 32 {
			opt.ImageBase = le.Uint64(data[24:32])
		}
	default:
		opt.Arch = ArchUnknown
	}

	if len(data) < need {
		opt.Truncated = true
		pj.warn("optional header truncated for declared architecture")
	}

	pj.opt = opt
	return nil
}
