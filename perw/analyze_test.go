package perw

import (
	"debug/pe"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunChecks_OrderDoesNotChangeStatus(t *testing.T) {
	t.Parallel()

	sections := []Section{
		{Name: ".text", VirtualAddress: 0x1000, VirtualSize: 0x100, PointerToRawData: 0x400, SizeOfRawData: 0x200,
			Characteristics: pe.IMAGE_SCN_MEM_EXECUTE | pe.IMAGE_SCN_MEM_READ | pe.IMAGE_SCN_MEM_WRITE},
		{Name: ".data", VirtualAddress: 0x2000, VirtualSize: 0x80, PointerToRawData: 0x600, SizeOfRawData: 0x200,
			Characteristics: pe.IMAGE_SCN_MEM_READ | pe.IMAGE_SCN_MEM_WRITE},
	}

	forward, _ := runChecks(StatusClean, sections, 0x7FF, 0x5000,
		[]sectionCheck{checkTruncated, checkRWX}, []imageCheck{checkEntryPoint})
	backward, _ := runChecks(StatusClean, sections, 0x7FF, 0x5000,
		[]sectionCheck{checkRWX, checkTruncated}, []imageCheck{checkEntryPoint})

	assert.Equal(t, StatusCorrupted, forward)
	assert.Equal(t, forward, backward)
}

func TestRunChecks_NoShortCircuit(t *testing.T) {
	t.Parallel()

	sections := []Section{
		{Name: "a", PointerToRawData: 0x100, SizeOfRawData: 0x100},
		{Name: "b", PointerToRawData: 0x100, SizeOfRawData: 0x100},
	}
	status, warnings := runChecks(StatusClean, sections, 0x80, 0, sectionChecks, imageChecks)
	assert.Equal(t, StatusCorrupted, status)
	assert.Len(t, warnings, 2)
}

func TestRunChecks_KeepsIncomingStatus(t *testing.T) {
	t.Parallel()

	status, warnings := runChecks(StatusSuspicious, nil, 0, 0, sectionChecks, imageChecks)
	assert.Equal(t, StatusSuspicious, status)
	assert.Empty(t, warnings)
}

func TestEscalate(t *testing.T) {
	t.Parallel()

	all := []Status{StatusClean, StatusSuspicious, StatusCorrupted}
	for _, a := range all {
		assert.Equal(t, a, escalate(a, a))
		for _, b := range all {
			assert.Equal(t, escalate(a, b), escalate(b, a))
			assert.True(t, escalate(a, b) >= a)
		}
	}
	assert.Equal(t, StatusCorrupted, escalate(StatusCorrupted, StatusClean))
}

func TestCheckEntryPoint(t *testing.T) {
	t.Parallel()

	sections := []Section{{VirtualAddress: 0x1000, VirtualSize: 0x10}}

	_, hit := checkEntryPoint(sections, 0x1000)
	assert.False(t, hit)
	_, hit = checkEntryPoint(sections, 0x1010)
	assert.True(t, hit)
	_, hit = checkEntryPoint(nil, 0)
	assert.False(t, hit)
	_, hit = checkEntryPoint([]Section{{VirtualAddress: math.MaxUint32, VirtualSize: math.MaxUint32}}, 5)
	assert.True(t, hit)
}

func TestSectionName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  []byte
		want string
	}{
		{name: "padded", raw: []byte(".text\x00\x00\x00"), want: ".text"},
		{name: "full width", raw: []byte(".textbss"), want: ".textbss"},
		{name: "empty", raw: make([]byte, 8), want: ""},
		{name: "invalid utf8", raw: []byte{'.', 0xFF, 'x', 0, 0, 0, 0, 0}, want: ".\uFFFDx"},
		{name: "inner nul kept", raw: []byte{'a', 0, 'b', 0, 0, 0, 0, 0}, want: "a\x00b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sectionName(tt.raw))
		})
	}
}

func TestCalculateEntropy(t *testing.T) {
	t.Parallel()

	assert.Zero(t, CalculateEntropy(nil))
	assert.Zero(t, CalculateEntropy([]byte{7, 7, 7, 7}))
	assert.InDelta(t, 1.0, CalculateEntropy([]byte{0, 1, 0, 1}), 1e-9)

	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	assert.InDelta(t, 8.0, CalculateEntropy(all), 1e-9)
}

func TestDescribeSectionFlags(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "R-X CODE", DescribeSectionFlags(pe.IMAGE_SCN_CNT_CODE|pe.IMAGE_SCN_MEM_READ|pe.IMAGE_SCN_MEM_EXECUTE))
	assert.Equal(t, "RW- IDATA", DescribeSectionFlags(pe.IMAGE_SCN_CNT_INITIALIZED_DATA|pe.IMAGE_SCN_MEM_READ|pe.IMAGE_SCN_MEM_WRITE))
	assert.Equal(t, "---", DescribeSectionFlags(0))
	assert.Equal(t, "RW- UDATA", DescribeSectionFlags(0xC0000080))
	assert.Equal(t, "RWX SHARED DISCARDABLE",
		DescribeSectionFlags(pe.IMAGE_SCN_MEM_READ|pe.IMAGE_SCN_MEM_WRITE|pe.IMAGE_SCN_MEM_EXECUTE|pe.IMAGE_SCN_MEM_SHARED|pe.IMAGE_SCN_MEM_DISCARDABLE))
}

func TestDescribeFileCharacteristics(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "None", DescribeFileCharacteristics(0))
	assert.Equal(t, "EXECUTABLE_IMAGE, LARGE_ADDRESS_AWARE", DescribeFileCharacteristics(0x0022))
	assert.Equal(t, "EXECUTABLE_IMAGE, DLL", DescribeFileCharacteristics(0x2002))
	assert.Equal(t, "RELOCS_STRIPPED, 32BIT_MACHINE, DEBUG_STRIPPED, SYSTEM",
		DescribeFileCharacteristics(0x1301))
}

func TestMachineName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "amd64", MachineName(0x8664))
	assert.Equal(t, "i386", MachineName(0x014c))
	assert.Equal(t, "arm64", MachineName(0xaa64))
	assert.Equal(t, "armnt", MachineName(pe.IMAGE_FILE_MACHINE_ARMNT))
	assert.Equal(t, "ia64", MachineName(pe.IMAGE_FILE_MACHINE_IA64))
	assert.Equal(t, "unknown", MachineName(0))
	assert.Equal(t, "unknown(0x1234)", MachineName(0x1234))
}

func TestFormatTimestamp(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Not set", FormatTimestamp(0))
	assert.Equal(t, "2020-09-13 12:26:40 UTC", FormatTimestamp(1600000000))
}

func TestReportHelpers(t *testing.T) {
	t.Parallel()

	r := &Report{
		FileCharacteristics: pe.IMAGE_FILE_EXECUTABLE_IMAGE | pe.IMAGE_FILE_DLL,
		Sections: []Section{
			{Name: ".text", Characteristics: pe.IMAGE_SCN_MEM_EXECUTE},
			{Name: ".rdata"},
		},
	}
	assert.True(t, r.IsDLL())
	assert.Equal(t, "DLL", r.FileType())

	s, ok := r.SectionByName(".rdata")
	assert.True(t, ok)
	assert.Equal(t, ".rdata", s.Name)
	_, ok = r.SectionByName(".reloc")
	assert.False(t, ok)

	exec := r.ExecutableSections()
	if assert.Len(t, exec, 1) {
		assert.Equal(t, ".text", exec[0].Name)
	}
}

func TestStatusText(t *testing.T) {
	t.Parallel()

	for _, s := range []Status{StatusClean, StatusSuspicious, StatusCorrupted} {
		text, err := s.MarshalText()
		assert.NoError(t, err)
		var back Status
		assert.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, s, back)
	}
	var s Status
	assert.Error(t, s.UnmarshalText([]byte("bogus")))
}
