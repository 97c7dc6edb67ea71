package perw

import (
	"debug/pe"
	"fmt"
	"math"
	"strings"
	"time"
)

// CalculateEntropy returns the Shannon entropy of data in bits per byte.
func CalculateEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0.0
	}
	var freq [256]int
	for _, b := range data {
		freq[b]++
	}
	entropy := 0.0
	length := float64(len(data))
	for _, count := range freq {
		if count > 0 {
			p := float64(count) / length
			entropy -= p * math.Log2(p)
		}
	}
	return entropy
}

// MachineName maps a COFF machine code to a short architecture name.
func MachineName(machine uint16) string {
	switch machine {
	case pe.IMAGE_FILE_MACHINE_I386:
		return "i386"
	case pe.IMAGE_FILE_MACHINE_AMD64:
		return "amd64"
	case pe.IMAGE_FILE_MACHINE_ARM:
		return "arm"
	case pe.IMAGE_FILE_MACHINE_ARMNT:
		return "armnt"
	case pe.IMAGE_FILE_MACHINE_ARM64:
		return "arm64"
	case pe.IMAGE_FILE_MACHINE_IA64:
		return "ia64"
	case pe.IMAGE_FILE_MACHINE_UNKNOWN:
		return "unknown"
	default:
		return fmt.Sprintf("unknown(0x%x)", machine)
	}
}

// FormatTimestamp renders a COFF TimeDateStamp in UTC.
func FormatTimestamp(ts uint32) string {
	if ts == 0 {
		return "Not set"
	}
	return time.Unix(int64(ts), 0).UTC().Format("2006-01-02 15:04:05 MST")
}

// DescribeSectionFlags renders the protection bits as "RWX" and appends the
// content flags, e.g. "R-X CODE".
func DescribeSectionFlags(flags uint32) string {
	perm := []byte("---")
	if flags&pe.IMAGE_SCN_MEM_READ != 0 {
		perm[0] = 'R'
	}
	if flags&pe.IMAGE_SCN_MEM_WRITE != 0 {
		perm[1] = 'W'
	}
	if flags&pe.IMAGE_SCN_MEM_EXECUTE != 0 {
		perm[2] = 'X'
	}

	parts := []string{string(perm)}
	if flags&pe.IMAGE_SCN_CNT_CODE != 0 {
		parts = append(parts, "CODE")
	}
	if flags&pe.IMAGE_SCN_CNT_INITIALIZED_DATA != 0 {
		parts = append(parts, "IDATA")
	}
	if flags&pe.IMAGE_SCN_CNT_UNINITIALIZED_DATA != 0 {
		parts = append(parts, "UDATA")
	}
	if flags&pe.IMAGE_SCN_MEM_SHARED != 0 {
		parts = append(parts, "SHARED")
	}
	if flags&pe.IMAGE_SCN_MEM_DISCARDABLE != 0 {
		parts = append(parts, "DISCARDABLE")
	}
	return strings.Join(parts, " ")
}

// DescribeFileCharacteristics lists the well-known file header flags.
func DescribeFileCharacteristics(flags uint16) string {
	names := []struct {
		bit  uint16
		name string
	}{
		{pe.IMAGE_FILE_RELOCS_STRIPPED, "RELOCS_STRIPPED"},
		{pe.IMAGE_FILE_EXECUTABLE_IMAGE, "EXECUTABLE_IMAGE"},
		{pe.IMAGE_FILE_LARGE_ADDRESS_AWARE, "LARGE_ADDRESS_AWARE"},
		{pe.IMAGE_FILE_32BIT_MACHINE, "32BIT_MACHINE"},
		{pe.IMAGE_FILE_DEBUG_STRIPPED, "DEBUG_STRIPPED"},
		{pe.IMAGE_FILE_SYSTEM, "SYSTEM"},
		{pe.IMAGE_FILE_DLL, "DLL"},
	}
	var out []string
	for _, n := range names {
		if flags&n.bit != 0 {
			out = append(out, n.name)
		}
	}
	if len(out) == 0 {
		return "None"
	}
	return strings.Join(out, ", ")
}

// FileType returns "DLL" or "EXE" the way the file header declares it.
func (r *Report) FileType() string {
	if r.IsDLL() {
		return "DLL"
	}
	return "EXE"
}
