package common

import (
	"fmt"
	"io"
	"strings"

	"peinspect/perw"
)

// TextOptions controls decoration. Both are normally true only when the
// output is a terminal.
type TextOptions struct {
	Emoji bool
	Color bool
}

type textWriter struct {
	b    strings.Builder
	opts TextOptions
}

func (t *textWriter) printf(format string, args ...any) {
	fmt.Fprintf(&t.b, format, args...)
}

func (t *textWriter) heading(symbol, title string) {
	if t.opts.Emoji {
		title = symbol + " " + title
	}
	t.printf("%s\n%s\n", title, strings.Repeat("═", len([]rune(title))+1))
}

func (t *textWriter) paint(color, s string) string {
	if !t.opts.Color {
		return s
	}
	return color + s + ansiReset
}

func (t *textWriter) mark(symbol, plain string) string {
	if t.opts.Emoji {
		return symbol
	}
	return plain
}

// WriteText renders res the way the CLI prints it.
func WriteText(w io.Writer, res *Result, opts TextOptions) error {
	t := &textWriter{opts: opts}

	t.heading(SymbolFile, "FILE: "+res.Filename)
	if res.Size > 0 || res.Report != nil {
		t.printf("File Size:       %s (%d bytes)\n", FormatFileSize(res.Size), res.Size)
	}
	if res.MD5 != "" {
		t.printf("MD5 Hash:        %s\n", res.MD5)
		t.printf("SHA256 Hash:     %s\n", res.SHA256)
	}

	if res.Report == nil {
		label := "[ERROR]"
		if res.Rejected() {
			label = "[REJECTED]"
		}
		t.printf("\n%s %s\n", t.mark(SymbolCross, label), t.paint(ansiRed, res.Error))
		if res.ELF != nil {
			t.printf("Detected:        %s, %d sections, %d segments\n", res.ELF, res.ELF.Sections, res.ELF.Segments)
		}
		t.printf("\n")
		_, err := io.WriteString(w, t.b.String())
		return err
	}

	r := res.Report
	t.printf("\n")
	t.heading(SymbolHdr, "HEADERS")
	t.printf("PE Header At:    0x%08X\n", r.HeaderOffset)
	t.printf("Machine Type:    %s (0x%04X)\n", perw.MachineName(r.Machine), r.Machine)
	t.printf("Architecture:    %s\n", r.Architecture)
	t.printf("File Type:       %s\n", r.FileType())
	t.printf("Compile Time:    %s\n", perw.FormatTimestamp(r.TimeDateStamp))
	t.printf("Characteristics: %s\n", perw.DescribeFileCharacteristics(r.FileCharacteristics))
	t.printf("Entry Point:     0x%08X\n", r.EntryPoint)
	t.printf("Image Base:      0x%X\n", r.ImageBase)
	t.printf("Sections:        %d declared, %d parsed\n", r.NumberOfSections, len(r.Sections))
	if r.HasOverlay {
		t.printf("Overlay:         %s at 0x%08X\n", FormatFileSize(r.OverlaySize), r.OverlayOffset)
	}
	t.printf("\n")

	t.heading(SymbolTable, "SECTIONS")
	if len(r.Sections) == 0 {
		t.printf("%s No sections found\n", t.mark(SymbolCross, "-"))
	} else {
		t.printf("%-3s %-10s %-10s %-10s %-10s %-10s %-16s %s\n",
			"#", "Name", "VirtAddr", "VirtSize", "RawPtr", "RawSize", "Flags", "Entropy")
		for _, s := range r.Sections {
			entropy := fmt.Sprintf("%.2f", s.Entropy)
			t.printf("%-3d %-10s 0x%08X 0x%08X 0x%08X 0x%08X %-16s %s\n",
				s.Index, TruncateString(s.Name, 10), s.VirtualAddress, s.VirtualSize,
				s.PointerToRawData, s.SizeOfRawData, perw.DescribeSectionFlags(s.Characteristics),
				t.paint(EntropyColor(s.Entropy), entropy))
		}
	}
	t.printf("\n")

	t.heading(SymbolAlert, "WARNINGS")
	if len(r.Warnings) == 0 {
		t.printf("%s No issues found\n", t.mark(SymbolCheck, "-"))
	}
	for _, warn := range r.Warnings {
		t.printf("   %s %s\n", t.mark(SymbolWarn, "*"), warn)
	}
	t.printf("\n")

	verdict := r.Status.String()
	if opts.Emoji {
		verdict = StatusSymbol(r.Status) + " " + verdict
	}
	t.printf("STATUS: %s\n\n", t.paint(StatusColor(r.Status), verdict))

	_, err := io.WriteString(w, t.b.String())
	return err
}
