package perw

import "fmt"

// finding is one heuristic result: the warning to record and the status it
// proposes. The proposal is merged with max, so findings can be applied in
// any order.
type finding struct {
	Warning string
	Status  Status
}

// sectionCheck inspects one section in isolation.
type sectionCheck func(s Section, fileSize int64) (finding, bool)

// imageCheck runs once over the whole section list.
type imageCheck func(sections []Section, entryPoint uint32) (finding, bool)

var (
	sectionChecks = []sectionCheck{checkTruncated, checkRWX}
	imageChecks   = []imageCheck{checkEntryPoint}
)

func escalate(cur, proposed Status) Status {
	return max(cur, proposed)
}

func checkTruncated(s Section, fileSize int64) (finding, bool) {
	if s.rawEnd() <= uint64(fileSize) {
		return finding{}, false
	}
	return finding{
		Warning: fmt.Sprintf("Corruption: Section '%s' is truncated (goes past end of file).", s.Name),
		Status:  StatusCorrupted,
	}, true
}

func checkRWX(s Section, _ int64) (finding, bool) {
	if !s.IsExecutable() || !s.IsWritable() {
		return finding{}, false
	}
	return finding{
		Warning: fmt.Sprintf("Suspicious: Section '%s' is both WRITABLE and EXECUTABLE (often used by malware/packers).", s.Name),
		Status:  StatusSuspicious,
	}, true
}

func checkEntryPoint(sections []Section, entryPoint uint32) (finding, bool) {
	if entryPoint == 0 {
		return finding{}, false
	}
	for _, s := range sections {
		if s.containsRVA(entryPoint) {
			return finding{}, false
		}
	}
	return finding{
		Warning: "Suspicious: Entry Point does not point to any known section.",
		Status:  StatusSuspicious,
	}, true
}

// runChecks applies every section check to every section, then the image
// checks, without short-circuiting.
func runChecks(status Status, sections []Section, fileSize int64, entryPoint uint32,
	perSection []sectionCheck, perImage []imageCheck,
) (Status, []string) {
	var warnings []string
	for _, s := range sections {
		for _, check := range perSection {
			if f, ok := check(s, fileSize); ok {
				warnings = append(warnings, f.Warning)
				status = escalate(status, f.Status)
			}
		}
	}
	for _, check := range perImage {
		if f, ok := check(sections, entryPoint); ok {
			warnings = append(warnings, f.Warning)
			status = escalate(status, f.Status)
		}
	}
	return status, warnings
}

func (pj *parsingJob) analyze() {
	status, warnings := runChecks(pj.status, pj.sections, pj.r.Size(), pj.opt.EntryPoint,
		sectionChecks, imageChecks)
	pj.status = status
	pj.warnings = append(pj.warnings, warnings...)
}

// rawRange identifies a section's raw data for entropy reuse.
type rawRange struct {
	ptr, size uint32
}

// measureSections fills informational fields (entropy, overlay) that never
// affect the status. Sections whose raw data is not fully inside the file
// are skipped. Each distinct raw range is hashed once and the bytes hashed
// per analysis never exceed the file size; sections past that budget keep
// an entropy of 0.
func measureSections(pj *parsingJob) error {
	size := pj.r.Size()
	budget := size
	seen := make(map[rawRange]float64)
	var scratch []byte
	var end uint64
	for i := range pj.sections {
		s := &pj.sections[i]
		if s.SizeOfRawData == 0 || s.rawEnd() > uint64(size) {
			continue
		}
		end = max(end, s.rawEnd())

		key := rawRange{s.PointerToRawData, s.SizeOfRawData}
		if e, ok := seen[key]; ok {
			s.Entropy = e
			continue
		}
		n := int64(s.SizeOfRawData)
		if n > budget {
			continue
		}
		if int64(cap(scratch)) < n {
			scratch = make([]byte, n)
		}
		buf := scratch[:n]
		if err := pj.r.ReadInto(int64(s.PointerToRawData), buf); err != nil {
			continue
		}
		budget -= n
		pj.hashedBytes += n
		s.Entropy = CalculateEntropy(buf)
		seen[key] = s.Entropy
	}
	if end > 0 && uint64(size) > end {
		pj.overlayOffset = int64(end)
		pj.overlaySize = size - int64(end)
	}
	return nil
}
