package common

import (
	"errors"
	"fmt"
	"io"

	"peinspect/elfrw"
	"peinspect/perw"
)

// Result wraps one analysis for the adapters: the report when the file was
// accepted, the rejection message when it was not, plus file digests.
type Result struct {
	ID       string       `json:"id,omitempty"`
	Filename string       `json:"filename"`
	Size     int64        `json:"size"`
	MD5      string       `json:"md5,omitempty"`
	SHA256   string       `json:"sha256,omitempty"`
	Report   *perw.Report `json:"report,omitempty"`
	Error    string       `json:"error,omitempty"`
	ELF      *elfrw.Info  `json:"elf,omitempty"`

	// Err is the error behind Error. It is nil for accepted files.
	Err error `json:"-"`
}

// Inspect analyzes src and never returns nil. Digests are best effort; a
// failure to hash does not hide the verdict.
func Inspect(name string, src io.ReaderAt, size int64) *Result {
	res := &Result{Filename: name, Size: size}

	if d, err := Digest(src, size); err == nil {
		res.MD5, res.SHA256 = d.MD5, d.SHA256
	}

	report, err := perw.Analyze(src, size)
	if err != nil {
		res.Err = err
		res.Error = err.Error()
		if perw.IsStructural(err) {
			res.ELF = identifyELF(src, size)
			if res.ELF != nil {
				res.Error = fmt.Sprintf("%s (%s, not a PE image)", res.Error, res.ELF)
			}
		}
		return res
	}
	res.Report = report
	return res
}

// maxELFIdentifySize bounds how much of a rejected file is read to
// identify it as ELF. elf_reader needs the whole image in memory.
const maxELFIdentifySize = 32 << 20

func identifyELF(src io.ReaderAt, size int64) *elfrw.Info {
	if size < 16 || size > maxELFIdentifySize {
		return nil
	}
	head := make([]byte, 4)
	if _, err := src.ReadAt(head, 0); err != nil || !elfrw.LooksLikeELF(head) {
		return nil
	}
	data := make([]byte, size)
	if _, err := src.ReadAt(data, 0); err != nil && !errors.Is(err, io.EOF) {
		return nil
	}
	info, err := elfrw.Identify(data)
	if err != nil {
		return nil
	}
	return info
}

// Rejected reports whether the analyzer refused the file as structurally
// invalid.
func (r *Result) Rejected() bool {
	return r.Err != nil && perw.IsStructural(r.Err)
}

// Failed reports whether no report was produced, for any reason.
func (r *Result) Failed() bool {
	return r.Report == nil
}

// AtLeast reports whether the file was accepted with a status of at least
// threshold.
func (r *Result) AtLeast(threshold perw.Status) bool {
	return r.Report != nil && r.Report.Status >= threshold
}

// Verdict is the one-word outcome used in logs and summaries.
func (r *Result) Verdict() string {
	switch {
	case r.Report != nil:
		return r.Report.Status.String()
	case r.Rejected():
		return "Rejected"
	default:
		return "Error"
	}
}

// Failure builds a Result for a file that could not be read at all.
func Failure(name string, err error) *Result {
	return &Result{Filename: name, Err: err, Error: err.Error()}
}
