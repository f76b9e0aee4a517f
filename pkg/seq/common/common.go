// 29 Apr 2020
// 12 Oct 2026 missing-field sentinels and the label separator moved here

package common

import (
	"fmt"
	"io"
	"os"
)

const (
	ExitSuccess = iota
	ExitFailure
	ExitUsageError
)

const GapChar byte = '-' // a minus sign is always used for gaps

const (
	CmmtChar byte = '>' // starts a comment (header) line in fasta format
	LabelSep      = "_" // joins group id and taxon name in exported labels
	MultiSep      = "," // separates gene ids in one ortholog table field
	CPerLine      = 60  // residues per line when writing fasta
)

// DfltMissing are the strings an ortholog table uses to say a taxon
// has no member in a group. proteinortho writes "*", pandas
// round trips write "nan".
var DfltMissing = []string{"", "*", "nan", "NA", "-"}

// WrtTemp writes a string to a temporary file and returns
// the filename. It is used all over the place in testing.
func WrtTemp(s string) (string, error) {
	f_tmp, err := os.CreateTemp("", "_del_me_testing")
	if err != nil {
		return "", fmt.Errorf("tempfile fail: %w", err)
	}

	if _, err := io.WriteString(f_tmp, s); err != nil {
		f_tmp.Close()
		return "", fmt.Errorf("writing string to temp file %v: %w", f_tmp.Name(), err)
	}
	name := f_tmp.Name()
	f_tmp.Close()
	return name, nil
}
