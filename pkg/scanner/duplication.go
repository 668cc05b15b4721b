package scanner

import "strings"

// DuplicatedBlock records one region duplicated between two files.
// Offsets are zero-based line indexes into the respective files.
type DuplicatedBlock struct {
	SourceFile  string `json:"source_file"`
	TargetFile  string `json:"target_file"`
	SourceStart int    `json:"source_start"`
	TargetStart int    `json:"target_start"`
	Lines       int    `json:"lines"`
}

// Duplication aggregates the blocks found between one pair of files
type Duplication struct {
	Files  [2]string         `json:"files"`
	Blocks []DuplicatedBlock `json:"blocks"`
}

// DuplicationDetector finds line-level duplication between file pairs.
// The pairwise comparison is quadratic per file pair, which is acceptable
// for the repository sizes this tool targets; callers needing scale should
// pre-filter candidate pairs.
type DuplicationDetector struct {
	// MinLines is the minimum run of matching lines to record a block
	MinLines int
}

// NewDuplicationDetector returns a detector with the standard minimum block size
func NewDuplicationDetector() *DuplicationDetector {
	return &DuplicationDetector{MinLines: 5}
}

// Detect compares two files' line arrays and returns every duplicated block
// of at least MinLines lines. Lines are compared after trimming whitespace,
// and a block never starts on a blank line. After a block is recorded the
// source cursor skips past it, so one duplicated region yields one block
// rather than a ladder of overlapping suffixes.
func (d *DuplicationDetector) Detect(sourceFile string, sourceLines []string, targetFile string, targetLines []string) []DuplicatedBlock {
	var blocks []DuplicatedBlock

	for i := 0; i < len(sourceLines); i++ {
		if strings.TrimSpace(sourceLines[i]) == "" {
			continue
		}
		for j := 0; j < len(targetLines); j++ {
			length := d.matchLength(sourceLines, targetLines, i, j)
			if length < d.MinLines {
				continue
			}
			blocks = append(blocks, DuplicatedBlock{
				SourceFile:  sourceFile,
				TargetFile:  targetFile,
				SourceStart: i,
				TargetStart: j,
				Lines:       length,
			})
			i += length - 1
			break
		}
	}

	return blocks
}

// DetectPair wraps Detect in a Duplication value for the file pair
func (d *DuplicationDetector) DetectPair(sourceFile string, sourceLines []string, targetFile string, targetLines []string) Duplication {
	return Duplication{
		Files:  [2]string{sourceFile, targetFile},
		Blocks: d.Detect(sourceFile, sourceLines, targetFile, targetLines),
	}
}

// matchLength greedily extends a match from (i, j) while trimmed lines are equal
func (d *DuplicationDetector) matchLength(a, b []string, i, j int) int {
	n := 0
	for i+n < len(a) && j+n < len(b) {
		if strings.TrimSpace(a[i+n]) != strings.TrimSpace(b[j+n]) {
			break
		}
		n++
	}
	return n
}
