package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// maxLineBytes bounds a single FASTA line; unwrapped genomes can be long.
var maxLineBytes = 64 << 20

// Record is the sequence body of a FASTA text plus its first description line.
type Record struct {
	Description string
	Sequence    string
}

// ParseFASTA reads FASTA text from r. Every line beginning with '>' is
// discarded (the first one is kept as Description); the remaining lines are
// trimmed, concatenated and uppercased. Plain text without a header is
// accepted as a bare sequence. Character validation is left to the registry.
func ParseFASTA(r io.Reader) (Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(64*1024, maxLineBytes)), maxLineBytes)

	var (
		rec  Record
		body strings.Builder
	)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, ">") {
			if rec.Description == "" {
				rec.Description = strings.TrimSpace(line[1:])
			}
			continue
		}
		body.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return Record{}, fmt.Errorf("fasta line exceeds %d bytes: %w", maxLineBytes, err)
		}
		return Record{}, err
	}
	rec.Sequence = strings.ToUpper(body.String())
	return rec, nil
}

// ParseFASTAString is ParseFASTA over an in-memory string. It fails only
// when a line exceeds the line limit.
func ParseFASTAString(s string) (Record, error) {
	return ParseFASTA(strings.NewReader(s))
}
