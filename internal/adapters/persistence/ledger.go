package persistence

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const ledgerSeparator = "::"

// Record is one ledger line: the durable identity and history of an item.
// Ratings are not part of the ledger.
type Record struct {
	Reference string
	ID        string
	Matchups  int
}

// EncodeLedger serializes records one per line. A reference containing the
// separator cannot be read back and is rejected.
func EncodeLedger(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	for i, r := range records {
		if strings.Contains(r.Reference, ledgerSeparator) || strings.ContainsAny(r.Reference, "\r\n") {
			return nil, &LedgerError{Line: i + 1, Text: r.Reference, Err: ErrMalformedLedgerRecord}
		}
		fmt.Fprintf(&buf, "%s%s%s%s%d\n", r.Reference, ledgerSeparator, r.ID, ledgerSeparator, r.Matchups)
	}
	return buf.Bytes(), nil
}

// DecodeLedger parses a ledger. Blank lines are skipped; any other line that
// does not hold exactly three fields, a non-empty id and a non-negative count
// fails the whole read. Duplicate ids fail too.
func DecodeLedger(r io.Reader) ([]Record, error) {
	var out []Record
	seen := make(map[string]int)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts := strings.Split(text, ledgerSeparator)
		if len(parts) != 3 {
			return nil, &LedgerError{Line: line, Text: text, Err: ErrMalformedLedgerRecord}
		}
		if parts[1] == "" {
			return nil, &LedgerError{Line: line, Text: text, Err: fmt.Errorf("%w: empty id", ErrMalformedLedgerRecord)}
		}
		n, err := strconv.Atoi(parts[2])
		if err != nil || n < 0 {
			return nil, &LedgerError{Line: line, Text: text, Err: fmt.Errorf("%w: bad matchup count", ErrMalformedLedgerRecord)}
		}
		if first, dup := seen[parts[1]]; dup {
			return nil, &LedgerError{Line: line, Text: text,
				Err: fmt.Errorf("%w: id %s already on line %d", ErrMalformedLedgerRecord, parts[1], first)}
		}
		seen[parts[1]] = line
		out = append(out, Record{Reference: parts[0], ID: parts[1], Matchups: n})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
