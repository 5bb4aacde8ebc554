package main

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
	"github.com/strandbio/duplex/read"
)

// readRow is one basecalled read in the tab-delimited interchange dump:
// identity, acquisition metadata, basecall and the move table, with the
// raw signal and moves packed as comma-separated and digit-string
// columns.
type readRow struct {
	ID         string
	StartTime  string
	SampleRate int
	Stride     int
	Seq        string
	Qstring    string
	Moves      string
	Raw        string
}

func parseRow(row *readRow) (*read.Read, error) {
	if len(row.Seq) != len(row.Qstring) {
		return nil, errors.New("sequence/quality length mismatch for read " + row.ID)
	}
	moves := make([]uint8, len(row.Moves))
	for i := 0; i < len(row.Moves); i++ {
		switch row.Moves[i] {
		case '0':
			moves[i] = 0
		case '1':
			moves[i] = 1
		default:
			return nil, errors.New("bad move table character in read " + row.ID)
		}
	}
	var raw []float32
	if row.Raw != "" {
		cols := strings.Split(row.Raw, ",")
		raw = make([]float32, len(cols))
		for i, c := range cols {
			v, err := strconv.ParseFloat(c, 32)
			if err != nil {
				return nil, errors.E(err, "bad raw signal value in read "+row.ID)
			}
			raw[i] = float32(v)
		}
	}
	r := &read.Read{
		ID:          row.ID,
		Raw:         raw,
		SampleRate:  uint64(row.SampleRate),
		ModelStride: row.Stride,
		Seq:         row.Seq,
		Qstring:     row.Qstring,
		Moves:       moves,
		Attributes:  read.Attributes{StartTime: row.StartTime},
	}
	r.CheckMoveInvariants()
	return r, nil
}

// loadReads streams the reads of one dump file into push.
func loadReads(path string, push func(*read.Read) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.E(err, "opening reads file:", path)
	}
	defer f.Close()

	reader := tsv.NewReader(f)
	reader.Comment = '#'
	for {
		var row readRow
		if err := reader.Read(&row); err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.E(err, "malformed read row in", path)
		}
		r, err := parseRow(&row)
		if err != nil {
			return err
		}
		if err := push(r); err != nil {
			return err
		}
	}
}
