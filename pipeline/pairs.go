package pipeline

import (
	"io"
	"os"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
)

type pairRow struct {
	Template   string
	Complement string
}

// LoadPairsFile reads a two-column delimited file of template/complement
// read IDs and returns the template→complement map together with the set
// of every read ID mentioned.
func LoadPairsFile(path string) (map[string]string, map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.E(err, "opening pairs file:", path)
	}
	defer f.Close()
	return ReadPairs(f)
}

// ReadPairs is LoadPairsFile over an arbitrary reader.
func ReadPairs(r io.Reader) (map[string]string, map[string]bool, error) {
	reader := tsv.NewReader(r)
	reader.Comment = '#'

	pairs := make(map[string]string)
	ids := make(map[string]bool)
	for {
		var row pairRow
		if err := reader.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, nil, errors.E(err, "malformed pairs file row")
		}
		if row.Template == "" || row.Complement == "" {
			return nil, nil, errors.New("pairs file row missing a read ID")
		}
		pairs[row.Template] = row.Complement
		ids[row.Template] = true
		ids[row.Complement] = true
	}
	return pairs, ids, nil
}
