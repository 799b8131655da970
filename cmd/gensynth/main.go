// Command gensynth writes the synthetic training dataset the predictor fits
// at startup as CSV, so the feature ranges and label balance can be inspected.
//
// Usage:
//
//	go run ./cmd/gensynth -rows 10000 -seed 7 -out data/synthetic.csv
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/couchcryptid/storm-risk-predictor/internal/classifier"
	"github.com/couchcryptid/storm-risk-predictor/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	rows := flag.Int("rows", 10000, "number of rows to generate")
	seed := flag.Uint64("seed", 1, "data seed")
	out := flag.String("out", "", "output CSV path (stdout when empty)")
	flag.Parse()

	if *rows <= 0 {
		flag.Usage()
		return fmt.Errorf("-rows must be positive, got %d", *rows)
	}

	ds := classifier.GenerateSynthetic(*rows, classifier.NewSeededRand(*seed))

	if *out == "" {
		if err := writeCSV(os.Stdout, ds); err != nil {
			return err
		}
	} else if err := writeFile(*out, ds); err != nil {
		return err
	}
	log.Printf("wrote %d rows (%d positive)", len(ds.Y), ds.Positives())
	return nil
}

// writeFile writes the dataset to path, reporting close errors.
func writeFile(path string, ds classifier.Dataset) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return writeCSV(f, ds)
}

func writeCSV(w io.Writer, ds classifier.Dataset) error {
	cw := csv.NewWriter(w)

	header := append(append([]string{}, domain.FeatureNames[:]...), "label")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(header))
	for i, row := range ds.X {
		for j, v := range row {
			record[j] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		record[len(row)] = strconv.Itoa(ds.Y[i])
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
