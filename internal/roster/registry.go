package roster

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// parseRegistry reads the EDINET filer code list archive and returns a map
// from 4-digit securities code to registry code. The archive holds one CSV in
// Shift_JIS with two header rows; listed filers carry a 5-digit securities
// code whose last digit is always zero.
func parseRegistry(archive []byte) (map[string]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, eris.Wrap(err, "roster: open code list archive")
	}

	var csvFile *zip.File
	for _, f := range zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			csvFile = f
			break
		}
	}
	if csvFile == nil {
		return nil, eris.New("roster: code list archive has no csv")
	}

	rc, err := csvFile.Open()
	if err != nil {
		return nil, eris.Wrap(err, "roster: open code list csv")
	}
	defer rc.Close() //nolint:errcheck

	reader := csv.NewReader(transform.NewReader(rc, japanese.ShiftJIS.NewDecoder()))
	reader.FieldsPerRecord = -1

	registry := make(map[string]string)
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "roster: read code list csv")
		}
		line++
		if line <= 2 { // title row and column header row
			continue
		}
		if len(record) < 12 {
			continue
		}
		edinetCode := strings.TrimSpace(record[0])
		secCode := strings.TrimSpace(record[11])
		if edinetCode == "" || len(secCode) < 4 {
			continue
		}
		registry[secCode[:4]] = edinetCode
	}
	if len(registry) == 0 {
		return nil, eris.New("roster: code list yielded no mappings")
	}
	return registry, nil
}
