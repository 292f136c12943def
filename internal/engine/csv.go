package engine

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

// Column affinities produced by CSV type inference.
const (
	typeInteger = "INTEGER"
	typeReal    = "REAL"
	typeBoolean = "BOOLEAN"
	typeText    = "TEXT"
)

type csvFrame struct {
	headers []string
	types   []string
	records [][]string
}

// parseCSV reads a header line plus data rows and infers one affinity per
// column by scanning every value in that column.
func parseCSV(content string) (csvFrame, error) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return csvFrame{}, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return csvFrame{}, fmt.Errorf("csv content is empty")
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	data := records[1:]
	types := make([]string, len(headers))
	for i := range headers {
		types[i] = inferColumnType(data, i)
	}

	return csvFrame{headers: headers, types: types, records: data}, nil
}

func inferColumnType(records [][]string, col int) string {
	sawValue := false
	isInteger := true
	isReal := true
	isBoolean := true

	for _, record := range records {
		if col >= len(record) {
			continue
		}
		value := strings.TrimSpace(record[col])
		if value == "" {
			continue
		}
		sawValue = true
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			isInteger = false
		}
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			isReal = false
		}
		lower := strings.ToLower(value)
		if lower != "true" && lower != "false" {
			isBoolean = false
		}
	}

	switch {
	case !sawValue:
		return typeText
	case isBoolean:
		return typeBoolean
	case isInteger:
		return typeInteger
	case isReal:
		return typeReal
	default:
		return typeText
	}
}

// convertValue maps a raw CSV cell to a driver value for its column type.
// Empty cells become NULL.
func convertValue(raw, columnType string) any {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}
	switch columnType {
	case typeInteger:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	case typeReal:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	case typeBoolean:
		return strings.EqualFold(value, "true")
	}
	return value
}
