package baseline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hardenlab/resilience-go/pkg/cerrors"
	"github.com/hardenlab/resilience-go/pkg/log"
)

// Format selects the wire shape for baseline import/export
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

var csvHeader = []string{
	"id", "testType", "testName", "createdAt", "version", "commit", "tags",
	"respMeanMs", "respP95Ms", "respP99Ms", "requestsPerSecond",
	"errorRatePercent", "totalRequests", "failedRequests",
	"avgCpuPercent", "avgMemoryPercent",
}

// ExportBaselines writes every indexed record in the requested format,
// ordered by test type then capture time
func (s *Store) ExportBaselines(w io.Writer, format Format) error {
	s.mu.RLock()
	records := make([]*Record, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record)
	}
	s.mu.RUnlock()
	sort.Slice(records, func(i, j int) bool {
		if records[i].TestType != records[j].TestType {
			return records[i].TestType < records[j].TestType
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeader); err != nil {
			return err
		}
		for _, record := range records {
			if err := cw.Write(toCSVRow(record)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		return cerrors.BaselineCRUD{Operation: "export", Reason: fmt.Sprintf("unsupported format '%s'", format)}
	}
}

// ImportBaselines validates and persists records from the reader; invalid
// entries are skipped with a warning. Returns the number of records accepted.
func (s *Store) ImportBaselines(r io.Reader, format Format) (int, error) {
	var candidates []*Record
	switch format {
	case FormatJSON:
		var raws []json.RawMessage
		if err := json.NewDecoder(r).Decode(&raws); err != nil {
			return 0, cerrors.BaselineCRUD{Operation: "import", Reason: err.Error()}
		}
		for i, raw := range raws {
			record, err := decodeRecord(raw)
			if err != nil {
				log.Warnf("[Baseline]: Skipping invalid imported record #%v, %v", i, err)
				continue
			}
			candidates = append(candidates, record)
		}
	case FormatCSV:
		cr := csv.NewReader(r)
		rows, err := cr.ReadAll()
		if err != nil {
			return 0, cerrors.BaselineCRUD{Operation: "import", Reason: err.Error()}
		}
		for i, row := range rows {
			if i == 0 && len(row) > 0 && row[0] == "id" {
				continue
			}
			record, err := fromCSVRow(row)
			if err != nil {
				log.Warnf("[Baseline]: Skipping invalid CSV row %v, %v", i, err)
				continue
			}
			candidates = append(candidates, record)
		}
	default:
		return 0, cerrors.BaselineCRUD{Operation: "import", Reason: fmt.Sprintf("unsupported format '%s'", format)}
	}

	imported := 0
	for _, record := range candidates {
		if _, exists := s.Get(record.ID); exists {
			continue
		}
		if err := s.persist(record); err != nil {
			log.Warnf("[Baseline]: Unable to persist imported record %v, %v", record.ID, err)
			continue
		}
		s.mu.Lock()
		s.index(record)
		s.mu.Unlock()
		imported++
	}
	log.Infof("[Baseline]: Imported %v of %v records", imported, len(candidates))
	return imported, nil
}

// decodeRecord unmarshals one record and enforces the structural contract:
// identity fields present and all four metric groups in place
func decodeRecord(raw []byte) (*Record, error) {
	var probe struct {
		ID       string                     `json:"id"`
		TestType string                     `json:"testType"`
		Metrics  map[string]json.RawMessage `json:"metrics"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	if probe.ID == "" {
		return nil, fmt.Errorf("record is missing an id")
	}
	if probe.TestType == "" {
		return nil, fmt.Errorf("record %s is missing a test type", probe.ID)
	}
	for _, group := range []string{"responseTime", "throughput", "errors", "resources"} {
		if _, ok := probe.Metrics[group]; !ok {
			return nil, fmt.Errorf("record %s is missing the %s metric group", probe.ID, group)
		}
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func toCSVRow(r *Record) []string {
	return []string{
		r.ID,
		r.TestType,
		r.TestConfig.Name,
		r.CreatedAt.Format(time.RFC3339Nano),
		r.Version,
		r.Commit,
		strings.Join(r.Tags, ";"),
		formatFloat(r.Metrics.ResponseTime.MeanMs),
		formatFloat(r.Metrics.ResponseTime.P95Ms),
		formatFloat(r.Metrics.ResponseTime.P99Ms),
		formatFloat(r.Metrics.Throughput.RequestsPerSecond),
		formatFloat(r.Metrics.Errors.ErrorRatePercent),
		strconv.FormatInt(r.Metrics.Errors.TotalRequests, 10),
		strconv.FormatInt(r.Metrics.Errors.FailedRequests, 10),
		formatFloat(r.Metrics.Resources.AvgCPUPercent),
		formatFloat(r.Metrics.Resources.AvgMemoryPercent),
	}
}

func fromCSVRow(row []string) (*Record, error) {
	if len(row) != len(csvHeader) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(csvHeader), len(row))
	}
	if row[0] == "" {
		return nil, fmt.Errorf("row is missing an id")
	}
	if row[1] == "" {
		return nil, fmt.Errorf("row %s is missing a test type", row[0])
	}
	createdAt, err := time.Parse(time.RFC3339Nano, row[3])
	if err != nil {
		return nil, fmt.Errorf("row %s has an invalid timestamp: %v", row[0], err)
	}

	record := &Record{
		ID:         row[0],
		TestType:   row[1],
		TestConfig: TestConfig{Name: row[2]},
		CreatedAt:  createdAt,
		Version:    row[4],
		Commit:     row[5],
	}
	if row[6] != "" {
		record.Tags = strings.Split(row[6], ";")
	}

	floats := make([]float64, 0, 8)
	for _, idx := range []int{7, 8, 9, 10, 11, 14, 15} {
		v, err := strconv.ParseFloat(row[idx], 64)
		if err != nil {
			return nil, fmt.Errorf("row %s column %s is not numeric: %v", row[0], csvHeader[idx], err)
		}
		floats = append(floats, v)
	}
	record.Metrics.ResponseTime = ResponseTimeMetrics{MeanMs: floats[0], P95Ms: floats[1], P99Ms: floats[2]}
	record.Metrics.Throughput = ThroughputMetrics{RequestsPerSecond: floats[3]}
	record.Metrics.Errors.ErrorRatePercent = floats[4]
	record.Metrics.Resources = ResourceMetrics{AvgCPUPercent: floats[5], AvgMemoryPercent: floats[6]}

	if record.Metrics.Errors.TotalRequests, err = strconv.ParseInt(row[12], 10, 64); err != nil {
		return nil, fmt.Errorf("row %s column totalRequests is not numeric: %v", row[0], err)
	}
	if record.Metrics.Errors.FailedRequests, err = strconv.ParseInt(row[13], 10, 64); err != nil {
		return nil, fmt.Errorf("row %s column failedRequests is not numeric: %v", row[0], err)
	}
	return record, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
