package baseline

import (
	"bytes"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordIDs(store *Store, testType string) []string {
	var ids []string
	for _, record := range store.List(testType) {
		ids = append(ids, record.ID)
	}
	sort.Strings(ids)
	return ids
}

func TestExportImport_JSONRoundTrip(t *testing.T) {
	source := newTestStore(t)
	for i := 0; i < 3; i++ {
		_, err := source.RecordBaseline("load", TestConfig{Name: "checkout"}, referenceMetrics(), RecordOptions{Version: "v1"})
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, source.ExportBaselines(&buf, FormatJSON))

	target := newTestStore(t)
	imported, err := target.ImportBaselines(&buf, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 3, imported)

	assert.Equal(t, recordIDs(source, "load"), recordIDs(target, "load"), "imported records must keep their ids")

	for _, id := range recordIDs(source, "load") {
		original, _ := source.Get(id)
		copied, ok := target.Get(id)
		require.True(t, ok)
		assert.Equal(t, original.Metrics, copied.Metrics)
		assert.Equal(t, original.Version, copied.Version)
	}
}

func TestExportImport_CSVRoundTrip(t *testing.T) {
	source := newTestStore(t)
	_, err := source.RecordBaseline("stress", TestConfig{Name: "spike"}, referenceMetrics(), RecordOptions{
		Version: "v2.1.0",
		Tags:    []string{"release", "eu"},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, source.ExportBaselines(&buf, FormatCSV))

	target := newTestStore(t)
	imported, err := target.ImportBaselines(&buf, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 1, imported)

	original := source.List("stress")[0]
	copied, ok := target.Get(original.ID)
	require.True(t, ok)
	assert.Equal(t, original.Metrics, copied.Metrics)
	assert.Equal(t, original.Tags, copied.Tags)
	assert.Equal(t, "v2.1.0", copied.Version)
}

func TestImport_SkipsInvalidRecords(t *testing.T) {
	target := newTestStore(t)

	payload := `[
	  {"id": "", "testType": "load", "metrics": {"responseTime": {}, "throughput": {}, "errors": {}, "resources": {}}},
	  {"id": "no-groups-1", "testType": "load", "metrics": {"responseTime": {}}},
	  {"id": "good-1", "testType": "load", "testConfig": {"name": "checkout"},
	   "metrics": {"responseTime": {"meanMs": 100}, "throughput": {"requestsPerSecond": 50}, "errors": {"errorRatePercent": 1}, "resources": {"avgCpuPercent": 40, "avgMemoryPercent": 40}},
	   "createdAt": "2026-08-01T12:00:00Z"}
	]`
	imported, err := target.ImportBaselines(bytes.NewBufferString(payload), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 1, imported, "invalid entries must be skipped, not fatal")

	_, ok := target.Get("good-1")
	assert.True(t, ok)
}

func TestImport_SkipsDuplicates(t *testing.T) {
	store := newTestStore(t)
	_, err := store.RecordBaseline("load", TestConfig{Name: "checkout"}, referenceMetrics(), RecordOptions{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, store.ExportBaselines(&buf, FormatJSON))

	imported, err := store.ImportBaselines(&buf, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 0, imported, "records already present must not be imported twice")
	assert.Equal(t, 1, store.Count())
}

func TestImport_UnsupportedFormat(t *testing.T) {
	store := newTestStore(t)
	_, err := store.ImportBaselines(bytes.NewBufferString("[]"), Format("xml"))
	assert.Error(t, err)

	var buf bytes.Buffer
	assert.Error(t, store.ExportBaselines(&buf, Format("xml")))
}

func TestDecodeRecord_StructuralValidation(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"id": "a", "testType": "load", "metrics": {"responseTime": {}, "throughput": {}, "errors": {}, "resources": {}}}`, false},
		{"missing id", `{"testType": "load", "metrics": {"responseTime": {}, "throughput": {}, "errors": {}, "resources": {}}}`, true},
		{"missing test type", `{"id": "a", "metrics": {"responseTime": {}, "throughput": {}, "errors": {}, "resources": {}}}`, true},
		{"missing resources group", `{"id": "a", "testType": "load", "metrics": {"responseTime": {}, "throughput": {}, "errors": {}}}`, true},
		{"no metrics at all", `{"id": "a", "testType": "load"}`, true},
		{"not json", `{"id": `, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodeRecord([]byte(tc.raw))
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
