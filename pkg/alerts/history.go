package alerts

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/hardenlab/resilience-go/pkg/cerrors"
	"github.com/hardenlab/resilience-go/pkg/log"
)

// loadHistory restores alert state from the history file. A missing file is
// a clean first start; a malformed entry is skipped with a warning.
func (m *Manager) loadHistory() error {
	raw, err := os.ReadFile(m.config.HistoryFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return cerrors.AlertDispatch{Channel: "history", Reason: err.Error()}
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.Warnf("[Alert]: History file %v is not a JSON array, starting empty, %v", m.config.HistoryFile, err)
		return nil
	}

	loaded := 0
	for i, entry := range entries {
		var alert Alert
		if err := json.Unmarshal(entry, &alert); err != nil {
			log.Warnf("[Alert]: Skipping malformed history entry #%v, %v", i, err)
			continue
		}
		if alert.ID == "" {
			log.Warnf("[Alert]: Skipping history entry #%v with no id", i)
			continue
		}
		m.alerts[alert.ID] = &alert
		loaded++
	}
	if loaded > 0 {
		log.Infof("[Alert]: Restored %v alerts from %v", loaded, m.config.HistoryFile)
	}
	return nil
}

// persistLocked rewrites the full history file with write-then-rename
// semantics; m.mu must be held. Persistence failures are logged, not fatal,
// so a full disk cannot take the alerting path down.
func (m *Manager) persistLocked() {
	alerts := make([]*Alert, 0, len(m.alerts))
	for _, alert := range m.alerts {
		alerts = append(alerts, alert)
	}
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].CreatedAt.Before(alerts[j].CreatedAt) })

	raw, err := json.MarshalIndent(alerts, "", "  ")
	if err != nil {
		log.Warnf("[Alert]: Unable to encode alert history, %v", err)
		return
	}
	tmp := m.config.HistoryFile + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		log.Warnf("[Alert]: Unable to write alert history, %v", err)
		return
	}
	if err := os.Rename(tmp, m.config.HistoryFile); err != nil {
		os.Remove(tmp)
		log.Warnf("[Alert]: Unable to replace alert history, %v", err)
	}
}
