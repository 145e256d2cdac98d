package dcs

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ConfigBlob is the agent configuration document stored under the DCS config
// key. Only the access-control list is edited here; every other field is
// kept verbatim so the blob can be written back wholesale.
type ConfigBlob struct {
	raw map[string]json.RawMessage
	pg  map[string]json.RawMessage
	hba []string
}

// ParseConfigBlob decodes the JSON configuration blob.
func ParseConfigBlob(data []byte) (*ConfigBlob, error) {
	b := &ConfigBlob{}
	if err := json.Unmarshal(data, &b.raw); err != nil {
		return nil, fmt.Errorf("dcs: decode config blob: %w", err)
	}
	if pgRaw, ok := b.raw["postgresql"]; ok {
		if err := json.Unmarshal(pgRaw, &b.pg); err != nil {
			return nil, fmt.Errorf("dcs: decode postgresql section: %w", err)
		}
		if hbaRaw, ok := b.pg["pg_hba"]; ok {
			if err := json.Unmarshal(hbaRaw, &b.hba); err != nil {
				return nil, fmt.Errorf("dcs: decode pg_hba: %w", err)
			}
		}
	}
	return b, nil
}

// PgHba returns the access-control lines, in order.
func (b *ConfigBlob) PgHba() []string {
	out := make([]string, len(b.hba))
	copy(out, b.hba)
	return out
}

// SetPgHba replaces the access-control lines.
func (b *ConfigBlob) SetPgHba(lines []string) {
	b.hba = make([]string, len(lines))
	copy(b.hba, lines)
}

// Encode re-serializes the blob with the current access-control list and all
// untouched fields preserved.
func (b *ConfigBlob) Encode() ([]byte, error) {
	if b.raw == nil {
		b.raw = make(map[string]json.RawMessage)
	}
	pg := make(map[string]json.RawMessage, len(b.pg)+1)
	for k, v := range b.pg {
		pg[k] = v
	}
	hbaData, err := json.Marshal(b.hba)
	if err != nil {
		return nil, err
	}
	pg["pg_hba"] = hbaData
	pgData, err := json.Marshal(pg)
	if err != nil {
		return nil, err
	}
	b.raw["postgresql"] = pgData
	return json.Marshal(b.raw)
}

// hostEntry is the marker used to match access-control lines that reference
// a specific node address.
func hostEntry(addr string) string {
	return " " + addr + "/32 "
}

// HasNodeEntry reports whether any access-control line references addr.
func HasNodeEntry(hba []string, addr string) bool {
	marker := hostEntry(addr)
	for _, line := range hba {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// AddNodeEntries prepends the standard superuser and replication entries
// for a node joining the cluster.
func AddNodeEntries(hba []string, addr string) []string {
	entries := []string{
		fmt.Sprintf("hostssl all postgres %s/32 md5", addr),
		fmt.Sprintf("hostssl replication replicator %s/32 md5", addr),
	}
	return append(entries, hba...)
}

// RemoveNodeEntries drops every access-control line referencing addr and
// leaves the remaining lines untouched.
func RemoveNodeEntries(hba []string, addr string) []string {
	marker := hostEntry(addr)
	kept := make([]string, 0, len(hba))
	for _, line := range hba {
		if !strings.Contains(line, marker) {
			kept = append(kept, line)
		}
	}
	return kept
}
