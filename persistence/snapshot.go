package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/docweave/docweave/id"
	"github.com/docweave/docweave/node"
	"github.com/docweave/docweave/pool"
	"github.com/docweave/docweave/state"
)

func nodeIdFromString(s string) id.NodeId { return id.NodeId(s) }

// snapshotBlob is the zstd-compressed payload spec.md §4.6 describes: "a
// zstd-compressed blob of {node_pool_bytes, plugin_fields: map<key,
// bytes>}". node_pool_bytes is represented here as the flat node list plus
// root id; plugin_fields values are each plugin's own json.Marshal of its
// opaque field value, keyed by PluginKey.String().
type snapshotBlob struct {
	Root         string                     `json:"root"`
	Nodes        []node.Node                `json:"nodes"`
	PluginFields map[string]json.RawMessage `json:"plugin_fields"`
}

// sidecar is the JSON file written alongside each snapshot blob (spec.md
// §6.3: "sidecar JSON with {upto_lsn, version, schema_hash}").
type sidecar struct {
	UptoLSN    uint64 `json:"upto_lsn"`
	Version    uint64 `json:"version"`
	SchemaHash string `json:"schema_hash"`
}

func snapshotDir(dir string) string { return filepath.Join(dir, "snapshots") }

func snapshotBlobPath(dir string, lsn uint64) string {
	return filepath.Join(snapshotDir(dir), fmt.Sprintf("snapshot-%d.bin", lsn))
}

func snapshotSidecarPath(dir string, lsn uint64) string {
	return filepath.Join(snapshotDir(dir), fmt.Sprintf("snapshot-%d.json", lsn))
}

// writeSnapshot serializes s's document and plugin fields, zstd-compresses
// the blob, and writes it plus its sidecar atomically (write-temp +
// rename, spec.md §6.3).
func writeSnapshot(dir string, enc *zstd.Encoder, s *state.State, schemaHash string, uptoLSN uint64) (string, error) {
	var nodes []node.Node
	s.Doc().All(func(n node.Node) { nodes = append(nodes, n) })

	fields := s.PluginFields()
	encodedFields := make(map[string]json.RawMessage, len(fields))
	for key, value := range fields {
		raw, err := json.Marshal(value)
		if err != nil {
			return "", newSnapshotCorrupt(dir, "encode plugin field %q: %v", key.String(), err)
		}
		encodedFields[key.String()] = raw
	}

	blob := snapshotBlob{Root: s.Doc().Root().String(), Nodes: nodes, PluginFields: encodedFields}
	raw, err := json.Marshal(blob)
	if err != nil {
		return "", newSnapshotCorrupt(dir, "encode blob: %v", err)
	}
	compressed := enc.EncodeAll(raw, nil)

	if err := os.MkdirAll(snapshotDir(dir), 0o755); err != nil {
		return "", newIoError("mkdir snapshots", err)
	}

	blobPath := snapshotBlobPath(dir, uptoLSN)
	if err := writeFileAtomic(blobPath, compressed); err != nil {
		return "", err
	}

	sc := sidecar{UptoLSN: uptoLSN, Version: s.Version(), SchemaHash: schemaHash}
	scRaw, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return "", newSnapshotCorrupt(dir, "encode sidecar: %v", err)
	}
	if err := writeFileAtomic(snapshotSidecarPath(dir, uptoLSN), scRaw); err != nil {
		return "", err
	}
	return blobPath, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return newIoError("write "+path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return newIoError("rename "+path, err)
	}
	return nil
}

// latestSnapshot returns the sidecar and blob path of the snapshot with
// the highest upto_lsn in dir, or ok=false if none exist.
func latestSnapshot(dir string) (sc sidecar, blobPath string, ok bool, err error) {
	entries, readErr := os.ReadDir(snapshotDir(dir))
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return sidecar{}, "", false, nil
		}
		return sidecar{}, "", false, newIoError("readdir snapshots", readErr)
	}

	var lsns []uint64
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		trimmed := strings.TrimSuffix(strings.TrimPrefix(name, "snapshot-"), ".json")
		lsn, convErr := strconv.ParseUint(trimmed, 10, 64)
		if convErr != nil {
			continue
		}
		lsns = append(lsns, lsn)
	}
	if len(lsns) == 0 {
		return sidecar{}, "", false, nil
	}
	sort.Slice(lsns, func(i, j int) bool { return lsns[i] > lsns[j] })
	newest := lsns[0]

	scRaw, readErr := os.ReadFile(snapshotSidecarPath(dir, newest))
	if readErr != nil {
		return sidecar{}, "", false, newIoError("read sidecar", readErr)
	}
	if jsonErr := json.Unmarshal(scRaw, &sc); jsonErr != nil {
		return sidecar{}, "", false, newSnapshotCorrupt(dir, "decode sidecar: %v", jsonErr)
	}
	return sc, snapshotBlobPath(dir, newest), true, nil
}

// readSnapshotBlob decompresses and decodes the blob at path into a Pool
// and the decoded (still json.RawMessage-valued) plugin fields.
func readSnapshotBlob(dec *zstd.Decoder, path string, version uint64) (*pool.Pool, map[string]json.RawMessage, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, newIoError("read snapshot blob", err)
	}
	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, nil, newSnapshotCorrupt(path, "zstd decode: %v", err)
	}
	var blob snapshotBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return nil, nil, newSnapshotCorrupt(path, "decode blob: %v", err)
	}
	p := pool.FromNodes(nodeIdFromString(blob.Root), blob.Nodes, version)
	return p, blob.PluginFields, nil
}

// removeOldSnapshots deletes every snapshot strictly older than the
// retain_last_n most recent ones (spec.md §6.3).
func removeOldSnapshots(dir string, retainLastN int) error {
	if retainLastN <= 0 {
		return nil
	}
	entries, err := os.ReadDir(snapshotDir(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return newIoError("readdir snapshots", err)
	}
	var lsns []uint64
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		trimmed := strings.TrimSuffix(strings.TrimPrefix(name, "snapshot-"), ".json")
		if lsn, convErr := strconv.ParseUint(trimmed, 10, 64); convErr == nil {
			lsns = append(lsns, lsn)
		}
	}
	if len(lsns) <= retainLastN {
		return nil
	}
	sort.Slice(lsns, func(i, j int) bool { return lsns[i] > lsns[j] })
	for _, lsn := range lsns[retainLastN:] {
		_ = os.Remove(snapshotBlobPath(dir, lsn))
		_ = os.Remove(snapshotSidecarPath(dir, lsn))
	}
	return nil
}
