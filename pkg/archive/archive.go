// Package archive bundles a server's data files into a checksummed
// .tar.gz and restores them.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Entry names inside an archive.
const (
	EntryStore    = "data/rift.bolt"
	EntryReplay   = "data/replay.sqlite"
	EntryConf     = "conf/match.yaml"
	EntryNavGrid  = "conf/navgrid.yaml"
	entryManifest = "manifest.json"
)

// Manifest is stored as the last entry of every archive.
type Manifest struct {
	Version int                  `json:"version"`
	Server  string               `json:"server"`
	Created time.Time            `json:"created"`
	Match   string               `json:"match"`
	Files   map[string]FileEntry `json:"files"`
}

// FileEntry is one archived file.
type FileEntry struct {
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// Sources lists what to archive. Empty paths are skipped.
type Sources struct {
	// Snapshot writes a consistent copy of the account store to a path.
	Snapshot    func(dest string) error
	ReplayPath  string
	ConfPath    string
	NavGridPath string
	Match       string
	Server      string
}

// Create writes archive-<match>-<time>.tar.gz into dir and returns its path.
func Create(dir string, src Sources) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("archive: %w", err)
	}
	staging, err := os.MkdirTemp("", "rift-archive-*")
	if err != nil {
		return "", fmt.Errorf("archive: %w", err)
	}
	defer os.RemoveAll(staging)

	files := map[string]string{} // entry name -> source path
	if src.Snapshot != nil {
		p := filepath.Join(staging, "rift.bolt")
		if err := src.Snapshot(p); err != nil {
			return "", fmt.Errorf("archive: snapshot: %w", err)
		}
		files[EntryStore] = p
	}
	for name, p := range map[string]string{
		EntryReplay:  src.ReplayPath,
		EntryConf:    src.ConfPath,
		EntryNavGrid: src.NavGridPath,
	} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			files[name] = p
		}
	}

	match := src.Match
	if match == "" {
		match = "match"
	}
	now := time.Now().UTC()
	path := filepath.Join(dir, fmt.Sprintf("archive-%s-%s.tar.gz", match, now.Format("20060102-150405")))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("archive: %w", err)
	}
	defer out.Close()

	gw := gzip.NewWriter(out)
	tw := tar.NewWriter(gw)
	m := Manifest{Version: 1, Server: src.Server, Created: now, Match: src.Match, Files: map[string]FileEntry{}}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		e, err := writeEntry(tw, name, files[name])
		if err != nil {
			return "", err
		}
		m.Files[name] = e
	}

	manifest, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("archive: manifest: %w", err)
	}
	if err := tw.WriteHeader(&tar.Header{Name: entryManifest, Size: int64(len(manifest)), Mode: 0o644, ModTime: now}); err != nil {
		return "", fmt.Errorf("archive: manifest: %w", err)
	}
	if _, err := tw.Write(manifest); err != nil {
		return "", fmt.Errorf("archive: manifest: %w", err)
	}
	if err := tw.Close(); err != nil {
		return "", fmt.Errorf("archive: %w", err)
	}
	if err := gw.Close(); err != nil {
		return "", fmt.Errorf("archive: %w", err)
	}
	return path, out.Close()
}

func writeEntry(tw *tar.Writer, name, path string) (FileEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileEntry{}, fmt.Errorf("archive: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return FileEntry{}, fmt.Errorf("archive: %w", err)
	}
	if err := tw.WriteHeader(&tar.Header{Name: name, Size: info.Size(), Mode: 0o644, ModTime: info.ModTime()}); err != nil {
		return FileEntry{}, fmt.Errorf("archive: header %s: %w", name, err)
	}
	h := sha256.New()
	n, err := io.Copy(tw, io.TeeReader(f, h))
	if err != nil {
		return FileEntry{}, fmt.Errorf("archive: write %s: %w", name, err)
	}
	return FileEntry{SHA256: hex.EncodeToString(h.Sum(nil)), Size: n}, nil
}

// Info describes an archive on disk.
type Info struct {
	Path     string
	Size     int64
	Manifest *Manifest // nil if the manifest could not be read
}

// List returns the archives in dir, newest first.
func List(dir string) ([]Info, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.tar.gz"))
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	var out []Info
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil {
			continue
		}
		info := Info{Path: p, Size: st.Size()}
		info.Manifest, _ = ReadManifest(p)
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].created().After(out[j].created()) })
	return out, nil
}

func (i Info) created() time.Time {
	if i.Manifest != nil {
		return i.Manifest.Created
	}
	return time.Time{}
}

// ReadManifest reads only the manifest of an archive.
func ReadManifest(path string) (*Manifest, error) {
	var m *Manifest
	err := walk(path, func(name string, r io.Reader) error {
		if name != entryManifest {
			return nil
		}
		m = new(Manifest)
		return json.NewDecoder(r).Decode(m)
	})
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New("archive: no manifest")
	}
	return m, nil
}

// Restore verifies every checksum and then copies each archived file to
// dest[entry name]. Entries without a destination are skipped. Nothing is
// written unless the whole archive verifies.
func Restore(path string, dest map[string]string) (int, error) {
	staging, err := os.MkdirTemp("", "rift-restore-*")
	if err != nil {
		return 0, fmt.Errorf("restore: %w", err)
	}
	defer os.RemoveAll(staging)

	sums := map[string]string{}
	var m *Manifest
	err = walk(path, func(name string, r io.Reader) error {
		if name == entryManifest {
			m = new(Manifest)
			return json.NewDecoder(r).Decode(m)
		}
		target := filepath.Join(staging, filepath.FromSlash(name))
		if !strings.HasPrefix(target, filepath.Clean(staging)+string(os.PathSeparator)) {
			return fmt.Errorf("invalid entry %q", name)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		f, err := os.Create(target)
		if err != nil {
			return err
		}
		defer f.Close()
		h := sha256.New()
		if _, err := io.Copy(io.MultiWriter(f, h), r); err != nil {
			return err
		}
		sums[name] = hex.EncodeToString(h.Sum(nil))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("restore: %w", err)
	}
	if m == nil {
		return 0, errors.New("restore: no manifest")
	}
	for name, e := range m.Files {
		if sums[name] != e.SHA256 {
			return 0, fmt.Errorf("restore: checksum mismatch for %s", name)
		}
	}

	restored := 0
	for name := range m.Files {
		to := dest[name]
		if to == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
			return restored, fmt.Errorf("restore: %w", err)
		}
		if err := copyFile(filepath.Join(staging, filepath.FromSlash(name)), to); err != nil {
			return restored, fmt.Errorf("restore: %s: %w", name, err)
		}
		restored++
	}
	return restored, nil
}

// walk calls fn for every regular file in a .tar.gz.
func walk(path string, fn func(name string, r io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	gr, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gr.Close()
	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if err := fn(hdr.Name, tr); err != nil {
			return err
		}
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
