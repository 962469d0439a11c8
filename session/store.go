// Package session saves the tabs and split layouts of every workspace to a
// JSON file and restores them at startup.
package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/javanhut/RavenDrop/layout"
	"github.com/javanhut/RavenDrop/tab"
)

// DefaultName is the session file name inside the config directory.
const DefaultName = "session.json"

var (
	ErrNoSession          = errors.New("session: no session file")
	ErrCorrupt            = errors.New("session: session file is not valid JSON")
	ErrMissingSchema      = errors.New("session: schema_version is missing")
	ErrUnsupportedVersion = errors.New("session: schema version is newer than supported")
)

// Notifier shows a non-blocking message to the user.
type Notifier interface {
	Notify(summary, body string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(summary, body string)

func (f NotifierFunc) Notify(summary, body string) { f(summary, body) }

// Suspender pauses autosaving while a restore rebuilds the tabs.
type Suspender interface {
	Suspend() (resume func())
}

const notifySummary = "RavenDrop"

// Store reads and writes one session file.
type Store struct {
	dir      string
	name     string
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewStore returns a store for dir/name. A nil notifier logs instead.
func NewStore(dir, name string, notifier Notifier, logger *slog.Logger) *Store {
	if name == "" {
		name = DefaultName
	}
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = NotifierFunc(func(summary, body string) {
			logger.Info("notification", "summary", summary, "body", body)
		})
	}
	return &Store{dir: dir, name: name, notifier: notifier, logger: logger, now: time.Now}
}

// Path returns the session file path.
func (s *Store) Path() string { return filepath.Join(s.dir, s.name) }

func (s *Store) backupPath() string { return s.Path() + ".bak" }
func (s *Store) errLogPath() string { return s.Path() + ".log.err" }

// Snapshot captures every workspace of m. Trees still waiting for a
// deferred restore are recorded with their queued layout.
func (s *Store) Snapshot(m *tab.Manager, codec *layout.Codec) *File {
	f := &File{
		SchemaVersion: SchemaVersion,
		Timestamp:     s.now().Unix(),
		Workspace:     make(map[string][][]TabState),
	}
	for ws, c := range m.All() {
		tabs := make([]TabState, 0, c.Len())
		for _, t := range c.Tabs() {
			records := layout.Serialize(t.Tree)
			if codec != nil {
				if pending, ok := codec.PendingRecords(t.Tree); ok {
					records = pending
				}
			}
			tabs = append(tabs, TabState{
				Panes:          PaneStates(records),
				Label:          t.Label(),
				CustomLabelSet: t.CustomLabel(),
			})
		}
		f.Workspace[strconv.Itoa(ws)] = [][]TabState{tabs}
	}
	return f
}

// Save writes the tabs of m to the session file.
func (s *Store) Save(m *tab.Manager, codec *layout.Codec) error {
	data, err := encode(s.Snapshot(m, codec))
	if err != nil {
		return err
	}
	if err := saveAtomic(s.Path(), data, 0o600); err != nil {
		return err
	}
	s.logger.Info("session saved", "path", s.Path())
	return nil
}

func encode(f *File) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("session: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// RestoreOptions tunes Restore.
type RestoreOptions struct {
	// Notify announces a successful restore.
	Notify bool
	// Autosave is paused for the duration of the restore.
	Autosave Suspender
}

// Restore rebuilds the saved tabs into m. Tabs that existed in a restored
// workspace beforehand are closed once its saved tabs are open. It returns
// the number of tabs opened.
//
// An unreadable file is copied to <name>.bak and nothing is restored. A
// missing or too new schema_version aborts the restore. A structural error
// half-way keeps what was already restored, copies the file to <name>.bak and
// writes the error to <name>.log.err. The user is notified in all three cases.
func (s *Store) Restore(m *tab.Manager, codec *layout.Codec, opts RestoreOptions) (int, error) {
	path := s.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Info("no session file", "path", path)
			return 0, ErrNoSession
		}
		return 0, fmt.Errorf("session: read: %w", err)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		s.logger.Warn("session file is broken", "path", path, "err", err)
		s.backup(data)
		s.notifier.Notify(notifySummary, fmt.Sprintf(
			"Your %s file is broken, backup to %s.bak", s.name, s.name))
		return 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var version *int
	if raw, ok := top["schema_version"]; ok {
		if err := json.Unmarshal(raw, &version); err != nil {
			version = nil
		}
	}
	if version == nil {
		s.notifier.Notify(notifySummary, fmt.Sprintf(
			"Tabs session restore abort.\nYour session file (%s) missing schema_version as key", path))
		return 0, ErrMissingSchema
	}
	if v := *version; v > SchemaVersion {
		s.notifier.Notify(notifySummary, fmt.Sprintf(
			"Tabs session restore abort.\nYour session file schema version is higher than current version (%d > %d).",
			v, SchemaVersion))
		return 0, fmt.Errorf("%w: %d > %d", ErrUnsupportedVersion, v, SchemaVersion)
	}

	if opts.Autosave != nil {
		resume := opts.Autosave.Suspend()
		defer resume()
	}

	r := &restore{manager: m, codec: codec, logger: s.logger}
	if err := r.run(top); err != nil {
		var schemaErr *SchemaError
		if !errors.As(err, &schemaErr) {
			return r.opened, err
		}
		s.logger.Warn("session schema is broken", "path", path, "err", err)
		s.backup(data)
		s.writeErrLog(err)
		s.notifier.Notify(notifySummary, fmt.Sprintf(
			"Your %[1]s schema is broken, backup to %[1]s.bak, and error message has been saved to %[1]s.log.err.",
			s.name))
		return r.opened, err
	}
	if r.spawnErrs != nil {
		s.logger.Warn("some restored panes failed to start", "err", errors.Join(r.spawnErrs...))
	}
	if opts.Notify {
		s.notifier.Notify(notifySummary, "Your tabs have been restored!")
	}
	s.logger.Info("session restored", "path", path, "tabs", r.opened)
	return r.opened, nil
}

func (s *Store) backup(data []byte) {
	if err := saveAtomic(s.backupPath(), data, 0o600); err != nil {
		s.logger.Warn("session backup failed", "err", err)
	}
}

func (s *Store) writeErrLog(cause error) {
	msg := fmt.Sprintf("%s restore of %s failed\n%v\n", s.now().Format(time.RFC3339), s.Path(), cause)
	if err := saveAtomic(s.errLogPath(), []byte(msg), 0o600); err != nil {
		s.logger.Warn("session error log failed", "err", err)
	}
}

type restore struct {
	manager   *tab.Manager
	codec     *layout.Codec
	logger    *slog.Logger
	opened    int
	spawnErrs []error
}

func (r *restore) run(top map[string]json.RawMessage) error {
	rawWorkspace, ok := top["workspace"]
	if !ok {
		return &SchemaError{Reason: `missing key "workspace"`}
	}
	var workspaces map[string]json.RawMessage
	if err := json.Unmarshal(rawWorkspace, &workspaces); err != nil {
		return &SchemaError{Path: "workspace", Reason: "not an object"}
	}
	type entry struct {
		index int
		key   string
	}
	entries := make([]entry, 0, len(workspaces))
	for key := range workspaces {
		ws, err := strconv.Atoi(key)
		if err != nil {
			return &SchemaError{Path: "workspace", Reason: fmt.Sprintf("key %q is not a workspace index", key)}
		}
		entries = append(entries, entry{index: ws, key: key})
	}
	slices.SortFunc(entries, func(a, b entry) int { return a.index - b.index })

	for _, e := range entries {
		if err := r.workspace(e.index, e.key, workspaces[e.key]); err != nil {
			return err
		}
	}
	return nil
}

func (r *restore) workspace(ws int, key string, raw json.RawMessage) error {
	var frames [][]json.RawMessage
	if err := json.Unmarshal(raw, &frames); err != nil {
		return &SchemaError{Path: "workspace." + key, Reason: "not a list of tab lists"}
	}
	c := r.manager.Container(ws)
	before := c.Tabs()
	for fi, frame := range frames {
		for ti, rawTab := range frame {
			path := fmt.Sprintf("workspace.%s[%d][%d]", key, fi, ti)
			st, err := decodeTab(rawTab, path)
			if err != nil {
				return err
			}
			if err := r.tab(c, st); err != nil {
				return err
			}
		}
	}
	for _, t := range before {
		if i := c.IndexOf(t); i >= 0 {
			if err := c.Close(i); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *restore) tab(c *tab.Container, st TabState) error {
	records := Records(st.Panes)
	dir := ""
	if len(records) == 1 {
		dir = records[0].Directory
	}
	t, err := c.NewTab(dir)
	if err != nil {
		return fmt.Errorf("session: restore tab %q: %w", st.Label, err)
	}
	r.opened++
	c.SetLabel(c.IndexOf(t), st.Label, st.CustomLabelSet)
	if len(records) > 1 && r.codec != nil {
		if _, err := r.codec.Deserialize(t.Tree, t.Tree.Root(), records); err != nil {
			r.spawnErrs = append(r.spawnErrs, err)
		}
	}
	return nil
}
