package session_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/javanhut/RavenDrop/layout"
	"github.com/javanhut/RavenDrop/loop"
	"github.com/javanhut/RavenDrop/pane"
	"github.com/javanhut/RavenDrop/pane/panetest"
	"github.com/javanhut/RavenDrop/session"
	"github.com/javanhut/RavenDrop/tab"
)

type notes struct{ bodies []string }

func (n *notes) Notify(_, body string) { n.bodies = append(n.bodies, body) }

func newStore(t *testing.T) (*session.Store, *notes, string) {
	t.Helper()
	dir := t.TempDir()
	n := &notes{}
	return session.NewStore(dir, "", n, nil), n, dir
}

func newManager(factory *panetest.Factory) *tab.Manager {
	return tab.NewManager(tab.Options{Factory: factory})
}

func writeSession(t *testing.T, s *session.Store, body string) []byte {
	t.Helper()
	data := []byte(body)
	require.NoError(t, os.WriteFile(s.Path(), data, 0o600))
	return data
}

// buildSource returns a manager with workspace 0 holding a single-pane tab
// in /a and a renamed tab split into /b | /c, and workspace 1 holding /d.
func buildSource(t *testing.T) *tab.Manager {
	t.Helper()
	m := newManager(panetest.NewFactory("/home/user"))
	c := m.Container(0)
	_, err := c.NewTab("/a")
	require.NoError(t, err)
	second, err := c.NewTab("/b")
	require.NoError(t, err)
	split, err := second.Tree.Split(second.Tree.Root(), pane.Horizontal)
	require.NoError(t, err)
	panetest.Of(split.Second()).Chdir("/c")
	c.Rename(1, "build", true)
	_, err = m.Container(1).NewTab("/d")
	require.NoError(t, err)
	return m
}

func TestSaveWritesIndentedSchemaV2(t *testing.T) {
	s, _, _ := newStore(t)
	require.NoError(t, s.Save(buildSource(t), nil))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	require.Contains(t, string(data), "\n    \"schema_version\": 2,")

	var doc session.File
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Equal(t, session.SchemaVersion, doc.SchemaVersion)
	require.NotZero(t, doc.Timestamp)
	require.Len(t, doc.Workspace["0"], 1)
	tabs := doc.Workspace["0"][0]
	require.Len(t, tabs, 2)
	require.Equal(t, "build", tabs[1].Label)
	require.True(t, tabs[1].CustomLabelSet)
	require.Equal(t, session.TypeDualH, *tabs[1].Panes[0].Type)
	require.Nil(t, tabs[1].Panes[0].Directory)
	require.Equal(t, "/c", *tabs[1].Panes[2].Directory)
	require.Len(t, doc.Workspace["1"][0], 1)
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	s, n, _ := newStore(t)
	require.NoError(t, s.Save(buildSource(t), nil))

	factory := panetest.NewFactory("/home/user")
	dst := newManager(factory)
	codec := layout.NewCodec(nil)
	opened, err := s.Restore(dst, codec, session.RestoreOptions{Notify: true})
	require.NoError(t, err)
	require.Equal(t, 3, opened)
	require.Equal(t, 3, factory.Count())
	require.Equal(t, []string{"Your tabs have been restored!"}, n.bodies)

	c := dst.Container(0)
	require.Equal(t, 2, c.Len())
	first, second := c.Tab(0), c.Tab(1)
	require.Equal(t, []string{"/a"}, panetest.Directories(first.Tree))
	require.Equal(t, tab.DefaultLabel, first.Label())
	require.Equal(t, "build", second.Label())
	require.True(t, second.CustomLabel())

	require.True(t, codec.PendingFor(second.Tree))
	second.Tree.SetExtent(800, 600)
	_, err = codec.Flush(second.Tree, true)
	require.NoError(t, err)
	require.Equal(t, "H(leaf,leaf)", panetest.Shape(second.Tree.Root()))
	require.Equal(t, []string{"/b", "/c"}, panetest.Directories(second.Tree))

	require.Equal(t, []string{"/d"}, panetest.Directories(dst.Container(1).Tab(0).Tree))
}

func TestSnapshotKeepsPendingLayout(t *testing.T) {
	s, _, _ := newStore(t)
	require.NoError(t, s.Save(buildSource(t), nil))
	dst := newManager(panetest.NewFactory("/home/user"))
	codec := layout.NewCodec(nil)
	_, err := s.Restore(dst, codec, session.RestoreOptions{})
	require.NoError(t, err)

	snap := s.Snapshot(dst, codec)
	panes := snap.Workspace["0"][0][1].Panes
	require.Len(t, panes, 3)
	require.Equal(t, session.TypeDualH, *panes[0].Type)
}

func TestRestoreReplacesExistingTabs(t *testing.T) {
	s, _, _ := newStore(t)
	require.NoError(t, s.Save(buildSource(t), nil))

	dst := newManager(panetest.NewFactory("/home/user"))
	orig, err := dst.Container(0).NewTab("/orig")
	require.NoError(t, err)

	_, err = s.Restore(dst, layout.NewCodec(nil), session.RestoreOptions{})
	require.NoError(t, err)
	require.True(t, orig.Tree.Destroyed())
	require.Equal(t, 2, dst.Container(0).Len())
	require.Equal(t, -1, dst.Container(0).IndexOf(orig))
}

func TestRestoreWithoutFile(t *testing.T) {
	s, n, _ := newStore(t)
	_, err := s.Restore(newManager(panetest.NewFactory("/")), nil, session.RestoreOptions{})
	require.ErrorIs(t, err, session.ErrNoSession)
	require.Empty(t, n.bodies)
}

func TestRestoreBrokenJSONBacksUp(t *testing.T) {
	s, n, _ := newStore(t)
	data := writeSession(t, s, `{"schema_version": 2, "workspace": {`)
	m := newManager(panetest.NewFactory("/"))

	_, err := s.Restore(m, nil, session.RestoreOptions{})
	require.ErrorIs(t, err, session.ErrCorrupt)
	backup, readErr := os.ReadFile(s.Path() + ".bak")
	require.NoError(t, readErr)
	require.Equal(t, data, backup)
	require.Len(t, n.bodies, 1)
	require.Contains(t, n.bodies[0], "session.json file is broken")
	require.Empty(t, m.Workspaces())
}

func TestRestoreRejectsMissingSchemaVersion(t *testing.T) {
	s, n, _ := newStore(t)
	writeSession(t, s, `{"workspace": {"0": [[]]}}`)
	m := newManager(panetest.NewFactory("/"))

	_, err := s.Restore(m, nil, session.RestoreOptions{})
	require.ErrorIs(t, err, session.ErrMissingSchema)
	require.Len(t, n.bodies, 1)
	require.Contains(t, n.bodies[0], "missing schema_version")
	require.Empty(t, m.Workspaces())
	_, statErr := os.Stat(s.Path() + ".bak")
	require.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestRestoreRejectsNewerSchema(t *testing.T) {
	s, n, _ := newStore(t)
	writeSession(t, s, `{"schema_version": 3, "workspace": {"0": [[]]}}`)
	m := newManager(panetest.NewFactory("/"))

	_, err := s.Restore(m, nil, session.RestoreOptions{})
	require.ErrorIs(t, err, session.ErrUnsupportedVersion)
	require.Contains(t, n.bodies[0], "(3 > 2)")
	require.Empty(t, m.Workspaces())
}

func TestRestoreKeepsPartialResultOnSchemaError(t *testing.T) {
	s, n, dir := newStore(t)
	data := writeSession(t, s, `{
    "schema_version": 2,
    "timestamp": 1700000000,
    "workspace": {
        "0": [[
            {"panes": [{"type": "term", "directory": "/x"}], "label": "ok", "custom_label_set": false},
            {"panes": [], "custom_label_set": true}
        ]]
    }
}`)
	m := newManager(panetest.NewFactory("/"))

	opened, err := s.Restore(m, nil, session.RestoreOptions{Notify: true})
	var schemaErr *session.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Equal(t, 1, opened)
	require.Equal(t, 1, m.Container(0).Len())
	require.Equal(t, "ok", m.Container(0).Tab(0).Label())

	backup, readErr := os.ReadFile(filepath.Join(dir, "session.json.bak"))
	require.NoError(t, readErr)
	require.Equal(t, data, backup)
	errLog, readErr := os.ReadFile(filepath.Join(dir, "session.json.log.err"))
	require.NoError(t, readErr)
	require.Contains(t, string(errLog), `missing key "label"`)

	require.Len(t, n.bodies, 1)
	require.True(t, strings.Contains(n.bodies[0], "schema is broken"))
}

func TestRestoreTreatsNullRecordsAsMissing(t *testing.T) {
	s, _, _ := newStore(t)
	writeSession(t, s, `{"schema_version": 1, "workspace": {"0": [[
        {"panes": [{"type": "dual_v", "directory": null}, {"type": "term", "directory": "/top"}, {"type": null, "directory": null}],
         "label": "x", "custom_label_set": false}
    ]]}}`)
	m := newManager(panetest.NewFactory("/home/user"))
	codec := layout.NewCodec(nil)
	_, err := s.Restore(m, codec, session.RestoreOptions{})
	require.NoError(t, err)

	tree := m.Container(0).Tab(0).Tree
	tree.SetExtent(640, 480)
	_, err = codec.Flush(tree, true)
	require.NoError(t, err)
	require.Equal(t, "V(leaf,leaf)", panetest.Shape(tree.Root()))
	require.Equal(t, []string{"/top", "/home/user"}, panetest.Directories(tree))
}

func TestRestoreSuspendsAutosave(t *testing.T) {
	s, _, _ := newStore(t)
	require.NoError(t, s.Save(buildSource(t), nil))

	saves := 0
	auto := session.NewAutosaver(func() error { saves++; return nil }, nil, nil)
	auto.SetEnabled(true)
	dst := tab.NewManager(tab.Options{
		Factory:  panetest.NewFactory("/"),
		OnChange: auto.Changed,
	})

	_, err := s.Restore(dst, layout.NewCodec(nil), session.RestoreOptions{Autosave: auto})
	require.NoError(t, err)
	require.Zero(t, saves)

	dst.Container(0).Rename(0, "after", true)
	require.Equal(t, 1, saves)
}

func TestAutosaverCoalescesOnLoop(t *testing.T) {
	q := loop.New(nil)
	saves := 0
	auto := session.NewAutosaver(func() error { saves++; return nil }, q, nil)

	auto.Changed("split")
	require.Zero(t, q.Len())

	auto.SetEnabled(true)
	auto.Changed("split")
	auto.Changed("rename")
	auto.Changed("reorder")
	require.Equal(t, 1, q.Len())
	q.RunPending()
	require.Equal(t, 1, saves)

	resume := auto.Suspend()
	auto.Changed("close")
	require.Zero(t, q.Len())
	resume()
	resume()
	auto.Changed("close")
	q.RunPending()
	require.Equal(t, 2, saves)
}
