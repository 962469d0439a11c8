package session

import (
	"encoding/json"
	"fmt"

	"github.com/javanhut/RavenDrop/layout"
)

// SchemaVersion is the newest session layout this build reads and writes.
const SchemaVersion = 2

// Pane types as written to disk.
const (
	TypeDualH = "dual_h"
	TypeDualV = "dual_v"
	TypeTerm  = "term"
)

// File is the on-disk session document.
type File struct {
	SchemaVersion int   `json:"schema_version"`
	Timestamp     int64 `json:"timestamp"`
	// Workspace maps a workspace index to its frames; each frame is a list
	// of tabs. Only one frame per workspace is written today.
	Workspace map[string][][]TabState `json:"workspace"`
}

// TabState is one saved tab.
type TabState struct {
	Panes          []PaneState `json:"panes"`
	Label          string      `json:"label"`
	CustomLabelSet bool        `json:"custom_label_set"`
}

// PaneState is one preorder record of a tab's split tree. Nil fields are
// written as JSON null.
type PaneState struct {
	Type      *string `json:"type"`
	Directory *string `json:"directory"`
}

// SchemaError reports a session document whose structure does not match
// the expected layout.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "session: schema: " + e.Reason
	}
	return fmt.Sprintf("session: schema: %s: %s", e.Path, e.Reason)
}

// PaneStates converts layout records to their on-disk form.
func PaneStates(records []layout.Record) []PaneState {
	out := make([]PaneState, len(records))
	for i, rec := range records {
		var typ string
		switch rec.Kind {
		case layout.KindSplitH:
			typ = TypeDualH
		case layout.KindSplitV:
			typ = TypeDualV
		case layout.KindLeaf:
			typ = TypeTerm
			dir := rec.Directory
			out[i].Directory = &dir
		default:
			continue
		}
		out[i].Type = &typ
	}
	return out
}

// Records converts on-disk panes back to layout records. Unknown types are
// kept as missing subtrees.
func Records(panes []PaneState) []layout.Record {
	out := make([]layout.Record, len(panes))
	for i, p := range panes {
		if p.Type == nil {
			continue
		}
		switch *p.Type {
		case TypeDualH:
			out[i].Kind = layout.KindSplitH
		case TypeDualV:
			out[i].Kind = layout.KindSplitV
		case TypeTerm:
			out[i].Kind = layout.KindLeaf
			if p.Directory != nil {
				out[i].Directory = *p.Directory
			}
		}
	}
	return out
}

// decodeTab decodes one tab and insists on the keys a restore relies on.
func decodeTab(raw json.RawMessage, path string) (TabState, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return TabState{}, &SchemaError{Path: path, Reason: "tab is not an object"}
	}
	for _, key := range []string{"label", "custom_label_set"} {
		if _, ok := fields[key]; !ok {
			return TabState{}, &SchemaError{Path: path, Reason: fmt.Sprintf("missing key %q", key)}
		}
	}
	var st TabState
	if err := json.Unmarshal(raw, &st); err != nil {
		return TabState{}, &SchemaError{Path: path, Reason: err.Error()}
	}
	return st, nil
}
