// Package report renders the change log and object hierarchies as plain text.
package report

import (
	"context"
	"drivemirror/internal/gateway"
	"drivemirror/internal/model"
	"fmt"
	"slices"
	"strings"
)

const TimeLayout = "2006-01-02 15:04:05"

// maxParentDepth bounds the parent walk in case the drive reports a cycle.
const maxParentDepth = 100

// Changes lists records in ascending timestamp order, whatever order they
// were appended in.
func Changes(records []model.ChangeRecord, rootID string) string {
	var b strings.Builder
	b.WriteString("==== Full Change Report ====\n")
	fmt.Fprintf(&b, "Google Root ID: %s\n\n", rootID)

	if len(records) == 0 {
		b.WriteString("No change records found.")
		return b.String()
	}

	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b model.ChangeRecord) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	lines := make([]string, 0, len(sorted))
	for _, rec := range sorted {
		lines = append(lines, changeLine(rec))
	}

	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

func changeLine(rec model.ChangeRecord) string {
	line := fmt.Sprintf("%s | %s | File: %s (ID: %s)",
		rec.Timestamp.Format(TimeLayout), rec.Operation, rec.FileName, rec.FileID)

	if rec.SourceFolderID != "" {
		line += " | From: " + rec.SourceFolderID
	}
	if rec.DestFolderID != "" {
		line += " | To: " + rec.DestFolderID
	}
	if rec.Comment != "" {
		line += " | " + rec.Comment
	}

	return line
}

// Hierarchy describes an object, the chain of its first parents up to the
// drive root and, for folders, its direct children.
func Hierarchy(ctx context.Context, gw gateway.Gateway, id string) (string, error) {
	item, err := gw.Get(ctx, id)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Object: %s (ID: %s)\n", item.Name, item.ID)

	var chain []string
	parents := item.Parents
	for len(parents) > 0 && len(chain) < maxParentDepth {
		parent, err := gw.Get(ctx, parents[0])
		if err != nil {
			return "", err
		}

		chain = append(chain, fmt.Sprintf("%s (ID: %s)", parent.Name, parent.ID))
		parents = parent.Parents
	}

	if len(chain) > 0 {
		fmt.Fprintf(&b, "Parent hierarchy:\n%s\n", strings.Join(chain, " -> "))
	} else {
		b.WriteString("No parent hierarchy.\n")
	}

	if !item.IsFolder() {
		return b.String(), nil
	}

	children, err := gw.ListChildren(ctx, item.ID)
	if err != nil {
		return "", err
	}

	if len(children) == 0 {
		b.WriteString("No child files/folders.\n")
		return b.String(), nil
	}

	b.WriteString("Child files/folders:\n")
	for _, c := range children {
		fmt.Fprintf(&b, "%s (ID: %s)\n", c.Name, c.ID)
	}

	return b.String(), nil
}
