// Package gatewaytest provides an in-memory drive for tests.
package gatewaytest

import (
	"context"
	"drivemirror/internal/gateway"
	"drivemirror/internal/model"
	"fmt"
	"slices"
	"sync"
)

type Permission struct {
	ObjectID string
	Email    string
	Role     model.Role
}

// Fake is an in-memory gateway.Gateway. Children are listed in insertion
// order. Fail, when set, is consulted before every call and can inject
// errors per operation and object id.
type Fake struct {
	mu          sync.Mutex
	next        int
	items       map[string]model.DriveItem
	children    map[string][]string
	Permissions []Permission
	Calls       map[string]int

	Fail func(op, id string) error
	// CopyWithoutID makes CopyFile answer with an empty id for these names.
	CopyWithoutID map[string]bool
}

var _ gateway.Gateway = (*Fake)(nil)

func NewFake() *Fake {
	return &Fake{
		items:         make(map[string]model.DriveItem),
		children:      make(map[string][]string),
		Calls:         make(map[string]int),
		CopyWithoutID: make(map[string]bool),
	}
}

func (f *Fake) newID() string {
	f.next++
	return fmt.Sprintf("id%05d", f.next)
}

func (f *Fake) add(parentID, name, mime string) string {
	id := f.newID()
	var parents []string
	if parentID != "" {
		parents = []string{parentID}
	}

	f.items[id] = model.DriveItem{ID: id, Name: name, MimeType: mime, Parents: parents}
	f.children[parentID] = append(f.children[parentID], id)
	return id
}

// AddFolder creates a folder under parentID. An empty parentID creates a
// top-level folder.
func (f *Fake) AddFolder(parentID, name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.add(parentID, name, model.FolderMimeType)
}

func (f *Fake) AddFile(parentID, name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.add(parentID, name, "text/plain")
}

func (f *Fake) Exists(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.items[id]
	return ok
}

// ChildNames lists the names under folderID in insertion order.
func (f *Fake) ChildNames(folderID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var names []string
	for _, id := range f.children[folderID] {
		names = append(names, f.items[id].Name)
	}
	return names
}

func (f *Fake) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[op]
}

func (f *Fake) enter(op, id string) error {
	f.Calls[op]++
	if f.Fail != nil {
		return f.Fail(op, id)
	}
	return nil
}

func (f *Fake) ListChildren(_ context.Context, folderID string) ([]model.DriveItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("list", folderID); err != nil {
		return nil, err
	}

	items := make([]model.DriveItem, 0, len(f.children[folderID]))
	for _, id := range f.children[folderID] {
		items = append(items, f.items[id])
	}
	return items, nil
}

func (f *Fake) CopyFile(_ context.Context, fileID, name, destFolderID string) (model.DriveItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("copy", fileID); err != nil {
		return model.DriveItem{}, err
	}

	src, ok := f.items[fileID]
	if !ok {
		return model.DriveItem{}, fmt.Errorf("file %s not found", fileID)
	}

	if f.CopyWithoutID[name] {
		return model.DriveItem{Name: name}, nil
	}

	id := f.add(destFolderID, name, src.MimeType)
	return f.items[id], nil
}

func (f *Fake) EnsureFolder(_ context.Context, name, parentID string) (gateway.FolderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("ensure_folder", parentID); err != nil {
		return gateway.FolderResult{}, err
	}

	var found []string
	for _, id := range f.children[parentID] {
		item := f.items[id]
		if item.IsFolder() && item.Name == name {
			found = append(found, id)
		}
	}

	if len(found) > 0 {
		return gateway.FolderResult{ID: found[0], Matches: len(found)}, nil
	}

	f.Calls["create_folder"]++
	return gateway.FolderResult{ID: f.add(parentID, name, model.FolderMimeType), Created: true}, nil
}

func (f *Fake) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("delete", id); err != nil {
		return err
	}

	f.remove(id)
	return nil
}

func (f *Fake) remove(id string) {
	item, ok := f.items[id]
	if !ok {
		return
	}

	for _, child := range slices.Clone(f.children[id]) {
		f.remove(child)
	}
	delete(f.children, id)
	delete(f.items, id)

	for _, parent := range item.Parents {
		f.children[parent] = slices.DeleteFunc(f.children[parent], func(c string) bool { return c == id })
	}
}

func (f *Fake) CreatePermission(_ context.Context, id, email string, role model.Role) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("create_permission", id); err != nil {
		return "", err
	}

	if _, ok := f.items[id]; !ok {
		return "", fmt.Errorf("object %s not found", id)
	}

	f.Permissions = append(f.Permissions, Permission{ObjectID: id, Email: email, Role: role})
	return fmt.Sprintf("perm%d", len(f.Permissions)), nil
}

func (f *Fake) Get(_ context.Context, id string) (model.DriveItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("get", id); err != nil {
		return model.DriveItem{}, err
	}

	item, ok := f.items[id]
	if !ok {
		return model.DriveItem{}, fmt.Errorf("object %s not found", id)
	}
	return item, nil
}
