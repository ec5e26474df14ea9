package daemon

import (
	"context"
	"drivemirror/internal/config"
	"drivemirror/internal/feed"
	"drivemirror/internal/gateway/gatewaytest"
	"drivemirror/internal/model"
	"drivemirror/internal/monitor"
	"drivemirror/internal/repository"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	fake  *gatewaytest.Fake
	store *repository.Store
	feed  *feed.Feed
	runs  *RunManager
	srv   *Server
	src   string
	dst   string
}

// newHarness wires a daemon around an in-memory drive holding
// src/a.txt, src/docs/b.txt and an empty dst folder.
func newHarness(t *testing.T) *harness {
	fake := gatewaytest.NewFake()
	src := fake.AddFolder("", "src")
	dst := fake.AddFolder("", "dst")
	fake.AddFile(src, "a.txt")
	docs := fake.AddFolder(src, "docs")
	fake.AddFile(docs, "b.txt")

	fs := afero.NewMemMapFs()
	store := &repository.Store{
		Tasks:   repository.NewJSONTaskRepository(fs, "/data/monitor_tasks.json"),
		Changes: repository.NewJSONChangeLogRepository(fs, "/data/changes_log.json"),
	}
	cfg := &config.Config{RootFolderID: "root", MinObjectIDLength: 5}

	ctx, cancel := context.WithCancel(context.Background())
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC))
	f := feed.New(100, clock)
	go f.Run(ctx)

	runs := NewRunManager(ctx, clock)
	actions := NewActions(fake, store, cfg, f.Sink(), runs, clock)
	poller := monitor.NewPoller(fake, store.Tasks, f.Sink(), 10*time.Second, clock)

	t.Cleanup(func() {
		runs.Wait()
		cancel()
	})

	return &harness{
		fake:  fake,
		store: store,
		feed:  f,
		runs:  runs,
		srv:   NewServer(actions, poller, f, runs, 0),
		src:   src,
		dst:   dst,
	}
}

func folderURL(id string) string {
	return "https://drive.google.com/drive/folders/" + id
}

func (h *harness) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (h *harness) pair() string {
	b, _ := json.Marshal(map[string]string{"src": folderURL(h.src), "dst": folderURL(h.dst)})
	return string(b)
}

func (h *harness) waitForMessage(t *testing.T, text string) {
	require.Eventually(t, func() bool {
		return slices.ContainsFunc(h.feed.Recent(0), func(m model.Message) bool { return m.Text == text })
	}, time.Second, 5*time.Millisecond, "message %q never arrived", text)
}

func (h *harness) messageCount(text string) int {
	n := 0
	for _, m := range h.feed.Recent(0) {
		if m.Text == text {
			n++
		}
	}
	return n
}

func runID(t *testing.T, rec *httptest.ResponseRecorder) string {
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body["run_id"])
	return body["run_id"]
}

func TestCopyRejectsBadURLBeforeDriveCalls(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/copy", `{"src":"https://example.com/nothing-here","dst":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "could not extract source folder ID")

	rec = h.do(http.MethodPost, "/copy", `{"src":"`+folderURL(h.src)+`","dst":"not a link"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "could not extract destination folder ID")

	assert.Zero(t, h.fake.CallCount("list"))
}

func TestCopyRegistersMonitorTask(t *testing.T) {
	h := newHarness(t)

	id := runID(t, h.do(http.MethodPost, "/copy", h.pair()))
	h.runs.Wait()

	h.waitForMessage(t, "Copy finished. Total objects copied: 3")
	h.waitForMessage(t, "Monitor task created.")

	task, ok, err := h.store.Tasks.Get(h.src, h.dst)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, task.CopiedFiles, 3)
	assert.Equal(t, []string{"a.txt", "docs"}, h.fake.ChildNames(h.dst))

	rec := h.do(http.MethodGet, "/runs/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap model.RunSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, model.RunStatusDone, snap.Status)
	assert.Equal(t, "copy", snap.Action)

	records, err := h.store.Changes.GetAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.OpCopy, records[0].Operation)
	assert.Equal(t, "Recursive copy via Copy", records[0].Comment)

	// a second copy keeps the existing task
	runID(t, h.do(http.MethodPost, "/copy", h.pair()))
	h.runs.Wait()
	require.Eventually(t, func() bool {
		return h.messageCount("Copy finished. Total objects copied: 3") == 2
	}, time.Second, 5*time.Millisecond)

	tasks, err := h.store.Tasks.GetAll()
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.Equal(t, 1, h.messageCount("Monitor task created."))
}

func TestCopyFailureKeepsPartialTask(t *testing.T) {
	h := newHarness(t)
	h.fake.CopyWithoutID["b.txt"] = true

	id := runID(t, h.do(http.MethodPost, "/copy", h.pair()))
	h.runs.Wait()

	snap, ok := h.runs.Get(id)
	require.True(t, ok)
	assert.Equal(t, model.RunStatusFailed, snap.Status)
	assert.Contains(t, snap.Error, "no id returned")

	task, ok, err := h.store.Tasks.Get(h.src, h.dst)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, task.CopiedFiles, 2)
}

func TestTaskLifecycle(t *testing.T) {
	h := newHarness(t)

	runID(t, h.do(http.MethodPost, "/tasks", h.pair()))
	h.runs.Wait()
	h.waitForMessage(t, "Initial copy finished. Total objects copied: 3")
	copies := h.fake.CallCount("copy")
	lists := h.fake.CallCount("list")

	runID(t, h.do(http.MethodPost, "/tasks", h.pair()))
	h.runs.Wait()
	h.waitForMessage(t, "Monitor task already exists!")

	// adding an existing pair leaves the drive alone
	assert.Equal(t, copies, h.fake.CallCount("copy"))
	assert.Equal(t, lists, h.fake.CallCount("list"))
	assert.Equal(t, 1, h.messageCount("Starting initial copy for AddMonitor..."))
	assert.Equal(t, []string{"a.txt", "docs"}, h.fake.ChildNames(h.dst))

	rec := h.do(http.MethodGet, "/tasks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tasks []model.TaskSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, h.src, tasks[0].Source)
	assert.Equal(t, 3, tasks[0].CopiedCount)

	q := url.Values{"src": {folderURL(h.src)}, "dst": {folderURL(h.dst)}}
	rec = h.do(http.MethodDelete, "/tasks?"+q.Encode(), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// copied objects are left alone
	assert.Equal(t, []string{"a.txt", "docs"}, h.fake.ChildNames(h.dst))

	rec = h.do(http.MethodDelete, "/tasks?"+q.Encode(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	h.waitForMessage(t, "No monitor task found with the given paths.")
}

func TestCancelDeletesCopiesAndClearsTasks(t *testing.T) {
	h := newHarness(t)

	runID(t, h.do(http.MethodPost, "/copy", h.pair()))
	h.runs.Wait()

	runID(t, h.do(http.MethodPost, "/cancel", ""))
	h.runs.Wait()
	h.waitForMessage(t, "All monitor tasks cancelled; all copied objects deleted.")

	tasks, err := h.store.Tasks.GetAll()
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Empty(t, h.fake.ChildNames(h.dst))

	records, err := h.store.Changes.GetAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, model.OpCancel, records[1].Operation)
	assert.Equal(t, "Cancelled 1 tasks: 3 deleted, 0 skipped, 0 failed", records[1].Comment)
}

func TestSetPermissions(t *testing.T) {
	h := newHarness(t)
	fileURL := "https://drive.google.com/file/d/" + h.src + "/view"

	rec := h.do(http.MethodPost, "/permissions", `{"url":"`+fileURL+`","email":"a@b.com","role":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid role")

	rec = h.do(http.MethodPost, "/permissions", `{"url":"nope","email":"a@b.com","role":"reader"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, h.fake.CallCount("create_permission"))

	rec = h.do(http.MethodPost, "/permissions", `{"url":"`+fileURL+`","email":"a@b.com","role":"Writer"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"permission_id":"perm1"}`, rec.Body.String())

	require.Len(t, h.fake.Permissions, 1)
	assert.Equal(t, model.RoleWriter, h.fake.Permissions[0].Role)

	rec = h.do(http.MethodGet, "/report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "2024-06-01 09:30:00 | setpermissions | File: (unknown) (ID: "+h.src+") | Permissions writer for a@b.com")
}

func TestSetPermissionsDriveFailure(t *testing.T) {
	h := newHarness(t)
	h.fake.Fail = func(op, id string) error {
		if op == "create_permission" {
			return errors.New("insufficient permissions")
		}
		return nil
	}

	rec := h.do(http.MethodPost, "/permissions", `{"url":"`+folderURL(h.src)+`","email":"a@b.com","role":"reader"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient permissions")

	records, err := h.store.Changes.GetAll()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReportWithoutRecords(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "==== Full Change Report ====\nGoogle Root ID: root\n\nNo change records found.", rec.Body.String())
}

func TestInspect(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/inspect?url="+url.QueryEscape(folderURL(h.src)), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Object: src (ID: "+h.src+")")
	assert.Contains(t, rec.Body.String(), "a.txt")

	rec = h.do(http.MethodGet, "/inspect?url="+url.QueryEscape(folderURL("missing")), "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestStatusAndMessages(t *testing.T) {
	h := newHarness(t)

	runID(t, h.do(http.MethodPost, "/copy", h.pair()))
	h.runs.Wait()
	h.waitForMessage(t, "Monitor task created.")

	rec := h.do(http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		Poller model.PollerSnapshot `json:"poller"`
		Tasks  int                  `json:"tasks"`
		Runs   []model.RunSnapshot  `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 1, status.Tasks)
	assert.Len(t, status.Runs, 1)
	assert.False(t, status.Poller.Running)
	assert.Equal(t, 10*time.Second, status.Poller.Interval)

	rec = h.do(http.MethodGet, "/messages?n=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs []model.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "Monitor task created.", msgs[0].Text)
	assert.True(t, time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC).Equal(msgs[0].Time), msgs[0].Time)

	rec = h.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "drivemirror_items_copied_total")
}

func TestStopSignalsOnce(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/stop", "").Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/stop", "").Code)

	select {
	case <-h.srv.StopCh():
	default:
		t.Fatal("stop was not signalled")
	}
}

func TestUnknownRun(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/runs/nope", "").Code)
}
