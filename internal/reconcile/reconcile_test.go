package reconcile

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/yourusername/espinput-cli/internal/client"
	"github.com/yourusername/espinput-cli/internal/emulator"
	"github.com/yourusername/espinput-cli/internal/models"
	"github.com/yourusername/espinput-cli/internal/state"
)

// deviceError builds the failure the transport returns for a rejected call
func deviceError(op string, status int, reason string) error {
	return &client.RequestError{Op: op, StatusCode: status, Reason: reason}
}

var errDevice = deviceError(client.OpUpdate, http.StatusInternalServerError, "Failed to update input: Internal Server Error")

// fakeTransport lets each test script the device's answers
type fakeTransport struct {
	mu    sync.Mutex
	calls int

	create func(ctx context.Context, message string) (models.Record, error)
	list   func(ctx context.Context) ([]models.Record, error)
	update func(ctx context.Context, id int, message string) (models.Record, error)
	delete func(ctx context.Context, id int) (string, error)
}

func (f *fakeTransport) count() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeTransport) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeTransport) Create(ctx context.Context, message string) (models.Record, error) {
	f.count()
	return f.create(ctx, message)
}

func (f *fakeTransport) List(ctx context.Context) ([]models.Record, error) {
	f.count()
	return f.list(ctx)
}

func (f *fakeTransport) Get(ctx context.Context, id int) (models.Record, error) {
	f.count()
	return models.Record{}, errors.New("not scripted")
}

func (f *fakeTransport) Update(ctx context.Context, id int, message string) (models.Record, error) {
	f.count()
	return f.update(ctx, id, message)
}

func (f *fakeTransport) Delete(ctx context.Context, id int) (string, error) {
	f.count()
	return f.delete(ctx, id)
}

func listOf(items ...models.Record) func(context.Context) ([]models.Record, error) {
	return func(context.Context) ([]models.Record, error) { return items, nil }
}

func seeded(t *testing.T, ft *fakeTransport, items ...models.Record) *Synchronizer {
	t.Helper()
	ft.list = listOf(items...)
	s := New(ft, state.NewStore())
	<-s.LoadAll(context.Background())
	return s
}

var (
	recA = models.Record{ID: 1, Message: "a", Timestamp: "T1"}
	recB = models.Record{ID: 2, Message: "b", Timestamp: "T1"}
	recC = models.Record{ID: 3, Message: "c", Timestamp: "T1"}
)

// === CreateRecord ===

func TestCreateRecord_AppendsAtTail(t *testing.T) {
	ft := &fakeTransport{
		create: func(_ context.Context, msg string) (models.Record, error) {
			return models.Record{ID: 4, Message: msg, Timestamp: "T9"}, nil
		},
	}
	s := seeded(t, ft, recA, recB)

	<-s.CreateRecord(context.Background(), "hello")

	st := s.State()
	if len(st.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(st.Items))
	}
	if tail := st.Items[2]; tail.ID != 4 || tail.Message != "hello" {
		t.Errorf("tail = %+v, want the server-echoed record", tail)
	}
	if st.IsLoading {
		t.Error("IsLoading should be false after completion")
	}
	if st.SuccessMessage != MsgCreated {
		t.Errorf("SuccessMessage = %q, want %q", st.SuccessMessage, MsgCreated)
	}
}

func TestCreateRecord_BlankIsNoop(t *testing.T) {
	ft := &fakeTransport{}
	s := seeded(t, ft, recA)
	before := s.State()
	version := s.Store().Version()
	calls := ft.Calls()

	for _, msg := range []string{"", "   ", "\t\n"} {
		<-s.CreateRecord(context.Background(), msg)
		<-s.UpdateRecord(context.Background(), 1, msg)
	}

	if !reflect.DeepEqual(s.State(), before) {
		t.Errorf("state changed: %+v -> %+v", before, s.State())
	}
	if s.Store().Version() != version {
		t.Error("blank intents should not touch the store")
	}
	if ft.Calls() != calls {
		t.Error("blank intents should not reach the transport")
	}
}

func TestCreateRecord_Failure(t *testing.T) {
	ft := &fakeTransport{
		create: func(context.Context, string) (models.Record, error) {
			return models.Record{}, deviceError(client.OpCreate, http.StatusBadRequest, "Failed to create input: Bad Request")
		},
	}
	s := seeded(t, ft, recA)

	<-s.CreateRecord(context.Background(), "x")

	st := s.State()
	if st.ErrorMessage != "Failed to create input: Bad Request" {
		t.Errorf("ErrorMessage = %q", st.ErrorMessage)
	}
	if st.HasSuccess() {
		t.Error("success message must be absent on failure")
	}
	if !reflect.DeepEqual(st.Items, []models.Record{recA}) {
		t.Errorf("Items = %v, want unchanged", st.Items)
	}
}

// === LoadAll ===

func TestLoadAll_ReplacesWholesale(t *testing.T) {
	ft := &fakeTransport{}
	s := seeded(t, ft, recA, recB)

	ft.list = listOf(recC, recA)
	<-s.LoadAll(context.Background())

	st := s.State()
	if !reflect.DeepEqual(st.Items, []models.Record{recC, recA}) {
		t.Errorf("Items = %v, want server order [3 1]", st.Items)
	}
	if st.HasSuccess() {
		t.Error("a list refresh sets no success message")
	}
}

func TestLoadAll_FailureKeepsStaleItems(t *testing.T) {
	ft := &fakeTransport{}
	s := seeded(t, ft, recA, recB)

	ft.list = func(context.Context) ([]models.Record, error) {
		return nil, deviceError(client.OpList, 0, "Failed to get inputs: connection refused")
	}
	<-s.LoadAll(context.Background())

	st := s.State()
	if !reflect.DeepEqual(st.Items, []models.Record{recA, recB}) {
		t.Errorf("Items = %v, want stale list", st.Items)
	}
	if st.ErrorMessage == "" {
		t.Error("expected error message")
	}
}

func TestLoadAll_EmptyBodyKeepsItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("null"))
	}))
	defer srv.Close()

	store := state.NewStore()
	store.Update(func(cs state.ClientState) state.ClientState {
		return cs.FinishLoad([]models.Record{recA, recB})
	})
	s := New(client.NewClient(srv.URL, 5*time.Second), store)

	<-s.LoadAll(context.Background())

	st := s.State()
	if !reflect.DeepEqual(st.Items, []models.Record{recA, recB}) {
		t.Errorf("Items = %v, want previous list kept", st.Items)
	}
	if st.ErrorMessage != "Failed to get inputs: empty response body" {
		t.Errorf("ErrorMessage = %q", st.ErrorMessage)
	}
}

// === UpdateRecord ===

func TestUpdateRecord(t *testing.T) {
	tests := []struct {
		name string
		id   int
		want []models.Record
	}{
		{"present", 2, []models.Record{recA, {ID: 2, Message: "edited", Timestamp: "T2"}, recC}},
		{"absent", 9, []models.Record{recA, recB, recC}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &fakeTransport{
				update: func(_ context.Context, id int, msg string) (models.Record, error) {
					return models.Record{ID: id, Message: msg, Timestamp: "T2"}, nil
				},
			}
			s := seeded(t, ft, recA, recB, recC)

			<-s.UpdateRecord(context.Background(), tt.id, "edited")

			st := s.State()
			if !reflect.DeepEqual(st.Items, tt.want) {
				t.Errorf("Items = %v, want %v", st.Items, tt.want)
			}
			if st.SuccessMessage != MsgUpdated {
				t.Errorf("SuccessMessage = %q, want %q", st.SuccessMessage, MsgUpdated)
			}
		})
	}
}

func TestUpdateRecord_ReplacesRequestedID(t *testing.T) {
	echoed := models.Record{ID: 7, Message: "edited", Timestamp: "T2"}
	ft := &fakeTransport{
		update: func(context.Context, int, string) (models.Record, error) {
			return echoed, nil
		},
	}
	s := seeded(t, ft, recA, recB, recC)

	<-s.UpdateRecord(context.Background(), 2, "edited")

	want := []models.Record{recA, echoed, recC}
	if got := s.State().Items; !reflect.DeepEqual(got, want) {
		t.Errorf("Items = %v, want %v", got, want)
	}
}

func TestUpdateRecord_Failure(t *testing.T) {
	ft := &fakeTransport{
		update: func(context.Context, int, string) (models.Record, error) {
			return models.Record{}, errDevice
		},
	}
	s := seeded(t, ft, recA, recB)

	<-s.UpdateRecord(context.Background(), 1, "x")

	st := s.State()
	if st.ErrorMessage != errDevice.Error() || st.HasSuccess() {
		t.Errorf("status = %+v", st)
	}
	if !reflect.DeepEqual(st.Items, []models.Record{recA, recB}) {
		t.Errorf("Items = %v, want unchanged", st.Items)
	}
}

// === DeleteRecord ===

func TestDeleteRecord(t *testing.T) {
	tests := []struct {
		name    string
		id      int
		wantLen int
	}{
		{"present", 2, 2},
		{"absent", 7, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &fakeTransport{
				delete: func(context.Context, int) (string, error) { return "Input deleted", nil },
			}
			s := seeded(t, ft, recA, recB, recC)

			<-s.DeleteRecord(context.Background(), tt.id)

			st := s.State()
			if len(st.Items) != tt.wantLen {
				t.Errorf("len(Items) = %d, want %d", len(st.Items), tt.wantLen)
			}
			if st.Items[0] != recA || st.Items[len(st.Items)-1] != recC {
				t.Errorf("relative order changed: %v", st.Items)
			}
			if st.SuccessMessage != MsgDeleted {
				t.Errorf("SuccessMessage = %q, want %q", st.SuccessMessage, MsgDeleted)
			}
		})
	}
}

func TestDeleteRecord_Failure(t *testing.T) {
	ft := &fakeTransport{
		delete: func(context.Context, int) (string, error) {
			return "", deviceError(client.OpDelete, http.StatusNotFound, "Failed to delete input: Not Found")
		},
	}
	s := seeded(t, ft, recA)

	<-s.DeleteRecord(context.Background(), 1)

	st := s.State()
	if len(st.Items) != 1 || st.ErrorMessage == "" || st.HasSuccess() {
		t.Errorf("unexpected state after failed delete: %+v", st)
	}
}

// === Status handling ===

func TestClearMessages_Idempotent(t *testing.T) {
	ft := &fakeTransport{
		delete: func(context.Context, int) (string, error) { return "", nil },
	}
	s := seeded(t, ft, recA, recB)
	<-s.DeleteRecord(context.Background(), 1)

	s.ClearMessages()
	once := s.State()
	s.ClearMessages()
	twice := s.State()

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("ClearMessages not idempotent: %+v vs %+v", once, twice)
	}
	if once.HasSuccess() || once.HasError() {
		t.Error("messages should be cleared")
	}
	if len(once.Items) != 1 {
		t.Error("ClearMessages should not touch Items")
	}
}

func TestStartClearsErrorOnly(t *testing.T) {
	release := make(chan struct{})
	ft := &fakeTransport{
		create: func(_ context.Context, msg string) (models.Record, error) {
			return models.Record{ID: 1, Message: msg}, nil
		},
		list: func(context.Context) ([]models.Record, error) {
			<-release
			return nil, nil
		},
	}
	s := New(ft, state.NewStore())
	<-s.CreateRecord(context.Background(), "x")

	done := s.LoadAll(context.Background())
	during := s.State()
	close(release)
	<-done

	if !during.IsLoading {
		t.Error("IsLoading should be true while the call is outstanding")
	}
	if during.SuccessMessage != MsgCreated {
		t.Error("starting a call should keep the success message")
	}
	if s.State().IsLoading {
		t.Error("IsLoading should be false after completion")
	}
}

func TestSubscriberSeesTransitions(t *testing.T) {
	ft := &fakeTransport{
		create: func(_ context.Context, msg string) (models.Record, error) {
			return models.Record{ID: 1, Message: msg}, nil
		},
	}
	s := New(ft, state.NewStore())

	var mu sync.Mutex
	var loading []bool
	s.Store().Subscribe(func(cs state.ClientState) {
		mu.Lock()
		loading = append(loading, cs.IsLoading)
		mu.Unlock()
	})

	<-s.CreateRecord(context.Background(), "hi")

	mu.Lock()
	defer mu.Unlock()
	if !reflect.DeepEqual(loading, []bool{true, false}) {
		t.Errorf("loading transitions = %v, want [true false]", loading)
	}
}

func TestMessageTTL(t *testing.T) {
	ft := &fakeTransport{
		create: func(_ context.Context, msg string) (models.Record, error) {
			return models.Record{ID: 1, Message: msg}, nil
		},
	}
	s := New(ft, state.NewStore(), WithMessageTTL(20*time.Millisecond))
	defer s.Close()

	<-s.CreateRecord(context.Background(), "hi")
	if !s.State().HasSuccess() {
		t.Fatal("expected success message right after completion")
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.State().HasSuccess() {
		if time.Now().After(deadline) {
			t.Fatal("success message was not auto-cleared")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(s.State().Items) != 1 {
		t.Error("auto-clear should not touch Items")
	}
}

// === Concurrency ===

// racingUpdates issues two updates of record 1; the first one completes last
func racingUpdates(t *testing.T, opts ...Option) state.ClientState {
	t.Helper()
	releaseFirst := make(chan struct{})
	ft := &fakeTransport{
		list: listOf(recA),
		update: func(_ context.Context, id int, msg string) (models.Record, error) {
			if msg == "first" {
				<-releaseFirst
			}
			return models.Record{ID: id, Message: msg}, nil
		},
	}
	s := New(ft, state.NewStore(), opts...)
	<-s.LoadAll(context.Background())

	first := s.UpdateRecord(context.Background(), 1, "first")
	<-s.UpdateRecord(context.Background(), 1, "second")
	close(releaseFirst)
	<-first
	s.Wait()

	return s.State()
}

func TestLastCompletionWins(t *testing.T) {
	st := racingUpdates(t)
	if st.Items[0].Message != "first" {
		t.Errorf("Message = %q, want %q (last completion folded wins)", st.Items[0].Message, "first")
	}
}

func TestStaleGuardDiscardsOvertakenCompletion(t *testing.T) {
	st := racingUpdates(t, WithStaleGuard())
	if st.Items[0].Message != "second" {
		t.Errorf("Message = %q, want %q (newest intent wins)", st.Items[0].Message, "second")
	}
	if st.IsLoading {
		t.Error("discarded completion should still reset IsLoading")
	}
}

// === End to end ===

func TestScenario(t *testing.T) {
	ts := "T1"
	ft := &fakeTransport{
		list: listOf(),
		create: func(_ context.Context, msg string) (models.Record, error) {
			return models.Record{ID: 1, Message: msg, Timestamp: ts}, nil
		},
		update: func(_ context.Context, id int, msg string) (models.Record, error) {
			return models.Record{ID: id, Message: msg, Timestamp: ts}, nil
		},
		delete: func(context.Context, int) (string, error) { return "Input deleted", nil },
	}
	s := New(ft, state.NewStore())
	ctx := context.Background()

	<-s.LoadAll(ctx)
	if len(s.State().Items) != 0 {
		t.Fatal("expected empty list")
	}

	<-s.CreateRecord(ctx, "hello")
	st := s.State()
	if !reflect.DeepEqual(st.Items, []models.Record{{ID: 1, Message: "hello", Timestamp: "T1"}}) {
		t.Errorf("after create Items = %v", st.Items)
	}
	if st.SuccessMessage != "Input created successfully" {
		t.Errorf("SuccessMessage = %q", st.SuccessMessage)
	}

	ts = "T2"
	<-s.UpdateRecord(ctx, 1, "world")
	if !reflect.DeepEqual(s.State().Items, []models.Record{{ID: 1, Message: "world", Timestamp: "T2"}}) {
		t.Errorf("after update Items = %v", s.State().Items)
	}

	<-s.DeleteRecord(ctx, 1)
	if len(s.State().Items) != 0 {
		t.Errorf("after delete Items = %v, want empty", s.State().Items)
	}
}

func TestScenario_AgainstEmulator(t *testing.T) {
	srv := httptest.NewServer(emulator.NewRouter(emulator.NewStore(nil)))
	defer srv.Close()

	s := New(client.NewClient(srv.URL, 5*time.Second), state.NewStore())
	ctx := context.Background()

	<-s.LoadAll(ctx)
	<-s.CreateRecord(ctx, "hello")
	<-s.CreateRecord(ctx, "there")
	<-s.UpdateRecord(ctx, 1, "world")
	<-s.DeleteRecord(ctx, 2)

	st := s.State()
	if len(st.Items) != 1 || st.Items[0].ID != 1 || st.Items[0].Message != "world" {
		t.Errorf("Items = %v, want [#1 world]", st.Items)
	}

	<-s.DeleteRecord(ctx, 2)
	st = s.State()
	if st.ErrorMessage == "" {
		t.Error("deleting a missing input on the device should surface an error")
	}
	if len(st.Items) != 1 {
		t.Error("failed delete should leave Items unchanged")
	}
}
