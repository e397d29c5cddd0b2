package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"backuprestore/internal/service"
	"backuprestore/internal/storage"
)

type fakeService struct {
	name     string
	kind     service.Kind
	priority int
	state    service.State
	exports  map[string][]byte
	failOn   string

	exported []string
}

func (f *fakeService) Name() string         { return f.name }
func (f *fakeService) Kind() service.Kind   { return f.kind }
func (f *fakeService) Version() string      { return "1.0" }
func (f *fakeService) Priority() int        { return f.priority }
func (f *fakeService) State() service.State { return f.state }
func (f *fakeService) Exporter() service.Exporter {
	return exportFunc(func(ctx context.Context, object string) ([]byte, error) {
		if object == f.failOn {
			return nil, errors.New("export blew up")
		}
		f.exported = append(f.exported, object)
		if data, ok := f.exports[object]; ok {
			return data, nil
		}
		return []byte("[]"), nil
	})
}
func (f *fakeService) Importer() service.Importer { return nil }

type exportFunc func(ctx context.Context, object string) ([]byte, error)

func (fn exportFunc) Export(ctx context.Context, object string) ([]byte, error) {
	return fn(ctx, object)
}

func newManager(t *testing.T, services ...*fakeService) (*Manager, storage.Client) {
	t.Helper()
	store := storage.NewLocal(t.TempDir())
	svcMap := map[string]service.Service{}
	for _, svc := range services {
		svcMap[svc.name] = svc
	}
	return &Manager{
		Services: svcMap,
		Store:    store,
		Now:      func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) },
		NewID:    func() string { return "snap-0001" },
	}, store
}

func keycloakLike() *fakeService {
	return &fakeService{
		name:     "keycloak",
		kind:     service.KindSerial,
		priority: 10,
		state: service.NewState(
			service.Object{Name: "clients"},
			service.Object{Name: "users", DependsOn: []string{"groups"}},
			service.Object{Name: "groups"},
		),
		exports: map[string][]byte{
			"clients": []byte(`[{"clientId":"portal"}]`),
		},
	}
}

func TestBackupUploadsDataAndMetadata(t *testing.T) {
	ctx := context.Background()
	svc := keycloakLike()
	mgr, store := newManager(t, svc)

	meta, err := mgr.Backup(ctx, Options{})
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if meta.SnapshotID != "snap-0001" {
		t.Errorf("SnapshotID = %q", meta.SnapshotID)
	}
	if meta.FormatVersion == "" {
		t.Error("metadata must carry the format version")
	}

	names, err := store.List(ctx, "keycloak")
	if err != nil {
		t.Fatal(err)
	}
	slices.Sort(names)
	want := []string{"snap-0001/clients.json", "snap-0001/groups.json", "snap-0001/users.json"}
	if !slices.Equal(names, want) {
		t.Errorf("uploaded objects = %v; want %v", names, want)
	}

	raw, err := store.Get(ctx, MetadataBucket, MetadataObject("snap-0001"))
	if err != nil {
		t.Fatalf("metadata missing: %v", err)
	}
	parsed, err := ParseMetadata(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(parsed.Services) != 1 || parsed.Services[0].Name != "keycloak" {
		t.Errorf("metadata services = %+v", parsed.Services)
	}
}

func TestBackupExportsInDependencyOrder(t *testing.T) {
	svc := keycloakLike()
	mgr, _ := newManager(t, svc)

	if _, err := mgr.Backup(context.Background(), Options{}); err != nil {
		t.Fatal(err)
	}
	groupsIdx := slices.Index(svc.exported, "groups")
	usersIdx := slices.Index(svc.exported, "users")
	if groupsIdx == -1 || usersIdx == -1 || groupsIdx > usersIdx {
		t.Errorf("groups must export before users, got %v", svc.exported)
	}
}

func TestBackupTarUploadsSingleArchive(t *testing.T) {
	ctx := context.Background()
	svc := keycloakLike()
	mgr, store := newManager(t, svc)

	if _, err := mgr.Backup(ctx, Options{Tar: true}); err != nil {
		t.Fatal(err)
	}
	names, err := store.List(ctx, "keycloak")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "snap-0001/keycloak.tar.gz" {
		t.Errorf("expected a single tar.gz under the snapshot prefix, got %v", names)
	}
}

func TestBackupKeepsEarlierSnapshots(t *testing.T) {
	ctx := context.Background()
	svc := keycloakLike()
	mgr, store := newManager(t, svc)

	ids := []string{"snap-0001", "snap-0002"}
	var calls int
	mgr.NewID = func() string { id := ids[calls]; calls++; return id }

	if _, err := mgr.Backup(ctx, Options{}); err != nil {
		t.Fatal(err)
	}
	svc.exports["clients"] = []byte(`[{"clientId":"changed"}]`)
	if _, err := mgr.Backup(ctx, Options{}); err != nil {
		t.Fatal(err)
	}

	first, err := store.Get(ctx, "keycloak", "snap-0001/clients.json")
	if err != nil {
		t.Fatalf("first snapshot's data was lost: %v", err)
	}
	if !strings.Contains(string(first), "portal") {
		t.Errorf("first snapshot data = %s; want the original export", first)
	}
	second, err := store.Get(ctx, "keycloak", "snap-0002/clients.json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(second), "changed") {
		t.Errorf("second snapshot data = %s; want the changed export", second)
	}
}

func TestBackupMetadataRecordsDataPrefix(t *testing.T) {
	svc := keycloakLike()
	mgr, _ := newManager(t, svc)

	meta, err := mgr.Backup(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(meta.Services) != 1 || meta.Services[0].Data != meta.SnapshotID {
		t.Errorf("service entries = %+v; want data prefix %q", meta.Services, meta.SnapshotID)
	}
}

func TestBackupFailureWritesNoMetadata(t *testing.T) {
	ctx := context.Background()
	svc := keycloakLike()
	svc.failOn = "users"
	mgr, store := newManager(t, svc)

	if _, err := mgr.Backup(ctx, Options{}); err == nil {
		t.Fatal("expected backup failure")
	}
	names, err := store.List(ctx, MetadataBucket)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Errorf("failed snapshot must not publish metadata, got %v", names)
	}
}

func TestBackupSubsetAndUnknownService(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newManager(t, keycloakLike())

	if _, err := mgr.Backup(ctx, Options{Services: []string{"nope"}}); err == nil {
		t.Fatal("unknown service must fail")
	}
	if _, err := mgr.Backup(ctx, Options{Services: []string{"keycloak"}}); err != nil {
		t.Fatalf("subset backup: %v", err)
	}
}

func TestBackupRunsParallelServices(t *testing.T) {
	services := make([]*fakeService, 3)
	for i := range services {
		services[i] = &fakeService{
			name:     fmt.Sprintf("svc%d", i),
			kind:     service.KindParallel,
			priority: i,
			state:    service.NewState(service.Object{Name: "data"}),
		}
	}
	mgr, store := newManager(t, services...)

	if _, err := mgr.Backup(context.Background(), Options{}); err != nil {
		t.Fatal(err)
	}
	for _, svc := range services {
		names, err := store.List(context.Background(), svc.name)
		if err != nil {
			t.Fatal(err)
		}
		if len(names) != 1 {
			t.Errorf("%s: expected one uploaded object, got %v", svc.name, names)
		}
	}
}

func TestParseMetadataRoundTrip(t *testing.T) {
	meta := Metadata{
		FormatVersion: "1.0.0",
		SnapshotID:    "abc",
		Description:   "test",
		CreatedAt:     time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	data, err := marshalMetadata(meta)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := ParseMetadata(data)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.SnapshotID != "abc" || !parsed.CreatedAt.Equal(meta.CreatedAt) {
		t.Errorf("round trip lost data: %+v", parsed)
	}

	var js map[string]any
	if err := json.Unmarshal(data, &js); err != nil {
		t.Fatal(err)
	}
	if _, ok := js["backup_and_restore_version"]; !ok {
		t.Error("metadata must use the backup_and_restore_version key")
	}
}

func TestSnapshotIDFromObject(t *testing.T) {
	if got := SnapshotIDFromObject("snap-1_metadata.json"); got != "snap-1" {
		t.Errorf("got %q", got)
	}
	if got := SnapshotIDFromObject("clients.json"); got != "" {
		t.Errorf("non-metadata object should yield empty id, got %q", got)
	}
}
