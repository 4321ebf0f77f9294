package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"classhud/internal/timetable"
	logx "classhud/pkg/logx"
)

const doc1 = `{"classes":{"Monday":[{"classname":"Math","begin_time":"08:00","end_time":"08:45"}]}}`
const doc2 = `{"classes":{"Monday":[]}}`

func openTest(t *testing.T, driver, name string) Store {
	t.Helper()
	st, err := Open(Config{Driver: driver, Path: filepath.Join(t.TempDir(), name)}, logx.Nop())
	if err != nil {
		t.Fatalf("Open(%s): %v", driver, err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestStoresLoadSaveReset(t *testing.T) {
	t.Parallel()
	cases := []struct {
		driver, name string
	}{
		{"file", "timetable.json"},
		{"", "nested/dir/timetable.json"},
		{"file", "timetable.yaml"},
		{"sqlite", "timetable.db"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.driver+"/"+tc.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			st := openTest(t, tc.driver, tc.name)

			if _, err := st.Load(ctx); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Load on empty store = %v, want ErrNotFound", err)
			}
			if backup, err := st.Reset(ctx); err != nil || backup != "" {
				t.Fatalf("Reset on empty store = %q, %v", backup, err)
			}

			for _, d := range []string{doc1, doc2} {
				if err := st.Save(ctx, []byte(d)); err != nil {
					t.Fatalf("Save: %v", err)
				}
				got, err := st.Load(ctx)
				if err != nil {
					t.Fatalf("Load: %v", err)
				}
				assertSameJSON(t, d, string(got))
			}

			backup, err := st.Reset(ctx)
			if err != nil {
				t.Fatalf("Reset: %v", err)
			}
			if backup == "" {
				t.Fatal("Reset should report where the document went")
			}
			if _, err := st.Load(ctx); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Load after Reset = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestFileStoreKeepsBrokenFile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "timetable.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	st, err := Open(Config{Path: path}, logx.Logger{})
	if err != nil {
		t.Fatal(err)
	}
	fs := st.(*fileStore)
	fs.now = func() time.Time { return time.Unix(1700000000, 0) }

	if b, err := st.Load(ctx); err != nil || string(b) != "{not json" {
		t.Fatalf("Load = %q, %v (the store does not validate)", b, err)
	}
	backup, err := st.Reset(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if want := path + ".broken-1700000000"; backup != want {
		t.Fatalf("backup = %q, want %q", backup, want)
	}
	if b, err := os.ReadFile(backup); err != nil || string(b) != "{not json" {
		t.Fatalf("backup content = %q, %v", b, err)
	}
	if fs.WatchPath() != path {
		t.Fatalf("WatchPath = %q", fs.WatchPath())
	}
}

func TestFileStoreWritesYAML(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "timetable.yml")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Save(ctx, []byte(doc1)); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	if strings.HasPrefix(strings.TrimSpace(s), "{") || !strings.Contains(s, "classname: Math") {
		t.Fatalf("expected YAML on disk:\n%s", s)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestSQLiteRevisions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, err := Open(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "tt.db"), KeepRevisions: 2}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	for i := 0; i < 4; i++ {
		if err := st.Save(ctx, []byte(`{"n":`+string(rune('0'+i))+`}`)); err != nil {
			t.Fatal(err)
		}
	}
	revs, err := st.(Revisioner).Revisions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(revs) != 2 {
		t.Fatalf("kept %d revisions, want 2", len(revs))
	}
	if revs[0].ID == revs[1].ID || revs[0].ID == "" {
		t.Fatalf("revision ids = %q, %q", revs[0].ID, revs[1].ID)
	}
	got, err := st.Load(ctx)
	if err != nil || string(got) != `{"n":3}` {
		t.Fatalf("Load = %s, %v; want newest", got, err)
	}
}

func TestClosedStore(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"file", "sqlite"} {
		st, err := Open(Config{Driver: driver, Path: filepath.Join(t.TempDir(), "x.db")}, logx.Nop())
		if err != nil {
			t.Fatal(err)
		}
		_ = st.Close()
		if _, err := st.Load(context.Background()); !errors.Is(err, ErrClosed) {
			t.Fatalf("%s: Load after Close = %v", driver, err)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "mongo"}, logx.Nop()); err == nil {
		t.Fatal("expected error")
	}
}

func TestFileStoreYAMLUnquotedDate(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "timetable.yaml")
	doc := "cycle_class_count_start: 2024-09-01\n" +
		"classes:\n" +
		"  Monday:\n" +
		"    - classname: Math\n" +
		"      begin_time: 08:00\n" +
		"      end_time: 8:45\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	b, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tt, err := timetable.Decode(b)
	if err != nil {
		t.Fatalf("Decode(%s): %v", b, err)
	}
	start, ok := tt.CycleStart()
	if !ok || start.Format(time.DateOnly) != "2024-09-01" {
		t.Fatalf("CycleStart = %v, %v", start, ok)
	}
}

func TestFileStoreReadsJSON5(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "classes.json")
	doc := `{
  // written by hand
  classes: {
    Monday: [
      {classname: 'Math', begin_time: '08:00', end_time: '08:45',},
    ],
  },
}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	st, err := Open(Config{Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	b, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertSameJSON(t, doc1, string(b))

	if err := st.Save(ctx, b); err != nil {
		t.Fatal(err)
	}
	onDisk, _ := os.ReadFile(path)
	assertSameJSON(t, doc1, string(onDisk))
}

func TestSQLiteCloseWhileLoading(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, err := Open(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "tt.db")}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Save(ctx, []byte(doc1)); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_, _ = st.Load(ctx)
			}
		}()
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}
	wg.Wait()
	if _, err := st.Load(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("Load after Close = %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("second Close = %v", err)
	}
}
