package influxdb_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/bambu-core/internal/event"
	"github.com/nerrad567/bambu-core/internal/infrastructure/config"
	"github.com/nerrad567/bambu-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/bambu-core/internal/job"
	"github.com/nerrad567/bambu-core/internal/status"
)

// fakeServer answers pings and records line protocol bodies.
type fakeServer struct {
	*httptest.Server
	mu     sync.Mutex
	writes []string
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	s := &fakeServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v2/write" {
			body, _ := io.ReadAll(r.Body)
			s.mu.Lock()
			s.writes = append(s.writes, string(body))
			s.mu.Unlock()
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *fakeServer) body() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.writes, "\n")
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "test-token",
		Org:           "bambu",
		Bucket:        "printer",
		BatchSize:     1,
		FlushInterval: 1,
	}
}

func testStatus() status.Status {
	return status.Status{
		TaskID:          "1",
		SubtaskID:       "10",
		SubtaskName:     "benchy",
		PrintType:       "cloud",
		State:           "RUNNING",
		CurrentLayer:    12,
		MaxLayers:       120,
		ProgressPercent: 42,
		StartTime:       time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		RemainingTime:   30 * time.Minute,
		Temperatures: status.Temperatures{
			Bed:      status.Temperature{Actual: 59.5, Target: 60},
			Extruder: status.Temperature{Actual: 219, Target: 220},
		},
		Fans: status.Fans{Cooling: 100},
	}
}

// =============================================================================
// Connection Tests
// =============================================================================

func openRecorder(t *testing.T, srv *fakeServer) *influxdb.Recorder {
	t.Helper()
	rec, err := influxdb.Open(context.Background(), testConfig(srv.URL), "ABC")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { rec.Close() })
	return rec
}

func TestOpen_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Enabled = false

	_, err := influxdb.Open(context.Background(), cfg, "ABC")
	if !errors.Is(err, influxdb.ErrHistoryDisabled) {
		t.Errorf("Open() error = %v, want ErrHistoryDisabled", err)
	}
}

func TestOpen_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := influxdb.Open(ctx, testConfig("http://127.0.0.1:1"), "ABC")
	if !errors.Is(err, influxdb.ErrServerUnreachable) {
		t.Errorf("Open() error = %v, want ErrServerUnreachable", err)
	}
}

func TestOpen_HealthCheck(t *testing.T) {
	rec := openRecorder(t, newFakeServer(t))

	if rec.Closed() {
		t.Error("Closed() = true after Open()")
	}
	if rec.Serial() != "ABC" {
		t.Errorf("Serial() = %q, want ABC", rec.Serial())
	}
	if err := rec.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestClose(t *testing.T) {
	srv := newFakeServer(t)
	rec := openRecorder(t, srv)

	if err := rec.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if !rec.Closed() {
		t.Error("Closed() = false after Close()")
	}
	if err := rec.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrRecorderClosed) {
		t.Errorf("HealthCheck() error = %v, want ErrRecorderClosed", err)
	}

	// Writes after Close are dropped silently.
	rec.RecordStatus(testStatus())
	rec.RecordJob(event.PrintStart, job.New(testStatus()))
	rec.Flush()
	if body := srv.body(); body != "" {
		t.Errorf("write body after Close = %q, want nothing", body)
	}
}

func TestClose_Zero(t *testing.T) {
	var rec influxdb.Recorder
	if err := rec.Close(); err != nil {
		t.Errorf("Close() on zero recorder error = %v", err)
	}
	if !rec.Closed() {
		t.Error("zero recorder should report closed")
	}
}

// =============================================================================
// Write Tests
// =============================================================================

func TestRecordStatus(t *testing.T) {
	srv := newFakeServer(t)
	rec := openRecorder(t, srv)

	var writeErr error
	var mu sync.Mutex
	rec.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})

	rec.RecordStatus(testStatus())
	rec.Flush()

	body := srv.body()
	if !strings.Contains(body, "printer_status,serial=ABC,state=RUNNING ") {
		t.Errorf("write body = %q, want printer_status point tagged by serial and state", body)
	}
	if !strings.Contains(body, "progress_percent=42i") {
		t.Errorf("write body = %q, want progress_percent=42i", body)
	}

	mu.Lock()
	defer mu.Unlock()
	if writeErr != nil {
		t.Errorf("write error = %v", writeErr)
	}
}

func TestRecordStatus_SkipsRepeats(t *testing.T) {
	srv := newFakeServer(t)
	rec := openRecorder(t, srv)

	st := testStatus()
	for range 5 {
		rec.RecordStatus(st)
	}
	st.ProgressPercent = 43
	rec.RecordStatus(st)
	st.State = "PAUSE"
	rec.RecordStatus(st)
	rec.Flush()

	body := srv.body()
	if got := strings.Count(body, "printer_status,"); got != 3 {
		t.Errorf("write body = %q, want 3 printer_status points, got %d", body, got)
	}
}

func TestRecordJob_SkipsUpdates(t *testing.T) {
	srv := newFakeServer(t)
	rec := openRecorder(t, srv)

	j := job.New(testStatus())
	rec.RecordJob(event.PrintUpdate, j)
	rec.RecordJob(event.PrintStart, j)
	rec.RecordJob(event.PrintStart, nil)
	rec.Flush()

	body := srv.body()
	if strings.Contains(body, "event=print:update") {
		t.Errorf("write body = %q, updates should not be written", body)
	}
	if strings.Count(body, "printer_job,") != 1 {
		t.Errorf("write body = %q, want exactly one printer_job point", body)
	}
}

// =============================================================================
// Point Tests
// =============================================================================

func TestStatusPoint(t *testing.T) {
	at := time.Date(2026, 10, 1, 12, 30, 0, 0, time.UTC)
	line := write.PointToLineProtocol(influxdb.StatusPoint("ABC", testStatus(), at), time.Second)

	for _, want := range []string{
		"printer_status,serial=ABC,state=RUNNING ",
		"layer=12i",
		"max_layers=120i",
		"remaining_s=1800i",
		"bed_temp=59.5",
		"nozzle_target=220",
		"fan_cooling=100i",
		" 1790857800",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("StatusPoint() = %q, missing %q", line, want)
		}
	}
}

func TestJobPoint(t *testing.T) {
	s := testStatus()
	s.State = "FINISH"
	start := job.New(s)
	end := s.StartTime.Add(90 * time.Minute)
	start.EndAt(s, end)

	line := write.PointToLineProtocol(influxdb.JobPoint("ABC", event.PrintFinish, start, end), time.Second)

	for _, want := range []string{
		"printer_job,event=print:finish,print_type=cloud,serial=ABC ",
		`job_id="1_10"`,
		`subtask_name="benchy"`,
		"duration_s=5400i",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("JobPoint() = %q, missing %q", line, want)
		}
	}
	if strings.Contains(line, "prediction_s") {
		t.Errorf("JobPoint() = %q, slice info fields without an archive", line)
	}
}
