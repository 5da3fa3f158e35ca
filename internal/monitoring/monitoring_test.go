package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/prospector/internal/config"
	"github.com/sells-group/prospector/internal/model"
	"github.com/sells-group/prospector/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()

	s, err := store.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Migrate(ctx))
	return s
}

func seedRuns(t *testing.T, st store.Store, completed, failed int) {
	t.Helper()
	ctx := context.Background()

	gtID, err := st.CreateGeoTarget(ctx, &model.GeoTarget{
		Name: "tampa-bay", Active: true,
	})
	require.NoError(t, err)

	for i := 0; i < completed; i++ {
		runID, err := st.CreateRun(ctx, gtID)
		require.NoError(t, err)
		require.NoError(t, st.CompleteRun(ctx, runID, &model.SweepResult{
			QueriesRun: 10, ResultsFound: 40, NewLeads: 12,
		}))
	}
	for i := 0; i < failed; i++ {
		runID, err := st.CreateRun(ctx, gtID)
		require.NoError(t, err)
		require.NoError(t, st.FailRun(ctx, runID, eris.New("blocked")))
	}
}

func TestCollectorSnapshot(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedRuns(t, st, 3, 1)

	snap, err := NewCollector(st).Collect(ctx, 24)
	require.NoError(t, err)

	assert.Equal(t, 4, snap.SweepTotal)
	assert.Equal(t, 1, snap.SweepFailed)
	assert.InDelta(t, 0.25, snap.SweepFailRate, 1e-9)
	assert.Equal(t, 36, snap.NewLeads)
	assert.Equal(t, 24, snap.LookbackHours)
}

func TestCollectorIgnoresRunsOutsideWindow(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedRuns(t, st, 1, 0)

	// A zero-hour lookback puts the cutoff at "now", after every seeded run.
	snap, err := NewCollector(st).Collect(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, snap.SweepTotal)
}

func testMonitoringConfig() config.MonitoringConfig {
	return config.MonitoringConfig{
		LookbackWindowHours:   24,
		SweepFailureThreshold: 0.5,
		SendFailureThreshold:  0.25,
		EnrichBacklogMax:      100,
	}
}

func TestAlerterEvaluate(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want []AlertType
	}{
		{
			name: "healthy",
			snap: Snapshot{SweepTotal: 10, SweepFailed: 1, SweepFailRate: 0.1},
			want: nil,
		},
		{
			name: "sweep failures over threshold",
			snap: Snapshot{SweepTotal: 4, SweepFailed: 3, SweepFailRate: 0.75},
			want: []AlertType{AlertSweepFailureRate},
		},
		{
			name: "too few sweeps to alert",
			snap: Snapshot{SweepTotal: 2, SweepFailed: 2, SweepFailRate: 1.0},
			want: nil,
		},
		{
			name: "send failures over threshold",
			snap: Snapshot{OutreachSent: 6, OutreachFailed: 4, OutreachFailRate: 0.4},
			want: []AlertType{AlertSendFailureRate},
		},
		{
			name: "enrichment backlog",
			snap: Snapshot{AwaitingEnrichment: 150},
			want: []AlertType{AlertEnrichBacklog},
		},
		{
			name: "multiple alerts",
			snap: Snapshot{
				SweepTotal: 4, SweepFailed: 3, SweepFailRate: 0.75,
				AwaitingEnrichment: 150,
			},
			want: []AlertType{AlertSweepFailureRate, AlertEnrichBacklog},
		},
	}

	a := NewAlerter(testMonitoringConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := a.Evaluate(&tt.snap)
			var got []AlertType
			for _, al := range alerts {
				got = append(got, al.Type)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSendAlertsWebhook(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var alert Alert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		assert.Equal(t, AlertSweepFailureRate, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testMonitoringConfig()
	cfg.WebhookURL = srv.URL
	a := NewAlerter(cfg)

	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertSweepFailureRate, Severity: "high", Timestamp: time.Now()},
	})
	assert.Equal(t, 1, sent)
	assert.Equal(t, int32(1), received.Load())
}

func TestSendAlertsWebhookFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := testMonitoringConfig()
	cfg.WebhookURL = srv.URL
	a := NewAlerter(cfg)

	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertSendFailureRate, Severity: "high", Timestamp: time.Now()},
	})
	assert.Zero(t, sent)
}

func TestSendAlertsNoWebhookConfigured(t *testing.T) {
	a := NewAlerter(testMonitoringConfig())
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertEnrichBacklog, Severity: "medium", Timestamp: time.Now()},
	})
	assert.Zero(t, sent)
}

func TestCheckerCheckDeliversAlerts(t *testing.T) {
	st := newTestStore(t)
	seedRuns(t, st, 1, 3)

	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testMonitoringConfig()
	cfg.WebhookURL = srv.URL
	checker := NewChecker(NewCollector(st), NewAlerter(cfg), cfg)

	checker.check(context.Background(), zap.NewNop())
	assert.Equal(t, int32(1), received.Load())
}
