package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambitmohanty1/wildlife-watchdog/internal/analytics"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/eventbus"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/models"
)

func testInsights() []analytics.Insight {
	return []analytics.Insight{
		{
			ID:             "spatial-1",
			Type:           analytics.InsightSpatial,
			Title:          "Poaching hotspot at North Ridge",
			Description:    "North Ridge has a predicted risk of 9.1.",
			Recommendation: "Deploy additional patrols.",
			Priority:       9,
			Data:           &analytics.InsightData{Clusters: []analytics.Cluster{{Location: "North Ridge", IncidentCount: 3, Risk: 9.1}}},
		},
		{
			ID:       "conservation-1",
			Type:     analytics.InsightConservation,
			Title:    "Rhino population declining",
			Priority: 8,
		},
		{
			ID:       "temporal-1",
			Type:     analytics.InsightTemporal,
			Title:    "June is the peak poaching month",
			Priority: 7,
		},
	}
}

func TestAlertService_RaiseAlerts(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	raised, err := svc.alerts.RaiseAlerts(ctx, ScopeAll, testInsights())
	require.NoError(t, err)
	require.Len(t, raised, 2, "only insights at or above priority 8 raise alerts")
	assert.Equal(t, "spatial-1", raised[0].InsightID)
	assert.Equal(t, AlertOpen, raised[0].Status)
	assert.Contains(t, raised[0].Message, "Deploy additional patrols.")
	assert.Contains(t, string(raised[0].Data), "North Ridge")

	events := svc.bus.Events(eventbus.TopicAlerts)
	require.Len(t, events, 2)
	var event eventbus.AlertRaised
	require.NoError(t, events[0].Decode(&event))
	assert.Equal(t, raised[0].ID.String(), event.AlertID)
	assert.Equal(t, 9, event.Priority)
	assert.Equal(t, ScopeAll, event.Scope)

	t.Run("repeat analysis raises nothing new", func(t *testing.T) {
		again, err := svc.alerts.RaiseAlerts(ctx, ScopeAll, testInsights())
		require.NoError(t, err)
		assert.Empty(t, again)
		assert.Len(t, svc.bus.Events(eventbus.TopicAlerts), 2)
	})

	t.Run("same insight in another scope", func(t *testing.T) {
		other, err := svc.alerts.RaiseAlerts(ctx, uuid.New().String(), testInsights()[:1])
		require.NoError(t, err)
		assert.Len(t, other, 1)
	})
}

func TestAlertService_ListAndUpdate(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	raised, err := svc.alerts.RaiseAlerts(ctx, ScopeAll, testInsights())
	require.NoError(t, err)
	require.Len(t, raised, 2)

	alerts, err := svc.alerts.ListAlerts(ctx, ScopeAll, "", 0)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, 9, alerts[0].Priority, "highest priority first")

	updated, err := svc.alerts.UpdateAlertStatus(ctx, raised[1].ID, AlertAcknowledged)
	require.NoError(t, err)
	assert.Equal(t, AlertAcknowledged, updated.Status)

	open, err := svc.alerts.ListAlerts(ctx, "", AlertOpen, 10)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, raised[0].ID, open[0].ID)

	_, err = svc.alerts.UpdateAlertStatus(ctx, raised[0].ID, "escalated")
	assert.ErrorIs(t, err, models.ErrInvalidRecord)

	_, err = svc.alerts.UpdateAlertStatus(ctx, uuid.New(), AlertResolved)
	assert.ErrorIs(t, err, ErrNotFound)

	stats, err := svc.alerts.GetAlertStats(ctx, ScopeAll)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats["total_alerts"])
}
