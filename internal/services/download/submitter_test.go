// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package download

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/fetcharr/internal/database"
	"github.com/autobrr/fetcharr/internal/domain"
	"github.com/autobrr/fetcharr/internal/downloadclient"
	"github.com/autobrr/fetcharr/internal/events"
	"github.com/autobrr/fetcharr/internal/models"
	"github.com/autobrr/fetcharr/internal/services/tracker"
)

type fakeClient struct {
	name     string
	protocol domain.Protocol

	submitErrs []error // consumed per attempt, nil means success
	submits    int
	submitted  []string
}

func (f *fakeClient) Name() string              { return f.name }
func (f *fakeClient) Protocol() domain.Protocol { return f.protocol }

func (f *fakeClient) Submit(_ context.Context, remote domain.RemoteBook) (string, error) {
	attempt := f.submits
	f.submits++
	if attempt < len(f.submitErrs) && f.submitErrs[attempt] != nil {
		return "", f.submitErrs[attempt]
	}
	f.submitted = append(f.submitted, remote.Release.Title)
	return "abc123", nil
}

func (f *fakeClient) GetItems(context.Context) ([]domain.DownloadClientItem, error) {
	return nil, nil
}

func (f *fakeClient) RemoveItem(context.Context, string, bool) error { return nil }

func newTestSubmitter(t *testing.T, clients ...downloadclient.Adapter) (*Submitter, *models.HistoryStore, *tracker.Service, *events.Bus) {
	t.Helper()

	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := zerolog.Nop()
	bus := events.NewBus(log)
	registry := &downloadclient.Registry{}
	for _, c := range clients {
		registry.Register(c)
	}

	trk := tracker.NewService(log, registry, bus, tracker.NewFailedDownloadDetector(log, bus), nil)
	history := models.NewHistoryStore(db)

	return NewSubmitter(log, registry, trk, history, bus), history, trk, bus
}

func sampleDecision() domain.CandidateDecision {
	return domain.CandidateDecision{
		Remote: domain.RemoteBook{
			Release: domain.ReleaseInfo{
				Title:    "Brandon Sanderson - The Way of Kings (2010) EPUB",
				Indexer:  "mock-indexer",
				Protocol: domain.ProtocolTorrent,
			},
			Author: domain.Author{ID: 7, Name: "Brandon Sanderson"},
			Books:  []domain.Book{{ID: 11, Title: "The Way of Kings"}},
		},
	}
}

func TestSubmitter_Grab(t *testing.T) {
	t.Parallel()

	client := &fakeClient{name: "qbit", protocol: domain.ProtocolTorrent}
	submitter, history, trk, bus := newTestSubmitter(t, client)

	var grabs []events.GrabEvent
	bus.OnGrab(func(ev events.GrabEvent) { grabs = append(grabs, ev) })

	err := submitter.Grab(context.Background(), sampleDecision())
	require.NoError(t, err)

	assert.Equal(t, []string{"Brandon Sanderson - The Way of Kings (2010) EPUB"}, client.submitted)

	entries, err := history.ByDownloadID(context.Background(), "abc123")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.HistoryEventGrabbed, entries[0].EventType)
	assert.Equal(t, int64(7), entries[0].AuthorID)
	assert.Equal(t, "mock-indexer", entries[0].Data["indexer"])
	assert.Equal(t, "qbit", entries[0].Data["client"])

	require.Len(t, trk.All(), 1)
	assert.Equal(t, "abc123", trk.All()[0].DownloadID)

	require.Len(t, grabs, 1)
	assert.Equal(t, "abc123", grabs[0].DownloadID)
	assert.Equal(t, "qbit", grabs[0].Client)
}

func TestSubmitter_GrabRetriesTransientFailure(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		name:       "qbit",
		protocol:   domain.ProtocolTorrent,
		submitErrs: []error{errors.New("connection reset"), errors.New("connection reset")},
	}
	submitter, _, trk, _ := newTestSubmitter(t, client)

	err := submitter.Grab(context.Background(), sampleDecision())
	require.NoError(t, err)

	assert.Equal(t, 3, client.submits)
	assert.Len(t, trk.All(), 1)
}

func TestSubmitter_GrabExhaustsRetries(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		name:       "qbit",
		protocol:   domain.ProtocolTorrent,
		submitErrs: []error{errors.New("down"), errors.New("down"), errors.New("down")},
	}
	submitter, history, trk, _ := newTestSubmitter(t, client)

	err := submitter.Grab(context.Background(), sampleDecision())
	require.Error(t, err)

	assert.Equal(t, 3, client.submits)
	assert.Empty(t, trk.All())

	entries, err := history.Recent(context.Background(), 50)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSubmitter_GrabNoClientForProtocol(t *testing.T) {
	t.Parallel()

	client := &fakeClient{name: "sab", protocol: domain.ProtocolUsenet}
	submitter, _, _, _ := newTestSubmitter(t, client)

	err := submitter.Grab(context.Background(), sampleDecision())
	require.Error(t, err)
	assert.ErrorIs(t, err, downloadclient.ErrNoClient)
}
