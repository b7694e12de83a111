// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package events provides the in-process event bus connecting the acquisition
// services. Handlers run synchronously on the publisher's goroutine; a
// panicking handler is logged and isolated so the remaining handlers still run.
package events

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/autobrr/fetcharr/internal/domain"
)

// GrabEvent fires after a release has been accepted by a download client.
type GrabEvent struct {
	Remote     domain.RemoteBook
	DownloadID string
	Client     string
}

// DownloadFailedEvent fires exactly once per failed download, after the
// tracked download has transitioned to its terminal failed state.
type DownloadFailedEvent struct {
	DownloadID string
	Remote     domain.RemoteBook
	Message    string
}

// DownloadCompletedEvent fires when a tracked download finishes importing.
type DownloadCompletedEvent struct {
	DownloadID string
	Remote     domain.RemoteBook
}

// Bus fans events out to subscribers. Safe for concurrent use.
type Bus struct {
	log zerolog.Logger

	mu                sync.RWMutex
	grabHandlers      []func(GrabEvent)
	failedHandlers    []func(DownloadFailedEvent)
	completedHandlers []func(DownloadCompletedEvent)
}

func NewBus(log zerolog.Logger) *Bus {
	return &Bus{log: log.With().Str("component", "events").Logger()}
}

func (b *Bus) OnGrab(h func(GrabEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.grabHandlers = append(b.grabHandlers, h)
}

func (b *Bus) OnDownloadFailed(h func(DownloadFailedEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failedHandlers = append(b.failedHandlers, h)
}

func (b *Bus) OnDownloadCompleted(h func(DownloadCompletedEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.completedHandlers = append(b.completedHandlers, h)
}

func (b *Bus) PublishGrab(ev GrabEvent) {
	b.mu.RLock()
	handlers := b.grabHandlers
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch("grab", func() { h(ev) })
	}
}

func (b *Bus) PublishDownloadFailed(ev DownloadFailedEvent) {
	b.mu.RLock()
	handlers := b.failedHandlers
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch("downloadFailed", func() { h(ev) })
	}
}

func (b *Bus) PublishDownloadCompleted(ev DownloadCompletedEvent) {
	b.mu.RLock()
	handlers := b.completedHandlers
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch("downloadCompleted", func() { h(ev) })
	}
}

func (b *Bus) dispatch(event string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Str("event", event).Interface("panic", r).
				Msg("event handler panicked")
		}
	}()
	fn()
}
