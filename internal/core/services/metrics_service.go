package services

import (
	"time"

	"roomchat/internal/core/domain"
)

// NoopMetrics discards every signal. Used when metrics are disabled and in tests.
type NoopMetrics struct{}

func (NoopMetrics) RoomOpened(domain.RoomName) {}
func (NoopMetrics) RoomClosed(domain.RoomName) {}
func (NoopMetrics) ConnectionJoined(domain.RoomName) {}
func (NoopMetrics) ConnectionLeft(domain.RoomName) {}
func (NoopMetrics) EventBroadcast(domain.EventType, int, time.Duration) {}
func (NoopMetrics) SendFailed(domain.RoomName) {}
func (NoopMetrics) FrameRejected(string) {}
func (NoopMetrics) AdmissionRejected(string) {}
func (NoopMetrics) ViewOnceIssued() {}
func (NoopMetrics) ViewOnceRedeemed(bool) {}
