package engagement

import (
	"testing"
	"time"
)

func TestTicketTimelineObserveOutOfOrder(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var tl TicketTimeline

	tl.Observe(DirectionInbound, base.Add(10*time.Minute))
	tl.Observe(DirectionInbound, base)
	tl.Observe(DirectionInbound, base.Add(5*time.Minute))

	if tl.FirstInboundAt == nil || !tl.FirstInboundAt.Equal(base) {
		t.Fatalf("first inbound = %v, want %v", tl.FirstInboundAt, base)
	}
	if tl.LastInboundAt == nil || !tl.LastInboundAt.Equal(base.Add(10*time.Minute)) {
		t.Fatalf("last inbound = %v, want %v", tl.LastInboundAt, base.Add(10*time.Minute))
	}
	if tl.FirstOutboundAt != nil || tl.LastOutboundAt != nil {
		t.Fatalf("outbound bounds should stay nil")
	}
}

func TestTicketTimelineDirectionsIndependent(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var tl TicketTimeline

	tl.Observe(DirectionInbound, base)
	tl.Observe(DirectionOutbound, base.Add(time.Minute))

	if !tl.FirstInboundAt.Equal(base) || !tl.LastInboundAt.Equal(base) {
		t.Fatalf("inbound bounds = [%v, %v]", tl.FirstInboundAt, tl.LastInboundAt)
	}
	if !tl.FirstOutboundAt.Equal(base.Add(time.Minute)) || !tl.LastOutboundAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("outbound bounds = [%v, %v]", tl.FirstOutboundAt, tl.LastOutboundAt)
	}
}

func TestTicketTimelineEqualTimestampMovesLast(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var tl TicketTimeline

	tl.Observe(DirectionInbound, at)
	tl.Observe(DirectionInbound, at)

	if !tl.FirstInboundAt.Equal(at) || !tl.LastInboundAt.Equal(at) {
		t.Fatalf("bounds = [%v, %v], want both %v", tl.FirstInboundAt, tl.LastInboundAt, at)
	}
}
