// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package coordinator

import "time"

// Stats is a point-in-time snapshot of node activity, grounded on the
// teacher's own Stats struct (slot counters, timing averages, uptime).
type Stats struct {
	StartTime          time.Time
	RoundsProcessed     uint64
	BlocksProposed      uint64
	MissedRounds        uint64
	LastRoundTime       time.Duration
	AverageRoundTime    time.Duration
	LastFinalizedBlock  uint64
	SyncInProgress      bool
	Uptime              time.Duration
}

func (c *Coordinator) updateAverageRoundTime(newTime time.Duration) {
	if c.stats.RoundsProcessed == 1 {
		c.stats.AverageRoundTime = newTime
		return
	}
	total := c.stats.AverageRoundTime * time.Duration(c.stats.RoundsProcessed-1)
	total += newTime
	c.stats.AverageRoundTime = total / time.Duration(c.stats.RoundsProcessed)
}

// GetStats returns a snapshot of the coordinator's running statistics.
func (c *Coordinator) GetStats() *Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := *c.stats
	snap.Uptime = time.Since(snap.StartTime)
	snap.SyncInProgress = c.syncMgr.Active()
	return &snap
}
