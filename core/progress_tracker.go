package core

import (
	"sync"
	"time"
)

// ProgressInfo is a snapshot of download progress.
type ProgressInfo struct {
	Total       int64 // 0 when unknown
	Downloaded  int64
	Percent     float64 // -1 when Total is unknown
	BytesPerSec float64
	ETA         time.Duration
	Elapsed     time.Duration
}

// String renders progress for console output.
func (p ProgressInfo) String() string {
	if p.Percent < 0 {
		return FormatBytes(p.Downloaded) + " (" + FormatBytes(int64(p.BytesPerSec)) + "/s)"
	}
	return FormatBytes(p.Downloaded) + " / " + FormatBytes(p.Total) +
		" (" + FormatBytes(int64(p.BytesPerSec)) + "/s, eta " + p.ETA.Round(time.Second).String() + ")"
}

// ProgressTracker accumulates byte counts and keeps an exponentially
// smoothed transfer rate. Safe for concurrent use.
type ProgressTracker struct {
	mu sync.RWMutex

	total          int64
	downloaded     int64
	startTime      time.Time
	lastUpdateTime time.Time
	lastDownloaded int64
	speedAvg       float64
}

// speedAlpha weights the newest rate sample.
const speedAlpha = 0.3

// NewProgressTracker starts tracking a transfer of total bytes (0 if unknown).
func NewProgressTracker(total int64) *ProgressTracker {
	now := time.Now()
	return &ProgressTracker{total: total, startTime: now, lastUpdateTime: now}
}

// Update adds n transferred bytes.
func (p *ProgressTracker) Update(n int64) {
	if n <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.downloaded += n
	p.updateSpeed()
}

// SetDownloaded sets the absolute byte count, e.g. when resuming.
func (p *ProgressTracker) SetDownloaded(downloaded int64) {
	if downloaded < 0 {
		downloaded = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.downloaded = downloaded
	p.lastDownloaded = downloaded
}

func (p *ProgressTracker) updateSpeed() {
	now := time.Now()
	elapsed := now.Sub(p.lastUpdateTime).Seconds()
	if elapsed < 0.1 {
		return
	}
	instant := float64(p.downloaded-p.lastDownloaded) / elapsed
	if p.speedAvg == 0 {
		p.speedAvg = instant
	} else {
		p.speedAvg = speedAlpha*instant + (1-speedAlpha)*p.speedAvg
	}
	p.lastUpdateTime = now
	p.lastDownloaded = p.downloaded
}

// Downloaded returns the byte count so far.
func (p *ProgressTracker) Downloaded() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.downloaded
}

// Progress returns a snapshot.
func (p *ProgressTracker) Progress() ProgressInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()

	info := ProgressInfo{
		Total:       p.total,
		Downloaded:  p.downloaded,
		Percent:     -1,
		BytesPerSec: p.speedAvg,
		Elapsed:     time.Since(p.startTime),
	}
	if p.total > 0 {
		info.Percent = float64(p.downloaded) / float64(p.total) * 100
		if info.Percent > 100 {
			info.Percent = 100
		}
		if p.speedAvg > 0 && p.downloaded < p.total {
			info.ETA = time.Duration(float64(p.total-p.downloaded) / p.speedAvg * float64(time.Second))
		}
	}
	return info
}
