package store

import (
	"sync"
	"time"

	"PatternPull/internal/domain/models"
)

// tickerState is the mutable window for one ticker. All fields are guarded
// by mu; indicator sums are maintained incrementally so ingest cost does not
// grow with the buffer.
type tickerState struct {
	mu sync.Mutex

	bars   []models.Bar
	lastTS time.Time

	// Rolling indicator windows.
	smaShort *rollingSum
	smaLong  *rollingSum
	avgVol   *rollingSum
	momRing  *rollingSum // holds momentumWindow+1 closes; only the ends are read

	// Session accumulation; reset on date change, immune to eviction.
	pvSum float64
	vSum  float64

	sessionDate string
	sessionOpen float64
	sessionHigh float64
	sessionLow  float64
	prevClose   float64
}

func newTickerState() *tickerState {
	return &tickerState{
		smaShort: newRollingSum(smaShortWindow),
		smaLong:  newRollingSum(smaLongWindow),
		avgVol:   newRollingSum(avgVolWindow),
		momRing:  newRollingSum(momentumWindow + 1),
	}
}

// ingest appends bar, evicts past capacity and updates indicators. Caller
// holds mu. Returns false when the bar violates the ordering invariant.
func (st *tickerState) ingest(bar models.Bar, capacity int) bool {
	if !st.lastTS.IsZero() && !bar.Timestamp.After(st.lastTS) {
		return false
	}

	st.updateSession(bar)

	st.bars = append(st.bars, bar)
	if len(st.bars) > capacity {
		// Shift rather than re-slice so the evicted prefix is released.
		copy(st.bars, st.bars[1:])
		st.bars = st.bars[:capacity]
	}
	st.lastTS = bar.Timestamp

	st.smaShort.push(bar.Close)
	st.smaLong.push(bar.Close)
	st.avgVol.push(bar.Volume)
	st.momRing.push(bar.Close)

	typical := (bar.High + bar.Low + bar.Close) / 3
	st.pvSum += typical * bar.Volume
	st.vSum += bar.Volume

	return true
}

func (st *tickerState) updateSession(bar models.Bar) {
	if bar.Date != st.sessionDate {
		if n := len(st.bars); n > 0 {
			st.prevClose = st.bars[n-1].Close
		}
		st.sessionDate = bar.Date
		st.sessionOpen = bar.Open
		st.sessionHigh = bar.High
		st.sessionLow = bar.Low
		st.pvSum = 0
		st.vSum = 0
		return
	}
	if bar.High > st.sessionHigh {
		st.sessionHigh = bar.High
	}
	if bar.Low < st.sessionLow {
		st.sessionLow = bar.Low
	}
}

// snapshot copies the window and materializes indicator values. Caller
// holds mu.
func (st *tickerState) snapshot(ticker string) *models.TickerState {
	bars := make([]models.Bar, len(st.bars))
	copy(bars, st.bars)

	snap := &models.TickerState{
		Ticker:      ticker,
		Bars:        bars,
		SMAShort:    st.smaShort.mean(),
		SMALong:     st.smaLong.mean(),
		AvgVolume:   st.avgVol.mean(),
		SessionDate: st.sessionDate,
		SessionOpen: st.sessionOpen,
		SessionHigh: st.sessionHigh,
		SessionLow:  st.sessionLow,
		PrevClose:   st.prevClose,
	}

	if st.vSum > 0 {
		snap.VWAP = st.pvSum / st.vSum
	} else if len(bars) > 0 {
		snap.VWAP = bars[len(bars)-1].Close
	}

	// Momentum: percent change versus the close momentumWindow bars back.
	if st.momRing.full() {
		past := st.momRing.front()
		if past != 0 {
			snap.Momentum = (st.momRing.back() - past) / past * 100
		}
	}

	return snap
}

// rollingSum is a fixed-size ring of float64 with a running sum.
type rollingSum struct {
	vals []float64
	size int
	head int
	n    int
	sum  float64
}

func newRollingSum(size int) *rollingSum {
	return &rollingSum{vals: make([]float64, size), size: size}
}

func (r *rollingSum) push(v float64) {
	if r.n == r.size {
		r.sum -= r.vals[r.head]
	} else {
		r.n++
	}
	r.vals[r.head] = v
	r.sum += v
	r.head = (r.head + 1) % r.size
}

func (r *rollingSum) mean() float64 {
	if r.n == 0 {
		return 0
	}
	return r.sum / float64(r.n)
}

func (r *rollingSum) full() bool { return r.n == r.size }

// front returns the oldest value in the ring.
func (r *rollingSum) front() float64 {
	if r.n < r.size {
		return r.vals[0]
	}
	return r.vals[r.head]
}

// back returns the most recent value.
func (r *rollingSum) back() float64 {
	idx := (r.head - 1 + r.size) % r.size
	return r.vals[idx]
}
