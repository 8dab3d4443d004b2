package model

import (
	"math"
	"testing"
)

func ts(sec int64, usec int64) Timestamp {
	return Timestamp{Sec: sec, Usec: usec}
}

func TestRate_SteadyDelta(t *testing.T) {
	t.Parallel()

	r := Rate{Total: 1000}
	r.Update(ts(100, 0))
	if r.PrevTotal != 1000 || r.TPS != 0 {
		t.Fatalf("seed=%+v", r)
	}

	r.Total = 1500
	r.Update(ts(101, 0))
	if r.TPS != 500 {
		t.Fatalf("tps=%v", r.TPS)
	}
	if r.Overflows != 0 {
		t.Fatalf("overflows=%d", r.Overflows)
	}
	if r.PrevTotal != 1500 || r.LastUpdate != ts(101, 0) {
		t.Fatalf("state=%+v", r)
	}
}

func TestRate_ThirtyTwoBitWrap(t *testing.T) {
	t.Parallel()

	r := Rate{Total: 4294967000}
	r.Update(ts(100, 0))

	r.Total = 500
	r.Update(ts(101, 0))
	if r.Overflows != 1 {
		t.Fatalf("overflows=%d", r.Overflows)
	}
	// 4294967296 - (4294967000 - 500)
	if r.TPS != 796 {
		t.Fatalf("tps=%v", r.TPS)
	}
}

func TestRate_SixtyFourBitNoCorrection(t *testing.T) {
	t.Parallel()

	r := Rate{Total: 1, Is64Bit: true}
	r.Update(ts(100, 0))

	r.Total = 1 + 2*OverflowLimit
	r.Update(ts(102, 0))
	if r.Overflows != 0 {
		t.Fatalf("overflows=%d", r.Overflows)
	}
	if r.TPS != float64(OverflowLimit) {
		t.Fatalf("tps=%v", r.TPS)
	}
}

func TestRate_SixtyFourBitResetReseeds(t *testing.T) {
	t.Parallel()

	r := Rate{Total: 5000, Is64Bit: true}
	r.Update(ts(100, 0))

	r.Total = 100
	r.Update(ts(101, 0))
	if r.TPS != 0 || r.PrevTotal != 100 {
		t.Fatalf("state=%+v", r)
	}
}

func TestRate_MinimumInterval(t *testing.T) {
	t.Parallel()

	r := Rate{Total: 1000}
	r.Update(ts(100, 0))

	r.Total = 2000
	r.Update(ts(100, 600000))
	if r.TPS != 0 || r.PrevTotal != 1000 || r.LastUpdate != ts(100, 0) {
		t.Fatalf("gated update changed state: %+v", r)
	}

	r.Update(ts(102, 0))
	if r.TPS != 500 {
		t.Fatalf("tps=%v", r.TPS)
	}
}

func TestRate_FractionalElapsed(t *testing.T) {
	t.Parallel()

	r := Rate{Total: 1000}
	r.Update(ts(100, 0))

	r.Total = 1000 + 1250
	r.Update(ts(101, 250000))
	if math.Abs(r.TPS-1000) > 1e-6 {
		t.Fatalf("tps=%v", r.TPS)
	}
}

// 第一次读到 0 和"从未采样"无法区分：下一次非零读数只会被当成基准
func TestRate_ZeroFirstSampleIsAmbiguous(t *testing.T) {
	t.Parallel()

	r := Rate{Total: 0}
	r.Update(ts(100, 0))

	r.Total = 300
	r.Update(ts(101, 0))
	if r.TPS != 0 || r.PrevTotal != 300 {
		t.Fatalf("state=%+v", r)
	}
	if r.LastUpdate != ts(101, 0) {
		t.Fatalf("last=%+v", r.LastUpdate)
	}

	r.Total = 600
	r.Update(ts(102, 0))
	if r.TPS != 300 {
		t.Fatalf("tps=%v", r.TPS)
	}
}
