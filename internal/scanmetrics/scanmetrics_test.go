package scanmetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/plextuner/dvbscan/internal/dvbid"
	"github.com/plextuner/dvbscan/internal/tables"
	"github.com/plextuner/dvbscan/internal/tuning"
)

// Cannot use t.Parallel() - shared global metrics.

func TestObserver_UpdateIncrementsStartedAndSetsInProgress(t *testing.T) {
	before := testutil.ToFloat64(transpondersStartedTotal)

	o := Observer{}
	o.Update(tuning.Params{System: tuning.Cable})

	if got := testutil.ToFloat64(transpondersStartedTotal); got != before+1 {
		t.Fatalf("transpondersStartedTotal = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(scanInProgress); got != 1 {
		t.Fatalf("scanInProgress = %v, want 1", got)
	}

	o.Finish()
	if got := testutil.ToFloat64(scanInProgress); got != 0 {
		t.Fatalf("scanInProgress after Finish = %v, want 0", got)
	}
}

func TestObserver_FailIncrementsFailedTotal(t *testing.T) {
	before := testutil.ToFloat64(transpondersFailedTotal)

	Observer{}.Fail(tuning.Params{System: tuning.Satellite})

	if got := testutil.ToFloat64(transpondersFailedTotal); got != before+1 {
		t.Fatalf("transpondersFailedTotal = %v, want %v", got, before+1)
	}
}

func TestObserver_NewServiceLabelsByDeliverySystem(t *testing.T) {
	cableBefore := testutil.ToFloat64(servicesFoundTotal.WithLabelValues("cable"))
	terrestrialBefore := testutil.ToFloat64(servicesFoundTotal.WithLabelValues("terrestrial"))
	satBefore := testutil.ToFloat64(servicesFoundTotal.WithLabelValues("satellite"))

	o := Observer{}
	o.NewService(tables.Service{Ref: dvbid.ServiceRef{ChannelID: dvbid.ChannelID{Namespace: dvbid.NamespaceCable}}})
	o.NewService(tables.Service{Ref: dvbid.ServiceRef{ChannelID: dvbid.ChannelID{Namespace: dvbid.NamespaceTerrestrial}}})
	o.NewService(tables.Service{Ref: dvbid.ServiceRef{ChannelID: dvbid.ChannelID{Namespace: dvbid.BuildNamespace(1, 2, 0x0192<<16)}}})

	if got := testutil.ToFloat64(servicesFoundTotal.WithLabelValues("cable")); got != cableBefore+1 {
		t.Fatalf("cable count = %v, want %v", got, cableBefore+1)
	}
	if got := testutil.ToFloat64(servicesFoundTotal.WithLabelValues("terrestrial")); got != terrestrialBefore+1 {
		t.Fatalf("terrestrial count = %v, want %v", got, terrestrialBefore+1)
	}
	if got := testutil.ToFloat64(servicesFoundTotal.WithLabelValues("satellite")); got != satBefore+1 {
		t.Fatalf("satellite count = %v, want %v", got, satBefore+1)
	}
}

func TestObserver_DelegatesToNext(t *testing.T) {
	var calls []string
	next := &recordingNext{calls: &calls}

	o := Observer{Next: next}
	o.Update(tuning.Params{})
	o.NewService(tables.Service{})
	o.Fail(tuning.Params{})
	o.Finish()

	want := []string{"Update", "NewService", "Fail", "Finish"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", calls, want)
		}
	}
}

type recordingNext struct {
	calls *[]string
}

func (r *recordingNext) Update(tuning.Params)      { *r.calls = append(*r.calls, "Update") }
func (r *recordingNext) NewService(tables.Service) { *r.calls = append(*r.calls, "NewService") }
func (r *recordingNext) Fail(tuning.Params)        { *r.calls = append(*r.calls, "Fail") }
func (r *recordingNext) Finish()                   { *r.calls = append(*r.calls, "Finish") }
