package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()

	m.BillsCreated.Inc()
	m.BillsCreated.Inc()
	m.AmountPaid.Add(45.5)

	if got := testutil.ToFloat64(m.BillsCreated); got != 2 {
		t.Errorf("bills_created_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.AmountPaid); got != 45.5 {
		t.Errorf("payment_amount_total = %v, want 45.5", got)
	}
	if got := testutil.ToFloat64(m.BillsDeleted); got != 0 {
		t.Errorf("bills_deleted_total = %v, want 0", got)
	}
}

func TestRPCRequestsByCode(t *testing.T) {
	m := New()
	m.RPCRequests.WithLabelValues("/splitledger.v1.BillService/GetBill", "ok").Inc()
	m.RPCRequests.WithLabelValues("/splitledger.v1.BillService/GetBill", "not_found").Inc()
	m.RPCRequests.WithLabelValues("/splitledger.v1.BillService/GetBill", "ok").Inc()

	got := testutil.ToFloat64(m.RPCRequests.WithLabelValues("/splitledger.v1.BillService/GetBill", "ok"))
	if got != 2 {
		t.Errorf("ok count = %v, want 2", got)
	}
	if n := testutil.CollectAndCount(m.RPCRequests); n != 2 {
		t.Errorf("series count = %d, want 2", n)
	}
}

func TestIndependentRegistries(t *testing.T) {
	// Two instances must not panic on duplicate registration.
	a, b := New(), New()
	a.GroupsCreated.Inc()
	if got := testutil.ToFloat64(b.GroupsCreated); got != 0 {
		t.Errorf("second instance saw first instance's counter: %v", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.PaymentsRegistered.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "splitledger_payments_registered_total 1") {
		t.Errorf("metrics output missing payments counter:\n%s", body)
	}
}
