package service

import (
	"reflect"
	"testing"

	plandomain "github.com/fixkit/fixkit/internal/plan/domain"
	usagedomain "github.com/fixkit/fixkit/internal/usage/domain"
)

func f64(v float64) *float64 { return &v }

func TestBuildReportZeroLimit(t *testing.T) {
	// A zero ceiling with zero usage reads as 0%, not over. With usage it
	// is pure overage; no percentage entry is produced because there is no
	// meaningful denominator.
	limits := plandomain.Limits{MaxWorkOrders: i64(0), MaxCustomers: i64(0)}
	metrics := usagedomain.Metrics{WorkOrders: 0, Customers: 4}

	report := buildReport(metrics, limits, 80)

	if got := report.Percentages[usagedomain.MetricWorkOrders]; got != 0 {
		t.Fatalf("expected workOrders at 0%%, got %f", got)
	}
	if _, ok := report.Percentages[usagedomain.MetricCustomers]; ok {
		t.Fatal("zero limit with usage must not produce a percentage")
	}
	if got := report.Overages[usagedomain.MetricCustomers]; got != 4 {
		t.Fatalf("expected customers overage 4, got %f", got)
	}
	if !report.IsOverLimit {
		t.Fatal("expected over limit")
	}
}

func TestBuildReportPercentRounding(t *testing.T) {
	limits := plandomain.Limits{MaxCustomers: i64(7)}
	metrics := usagedomain.Metrics{Customers: 6}

	report := buildReport(metrics, limits, 80)

	// 6/7 rounds to one decimal.
	if got := report.Percentages[usagedomain.MetricCustomers]; got != 85.7 {
		t.Fatalf("expected 85.7, got %f", got)
	}
	want := []string{"approaching customers limit (85.7%)"}
	if !reflect.DeepEqual(report.Warnings, want) {
		t.Fatalf("expected warnings %v, got %v", want, report.Warnings)
	}
}

func TestBuildReportWarningThreshold(t *testing.T) {
	limits := plandomain.Limits{MaxCustomers: i64(10)}

	// Exactly at the threshold: not approaching. Strictly above: warned.
	report := buildReport(usagedomain.Metrics{Customers: 8}, limits, 80)
	if len(report.Warnings) != 0 {
		t.Fatalf("80%% must not warn, got %v", report.Warnings)
	}

	report = buildReport(usagedomain.Metrics{Customers: 9}, limits, 80)
	want := []string{"approaching customers limit (90%)"}
	if !reflect.DeepEqual(report.Warnings, want) {
		t.Fatalf("expected warnings %v, got %v", want, report.Warnings)
	}
}

func TestBuildReportThresholdUsesRawPercentage(t *testing.T) {
	// 8004/10000 = 80.04%: above the threshold even though the displayed
	// percentage rounds down to 80.
	limits := plandomain.Limits{MaxAPICalls: i64(10000)}
	metrics := usagedomain.Metrics{APICalls: 8004}

	report := buildReport(metrics, limits, 80)

	if got := report.Percentages[usagedomain.MetricAPICalls]; got != 80 {
		t.Fatalf("expected displayed percentage 80, got %f", got)
	}
	want := []string{"approaching apiCalls limit (80%)"}
	if !reflect.DeepEqual(report.Warnings, want) {
		t.Fatalf("expected warnings %v, got %v", want, report.Warnings)
	}
}

func TestBuildReportStorageUsesFractionalValues(t *testing.T) {
	limits := plandomain.Limits{MaxStorageMB: f64(100)}
	metrics := usagedomain.Metrics{StorageUsedMB: 100.5}

	report := buildReport(metrics, limits, 80)

	if got := report.Overages[usagedomain.MetricStorageUsedMB]; got != 0.5 {
		t.Fatalf("expected storage overage 0.5, got %f", got)
	}
	want := []string{"exceeded storageUsedMB limit by 0.5"}
	if !reflect.DeepEqual(report.Warnings, want) {
		t.Fatalf("expected warnings %v, got %v", want, report.Warnings)
	}
}

func TestBuildReportWarningOrderFollowsMetricOrder(t *testing.T) {
	limits := plandomain.Limits{
		MaxWorkOrders:     i64(1),
		MaxCustomers:      i64(1),
		MaxInventoryItems: i64(1),
		MaxEmployees:      i64(1),
		MaxStores:         i64(1),
		MaxAPICalls:       i64(1),
		MaxStorageMB:      f64(1),
	}
	metrics := usagedomain.Metrics{
		WorkOrders:     2,
		Customers:      2,
		InventoryItems: 2,
		Employees:      2,
		Stores:         2,
		APICalls:       2,
		StorageUsedMB:  2,
	}

	report := buildReport(metrics, limits, 80)

	want := []string{
		"exceeded workOrders limit by 1",
		"exceeded customers limit by 1",
		"exceeded inventoryItems limit by 1",
		"exceeded employees limit by 1",
		"exceeded stores limit by 1",
		"exceeded apiCalls limit by 1",
		"exceeded storageUsedMB limit by 1",
	}
	if !reflect.DeepEqual(report.Warnings, want) {
		t.Fatalf("warning order mismatch:\nwant %v\ngot  %v", want, report.Warnings)
	}
}
