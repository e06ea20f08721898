package output

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/subsidy/pkg/application/dto"
	"github.com/vsinha/subsidy/pkg/domain/entities"
)

func samplePayments() *dto.PaymentSummary {
	main := dto.NewPaymentRow(9001, "Main Pilot")
	main.ApprovedUnpaid = decimal.NewFromInt(2_000_000)
	main.TotalApproved = decimal.NewFromInt(2_000_000)
	main.UnpaidBeforeExempt = decimal.NewFromInt(2_000_000)
	main.Contracts = 2

	solo := dto.NewPaymentRow(9100, "Solo Pilot")
	solo.ApprovedPaid = decimal.NewFromInt(500_000)
	solo.TotalApproved = decimal.NewFromInt(500_000)
	solo.Contracts = 1

	totals := dto.NewPaymentRow(0, "Total")
	totals.Accumulate(main)
	totals.Accumulate(solo)
	return &dto.PaymentSummary{Rows: []dto.PaymentRow{main, solo}, Totals: totals}
}

func TestGenerate_Text(t *testing.T) {
	var buf bytes.Buffer
	err := Generate(PaymentsReport(samplePayments()), Config{Format: "text", Writer: &buf})
	if err != nil {
		t.Fatalf("Failed to generate text: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Subsidy Payments", "Main Pilot", "2000000.00", "Total", "2500000.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected text output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestGenerate_EmptyTable(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(ReviewReport(nil), Config{Writer: &buf}); err != nil {
		t.Fatalf("Failed to generate text: %v", err)
	}
	if !strings.Contains(buf.String(), "(none)") {
		t.Errorf("Expected empty marker, got:\n%s", buf.String())
	}
}

func TestGenerate_JSON(t *testing.T) {
	var buf bytes.Buffer
	res := dto.BulkPayResult{DisplayID: 9001, Updated: 3, Total: decimal.NewFromInt(1_000_000)}
	if err := Generate(BulkPayReport(res), Config{Format: "json", Writer: &buf}); err != nil {
		t.Fatalf("Failed to generate json: %v", err)
	}
	if !strings.Contains(buf.String(), `"Updated": 3`) || !strings.Contains(buf.String(), `"1000000"`) {
		t.Errorf("Unexpected JSON output:\n%s", buf.String())
	}
}

func TestGenerate_CSVFiles(t *testing.T) {
	dir := t.TempDir()
	ic := &dto.IdentityContracts{
		DisplayID:   9001,
		DisplayName: "Main Pilot",
		Issuers:     []dto.IssuerTotals{{IssuerID: 9001, IssuerName: "Main Pilot", Approved: decimal.NewFromInt(1), Contracts: 1}},
		Contracts: []dto.ContractLine{{
			ContractID: 1001, IssuerName: "Main Pilot", DateIssued: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			Status: entities.StatusOutstanding, ReviewStatus: entities.ReviewApproved,
		}},
	}
	if err := Generate(IdentityContractsReport(ic), Config{Format: "csv", OutputDir: dir}); err != nil {
		t.Fatalf("Failed to generate csv: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "contracts_contracts.csv"))
	if err != nil {
		t.Fatalf("Expected contracts csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header and one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], "1001,2024-05-01 12:00,Main Pilot,outstanding") {
		t.Errorf("Unexpected row: %s", lines[1])
	}
	if _, err := os.Stat(filepath.Join(dir, "contracts_issuers.csv")); err != nil {
		t.Errorf("Expected issuers csv: %v", err)
	}
}

func TestBuildWorkbook(t *testing.T) {
	f, err := BuildWorkbook(PaymentsReport(samplePayments()))
	if err != nil {
		t.Fatalf("Failed to build workbook: %v", err)
	}
	defer f.Close()

	name, err := f.GetCellValue("payments", "A2")
	if err != nil {
		t.Fatalf("Failed to read cell: %v", err)
	}
	if name != "Main Pilot" {
		t.Errorf("Expected Main Pilot in A2, got %q", name)
	}
	footer, _ := f.GetCellValue("payments", "A4")
	if footer != "Total" {
		t.Errorf("Expected totals row in A4, got %q", footer)
	}
	count, _ := f.GetCellValue("payments", "B4")
	if count != "3" {
		t.Errorf("Expected 3 contracts in totals, got %q", count)
	}
}

func TestGenerate_XLSXRequiresDir(t *testing.T) {
	err := Generate(PaymentsReport(samplePayments()), Config{Format: "xlsx"})
	if err == nil {
		t.Fatal("Expected xlsx without output directory to fail")
	}
}

func TestRenderHTML(t *testing.T) {
	page, err := RenderHTML(PaymentsReport(samplePayments()), time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Failed to render html: %v", err)
	}
	for _, want := range []string{"<title>Subsidy Payments</title>", "<td>Main Pilot</td>", "2024-05-01T00:00:00Z"} {
		if !strings.Contains(page, want) {
			t.Errorf("Expected page to contain %q", want)
		}
	}
}

func TestGenerate_UnknownFormat(t *testing.T) {
	if err := Generate(Report{}, Config{Format: "pdf"}); err == nil {
		t.Error("Expected unsupported format error")
	}
}
