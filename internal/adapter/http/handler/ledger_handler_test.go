package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/walletledger/internal/adapter/http/dto"
	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/usecase"
)

type reconciliationServiceStub struct {
	holderFn func(ctx context.Context, holder string) (*usecase.ReconciliationResult, error)
	reportFn func(ctx context.Context, limit, offset int) (*usecase.ReconciliationReport, error)
}

func (s *reconciliationServiceStub) ReconcileHolder(ctx context.Context, holder string) (*usecase.ReconciliationResult, error) {
	return s.holderFn(ctx, holder)
}

func (s *reconciliationServiceStub) GenerateReconciliationReport(ctx context.Context, limit, offset int) (*usecase.ReconciliationReport, error) {
	return s.reportFn(ctx, limit, offset)
}

func TestLedgerHandler_ReconcileHolder(t *testing.T) {
	tests := []struct {
		name       string
		reconciled bool
		expected   int
	}{
		{"matching", true, http.StatusOK},
		{"drifted", false, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewLedgerHandler(&reconciliationServiceStub{
				holderFn: func(ctx context.Context, holder string) (*usecase.ReconciliationResult, error) {
					return &usecase.ReconciliationResult{
						Holder:       holder,
						IsReconciled: tt.reconciled,
						Currencies: []usecase.CurrencyReconciliation{{
							Currency:          "USD",
							RecordedBalance:   decimal.NewFromInt(10),
							CalculatedBalance: decimal.NewFromInt(10),
						}},
					}, nil
				},
			})

			req := setChiURLParams(httptest.NewRequest(http.MethodGet, "/accounts/alice/reconciliation", nil), "holder", "alice")
			rec := httptest.NewRecorder()

			handler.ReconcileHolder(rec, req)

			if rec.Code != tt.expected {
				t.Fatalf("expected %d, got %d", tt.expected, rec.Code)
			}

			var resp dto.ReconciliationResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Holder != "alice" || resp.IsReconciled != tt.reconciled || len(resp.Currencies) != 1 {
				t.Fatalf("unexpected response %+v", resp)
			}
		})
	}
}

func TestLedgerHandler_ReconcileHolder_NotFound(t *testing.T) {
	handler := NewLedgerHandler(&reconciliationServiceStub{
		holderFn: func(ctx context.Context, holder string) (*usecase.ReconciliationResult, error) {
			return nil, domain.ErrAccountNotFound
		},
	})

	req := setChiURLParams(httptest.NewRequest(http.MethodGet, "/accounts/ghost/reconciliation", nil), "holder", "ghost")
	rec := httptest.NewRecorder()

	handler.ReconcileHolder(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestLedgerHandler_Report(t *testing.T) {
	var gotLimit, gotOffset int
	handler := NewLedgerHandler(&reconciliationServiceStub{
		reportFn: func(ctx context.Context, limit, offset int) (*usecase.ReconciliationReport, error) {
			gotLimit, gotOffset = limit, offset
			return &usecase.ReconciliationReport{TotalAccounts: 3, ReconciledAccounts: 3}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/reconciliation?offset=20", nil)
	rec := httptest.NewRecorder()

	handler.Report(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotLimit != 100 || gotOffset != 20 {
		t.Fatalf("unexpected pagination %d/%d", gotLimit, gotOffset)
	}

	var resp dto.ReconciliationReportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TotalAccounts != 3 || len(resp.Discrepancies) != 0 {
		t.Fatalf("unexpected report %+v", resp)
	}
}
