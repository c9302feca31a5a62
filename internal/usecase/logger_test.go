//go:build !integration

package usecase_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"pos-provisioning/internal/domain/model"
	"pos-provisioning/internal/usecase"
)

func TestUseCases_LogWithComponent(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		component string
		call      func(db *memDB, log *zerolog.Logger)
	}{
		{"CheckoutUC", func(db *memDB, log *zerolog.Logger) {
			_, _, _ = usecase.NewCheckoutUseCase(db.repos(), "IDR", 2, log).Start(ctx, usecase.CheckoutRequest{})
		}},
		{"PaymentUC", func(db *memDB, log *zerolog.Logger) {
			_, _ = usecase.NewPaymentUseCase(db.repos().Payments, &MockQueue{}, log).MarkPaid(ctx, usecase.PaymentConfirmation{})
		}},
		{"EntitlementUC", func(db *memDB, log *zerolog.Logger) {
			_, _ = usecase.NewEntitlementUseCase(db.repos(), newMemTxManager(db), log).Check(ctx, "tenant-1", model.FeatureMaxProducts)
		}},
		{"RegistrationUC", func(db *memDB, log *zerolog.Logger) {
			_, _ = usecase.NewRegistrationUseCase(db.repos(), newMemTxManager(db), log).ProvisionFor(ctx, nil)
		}},
		{"SubscriptionUC", func(db *memDB, log *zerolog.Logger) {
			_, _ = usecase.NewSubscriptionUseCase(db.repos(), log).Current(ctx, "tenant-1")
		}},
	}

	for _, tt := range tests {
		t.Run("should tag "+tt.component+" log lines", func(t *testing.T) {
			// --- Arrange ---
			var buf bytes.Buffer
			log := zerolog.New(&buf).Level(zerolog.TraceLevel)

			// --- Act ---
			tt.call(newMemDB(), &log)

			// --- Assert ---
			want := `"component":"` + tt.component + `"`
			if !strings.Contains(buf.String(), want) {
				t.Errorf("expected %s in log output, got %q", want, buf.String())
			}
		})
	}
}
