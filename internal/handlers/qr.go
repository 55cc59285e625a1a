package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/suda/punchcard/internal/models"
	"github.com/suda/punchcard/internal/services"
)

// CodeLookup finds a code that can still be redeemed today.
type CodeLookup interface {
	ActiveCode(ctx context.Context, code string) (*models.DailyCode, error)
}

// QR renders today's unused code as a PNG so the barista can show it on a screen.
func QR(codes CodeLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimSuffix(chi.URLParam(r, "code"), ".png")
		if !services.IsRedemptionCode(code) {
			http.NotFound(w, r)
			return
		}
		dc, err := codes.ActiveCode(r.Context(), code)
		if errors.Is(err, services.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			http.Error(w, "lookup failed", http.StatusInternalServerError)
			return
		}

		png, err := qrcode.Encode(dc.Code, qrcode.Medium, 256)
		if err != nil {
			http.Error(w, "failed to generate qr", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
	}
}
