package handler

import (
	"io"
	"net/http"

	"github.com/smartspendr/bfa-go/internal/offline"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// assetHandler serves the app shell under /app/*, routing every request
// through the resource cache controller. Installed resources are answered
// from the cache; everything else is proxied to the app origin.
func assetHandler(ctrl *offline.Controller, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := "/" + chi.URLParam(r, "*")

		req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, ctrl.Origin()+path, nil)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid asset path")
			return
		}

		resp, err := ctrl.Intercept(req)
		if err != nil {
			logger.Warn("asset fetch failed", zap.String("path", path), zap.Error(err))
			writeError(w, http.StatusBadGateway, "asset unavailable")
			return
		}
		defer resp.Body.Close()

		for k, vals := range resp.Header {
			for _, v := range vals {
				w.Header().Add(k, v)
			}
		}
		w.WriteHeader(resp.StatusCode)
		io.Copy(w, resp.Body)
	}
}
