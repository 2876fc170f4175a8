package handlers

import (
	"net/http"

	"bifrost/internal/httpserver/deps"
	"bifrost/internal/logger"
)

// Reload triggers an immediate reload of the service definition file.
// The reload itself runs on the scheduler goroutine; the handler only
// signals it, so a second call while one is in flight reports 429.
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case d.ReloadTrigger <- struct{}{}:
			d.Logger.Info("manual registry reload triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusAccepted, map[string]string{"status": "reload triggered"})
		default:
			d.Logger.Warn("registry reload already in progress",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"status": "reload already in progress"})
		}
	}
}
