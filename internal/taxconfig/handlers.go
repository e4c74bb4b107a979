package taxconfig

import (
	"errors"
	"net/http"

	"github.com/noah-isme/backend-folio/internal/common"
	"github.com/noah-isme/backend-folio/internal/pricing"
)

// Handler exposes the active tax configuration to front-desk clients.
type Handler struct {
	Svc *Service
}

// Active returns the active rules in application order.
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "tax config not configured", nil)
		return
	}
	cfg, err := h.Svc.Active(r.Context())
	if err != nil {
		if errors.Is(err, pricing.ErrInvalidTaxRule) {
			common.JSONError(w, http.StatusConflict, "TAX_CONFIG_INVALID", err.Error(), nil)
			return
		}
		common.WriteError(w, err)
		return
	}
	ordered, _ := cfg.Ordered()
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"rules": ordered}})
}

// Refresh drops the cached rules so the next folio reads them from the
// database. Only managers and owners may trigger it.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "tax config not configured", nil)
		return
	}
	actor, ok := common.ActorFrom(r.Context())
	if !ok || (actor.Role != string(pricing.RoleManager) && actor.Role != string(pricing.RoleOwner)) {
		common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "manager or owner required", nil)
		return
	}
	if err := h.Svc.Invalidate(r.Context()); err != nil {
		common.WriteError(w, err)
		return
	}
	h.Svc.Log.Info().Str("actor_id", actor.ID).Msg("tax config cache invalidated")
	w.WriteHeader(http.StatusNoContent)
}
