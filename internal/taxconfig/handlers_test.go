package taxconfig

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-folio/internal/common"
	"github.com/noah-isme/backend-folio/internal/repo"
)

func TestHandlerActiveListsOrderedRules(t *testing.T) {
	stub := &stubRules{rows: []repo.TaxRule{rule("luxury_tax", "2"), rule("vat", "10")}}
	svc, _ := newService(t, stub)
	h := &Handler{Svc: svc}

	rec := httptest.NewRecorder()
	h.Active(rec, httptest.NewRequest(http.MethodGet, "/v1/tax-config", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Rules []struct {
				TaxType string `json:"taxType"`
			} `json:"rules"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Rules, 2)
	require.Equal(t, "vat", body.Data.Rules[0].TaxType)
}

func TestHandlerActiveRejectsDuplicateTypes(t *testing.T) {
	stub := &stubRules{rows: []repo.TaxRule{rule("vat", "10"), rule("VAT", "11")}}
	svc, _ := newService(t, stub)

	rec := httptest.NewRecorder()
	(&Handler{Svc: svc}).Active(rec, httptest.NewRequest(http.MethodGet, "/v1/tax-config", nil))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerRefreshRequiresManager(t *testing.T) {
	stub := &stubRules{rows: []repo.TaxRule{rule("vat", "10")}}
	svc, mr := newService(t, stub)
	h := &Handler{Svc: svc}
	_, err := svc.Active(t.Context())
	require.NoError(t, err)
	require.True(t, mr.Exists(cacheKey))

	req := httptest.NewRequest(http.MethodPost, "/v1/tax-config/refresh", nil)
	req = req.WithContext(common.WithActor(req.Context(), common.Actor{ID: "fd-1", Role: "front_desk"}))
	rec := httptest.NewRecorder()
	h.Refresh(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.True(t, mr.Exists(cacheKey))

	req = httptest.NewRequest(http.MethodPost, "/v1/tax-config/refresh", nil)
	req = req.WithContext(common.WithActor(req.Context(), common.Actor{ID: "mgr-1", Role: "manager"}))
	rec = httptest.NewRecorder()
	h.Refresh(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.False(t, mr.Exists(cacheKey))
}
